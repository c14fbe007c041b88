package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	viewsync "github.com/terraguard/viewsync"
)

// Flags
var (
	configFile    string
	dbHost        string
	dbPort        int
	dbName        string
	dbUser        string
	dbPass        string
	schema        string
	notifyChannel string
	filters       []string
	orderByColumn string
	ascending     bool
	limit         int
	logLevel      string
)

func init() {
	ViewSyncCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML config file")
	ViewSyncCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "L", "", "log level")
	ViewSyncCmd.PersistentFlags().StringVarP(&dbHost, "db-host", "H", "", "database host")
	ViewSyncCmd.PersistentFlags().IntVarP(&dbPort, "db-port", "p", 0, "database port")
	ViewSyncCmd.PersistentFlags().StringVarP(&dbName, "db-name", "d", "", "database name")
	ViewSyncCmd.PersistentFlags().StringVarP(&dbUser, "db-user", "U", "", "database user")
	ViewSyncCmd.PersistentFlags().StringVarP(&dbPass, "db-pass", "P", "", "database password")
	ViewSyncCmd.Flags().StringVarP(&schema, "schema", "s", "", "schema the change stream is scoped to")
	ViewSyncCmd.Flags().StringVarP(&notifyChannel, "notify-channel", "n", "", "Postgres notification channel")
	ViewSyncCmd.Flags().StringSliceVarP(&filters, "filter", "f", nil, "equality filters as column=value pairs")
	ViewSyncCmd.Flags().StringVarP(&orderByColumn, "order-by", "o", "", "column to order the record set by")
	ViewSyncCmd.Flags().BoolVarP(&ascending, "ascending", "a", false, "sort ascending instead of descending")
	ViewSyncCmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum records to keep")
	ViewSyncCmd.Flags().SortFlags = false

	ViewSyncCmd.AddCommand(
		recommendCmd,
		setupDBCmd,
		teardownDBCmd,
	)
}

// ViewSyncCmd is the root command.
var ViewSyncCmd = &cobra.Command{
	Use:   "viewsync <view>",
	Short: "Watch a dashboard view",
	Long:  `Subscribe to a logical dashboard view and stream its live record set to stdout.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := parseConfig()
		if err != nil {
			return err
		}

		logger := log.New()
		lvl, err := viewsync.ParseLogLevel(config.LogLevel)
		if err != nil {
			return err
		}
		logger.Level = lvl

		req, err := buildRequest(args[0])
		if err != nil {
			return err
		}

		provider := viewsync.NewNotifyProvider(
			viewsync.NotifyChannelName(config.NotifyChannel),
			viewsync.NotifyLogger(logger),
		)
		err = provider.Dial(&pgx.ConnConfig{
			Host:     config.Database.Host,
			Port:     uint16(config.Database.Port),
			User:     config.Database.User,
			Password: config.Database.Password,
			Database: config.Database.Database,
		})
		if err != nil {
			return fmt.Errorf("unable to connect to the change stream: %w", err)
		}
		defer provider.Close()

		store, err := viewsync.OpenPGSnapshotStore(&config.Database)
		if err != nil {
			return fmt.Errorf("unable to connect to the snapshot store: %w", err)
		}
		defer store.Close()

		syncer := viewsync.NewSyncer(store, provider,
			viewsync.Logger(logger),
			viewsync.StreamSchema(config.Schema),
			viewsync.ReconnectDelay(time.Duration(config.ReconnectDelaySeconds)*time.Second),
		)
		defer syncer.Close()

		sub, err := syncer.Subscribe(context.Background(), req)
		if err != nil {
			return err
		}

		shutdownCh := make(chan os.Signal, 1)
		signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

		enc := json.NewEncoder(os.Stdout)
		for {
			select {
			case <-sub.Updates():
				out := struct {
					Records   []viewsync.Record `json:"records"`
					Loading   bool              `json:"loading"`
					Connected bool              `json:"connected"`
				}{
					Records:   sub.Records(),
					Loading:   sub.Loading(),
					Connected: sub.Connected(),
				}
				if err := enc.Encode(out); err != nil {
					return err
				}
			case <-shutdownCh:
				logger.Info("shutting down...")
				return nil
			}
		}
	},
}

func buildRequest(view string) (viewsync.SubscriptionRequest, error) {
	req := viewsync.SubscriptionRequest{View: view, Limit: limit}

	parsed, err := parseFilters(filters)
	if err != nil {
		return req, err
	}
	req.Filter = parsed

	if orderByColumn != "" {
		req.OrderBy = &viewsync.OrderBy{Column: orderByColumn, Ascending: ascending}
	}
	return req, nil
}
