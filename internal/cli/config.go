package cli

import (
	"fmt"
	"strings"

	viewsync "github.com/terraguard/viewsync"
)

func parseConfig() (*viewsync.Config, error) {
	var config *viewsync.Config
	var err error

	if configFile != "" {
		config, err = viewsync.LoadConfigFile(configFile)
	} else {
		config, err = viewsync.NewConfigFromEnv()
	}
	if err != nil {
		return nil, err
	}

	if dbHost != "" {
		config.Database.Host = dbHost
	}

	if dbPort != 0 {
		config.Database.Port = dbPort
	}

	if dbUser != "" {
		config.Database.User = dbUser
	}

	if dbPass != "" {
		config.Database.Password = dbPass
	}

	if dbName != "" {
		config.Database.Database = dbName
	}

	if schema != "" {
		config.Schema = schema
	}

	if notifyChannel != "" {
		config.NotifyChannel = notifyChannel
	}

	if logLevel != "" {
		config.LogLevel = logLevel
	}

	return config, err
}

func parseFilters(pairs []string) ([]viewsync.ColumnFilter, error) {
	var parsed []viewsync.ColumnFilter
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("'%s' is not a valid filter. Must be in the form column=value", pair)
		}
		parsed = append(parsed, viewsync.ColumnFilter{Column: parts[0], Value: parts[1]})
	}
	return parsed, nil
}
