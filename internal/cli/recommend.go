package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	viewsync "github.com/terraguard/viewsync"
)

var (
	recommendationURL string
	generate          bool
)

func init() {
	recommendCmd.Flags().StringVarP(&recommendationURL, "service-url", "u", "", "base URL of the recommendation service")
	recommendCmd.Flags().BoolVarP(&generate, "generate", "g", false, "generate fresh recommendations instead of fetching stored ones")
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <location-id>",
	Short: "Fetch recommendations for a location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := parseConfig()
		if err != nil {
			return err
		}

		url := recommendationURL
		if url == "" {
			url = config.RecommendationServiceURL
		}
		if url == "" {
			return errors.New("no recommendation service URL configured")
		}

		client := viewsync.NewRecommendationClient(url)

		var recs []viewsync.Recommendation
		if generate {
			recs, err = client.Generate(context.Background(), args[0])
		} else {
			recs, err = client.Fetch(context.Background(), args[0])
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	},
}
