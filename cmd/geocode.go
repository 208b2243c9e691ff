package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ibebio/herb-transcribe/internal/geocode"
)

func newGeocodeCmd(root *rootOptions) *cobra.Command {
	var (
		apiKey  string
		country string
	)

	cmd := &cobra.Command{
		Use:   "geocode INPUT_JSON OUTPUT_JSON",
		Short: "Add Google Maps geocoding results to a transcription",
		Long: `Looks up the transcription's geographic information and district with
the Google Maps Geocoding API and writes the record with the response
stored under "geocoding". If the lookup fails the record is written
unchanged.`,
		Example: `  herb-transcribe geocode transcriptions/IMG_1.SRGH_1.json geocoded/IMG_1.SRGH_1.json --api-key $GOOGLE_MAPS_API_KEY`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("api-key") {
				cfg.Geocode.APIKey = apiKey
			}
			if cmd.Flags().Changed("country") {
				cfg.Geocode.Country = country
			}

			if cfg.Geocode.APIKey == "" {
				return errors.New("a Google Maps API key is required (--api-key or GOOGLE_MAPS_API_KEY)")
			}

			client := geocode.New(geocode.Settings{
				APIKey:  cfg.Geocode.APIKey,
				BaseURL: cfg.Geocode.BaseURL,
			})
			_, err = geocode.Enrich(cmd.Context(), client, args[0], args[1], cfg.Geocode.Country)
			return err
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "Google Maps Geocoding API key (or GOOGLE_MAPS_API_KEY)")
	cmd.Flags().StringVar(&country, "country", geocode.DefaultCountry, "Country appended to every query")

	return cmd
}
