package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/conjoint-cli/internal/pipeline"
)

var (
	geocodeIn  string
	geocodeOut string
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Add each respondent's state to the raw export by reverse geocoding",
	Long:  "Looks up respondent coordinates on a Nominatim endpoint at the configured rate and writes the export with an extra state column. The output is UTF-8.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in := geocodeIn
		if in == "" {
			in = cfg.Data.Raw
		}
		p := pipeline.New(cfg)
		return runTask(cmd, p.GeocodeTask(pipeline.NewGeocoder(cfg.Geocode), in, geocodeOut))
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeIn, "in", "", "raw export to annotate (defaults to data.raw)")
	geocodeCmd.Flags().StringVar(&geocodeOut, "out", "", "path of the annotated export (required)")
	_ = geocodeCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(geocodeCmd)
}
