package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured publication sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		scorer, err := initScorer()
		if err != nil {
			return err
		}
		registry, err := buildRegistry(scorer)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE")
		for _, name := range registry.Names() {
			fmt.Fprintln(w, name)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
