package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spycats/internal/config"
)

var breedsCmd = &cobra.Command{
	Use:   "breeds",
	Short: "List breed names accepted by the catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		names, err := newCatalog(cfg).FetchBreedNames(cmd.Context())
		if err != nil {
			return err
		}
		sort.Strings(names)
		out := cmd.OutOrStdout()
		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Fprintf(out, "%s %d breeds\n", cyan("catalog:"), len(names))
		for _, name := range names {
			fmt.Fprintf(out, "  %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(breedsCmd)
}
