package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/magharvest/magharvest/internal/model"
)

// NewThemesCmd creates the themes command.
func NewThemesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List crawlable themes",
		Long:  `Themes lists the board catalog with each theme's id and whether it supports the heat-ordered (hot) listing.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tHOT MODE")
			for _, theme := range model.Themes() {
				hot := "-"
				if theme.SupportsHot() {
					hot = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", theme.ID, theme.Name, hot)
			}
			return tw.Flush()
		},
	}
}
