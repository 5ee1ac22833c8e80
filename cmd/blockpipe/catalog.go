package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/meikuraledutech/blockpipe/catalog"
	"github.com/spf13/cobra"
)

var catalogFlags struct {
	path string
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the stages a workspace can use",
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().StringVar(&catalogFlags.path, "catalog", "", "YAML stage catalog (default: built-in)")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(path)
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	cat, err := loadCatalog(catalogFlags.path)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCOMPONENT\tARGS\tROLE")
	for _, s := range cat.Stages() {
		role := "-"
		switch {
		case s.SourceOnly:
			role = "source"
		case s.SinkOnly:
			role = "sink"
		}
		args := "-"
		if len(s.Args) > 0 {
			args = strings.Join(s.Args, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Component, args, role)
	}
	return tw.Flush()
}
