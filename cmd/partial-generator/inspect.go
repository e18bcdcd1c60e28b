package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"partial-generator/internal/plan"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [packages]",
	Short: "Show the generated schemas without writing files",
	Long: `Show, for every annotated type, the generated type, its fields with the
wrapping applied and the PartialOf links it adds.

Examples:
  partial-generator inspect ./...
  partial-generator inspect --dump ./internal/settings`,
	RunE: runInspect,
}

var inspectDump bool

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectDump, "dump", false, "dump the full plan structures")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	p := &pipeline{cfg: cfg, patterns: patterns(args), logger: logger}

	resolved, err := p.resolve(cmd.Context())
	if err != nil {
		return err
	}

	p.report(resolved.Diagnostics)

	out := cmd.OutOrStdout()

	for _, s := range resolved.Schemas {
		if inspectDump {
			dumper := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true, MaxDepth: 4}
			dumper.Fdump(out, s)

			continue
		}

		printSchema(out, s)
	}

	return resolved.Diagnostics.Error()
}

func printSchema(out io.Writer, s *plan.GeneratedSchema) {
	fmt.Fprintf(out, "%s (%s)\n", s.Source.ID, s.Shape)

	for _, l := range s.Links {
		fmt.Fprintf(out, "  %s\n", l)
	}

	for _, c := range s.Capabilities {
		fmt.Fprintf(out, "  derive %s\n", c)
	}

	if len(s.TagKeys) > 0 {
		fmt.Fprintf(out, "  tags %v\n", s.TagKeys)
	}

	printFields(out, "  ", s.Fields)

	for _, v := range s.Variants {
		fmt.Fprintf(out, "  variant %s -> %s\n", v.Source.ID.Name, v.ID.Name)
		printFields(out, "    ", v.Fields)
	}

	fmt.Fprintln(out)
}

func printFields(out io.Writer, indent string, fields []plan.GeneratedField) {
	if len(fields) == 0 {
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, f := range fields {
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\n", indent, f.Source.Name, f.Source.Type, f.Type, f.Strategy)
	}

	tw.Flush()
}
