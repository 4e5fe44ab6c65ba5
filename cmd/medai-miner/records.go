package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/medai-miner/internal/store"
	"github.com/pdiddy/medai-miner/pkg/types"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List, export and inspect stored records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records as a table",
	RunE:  runRecordsList,
}

var recordsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write records as YAML or JSON",
	RunE:  runRecordsExport,
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one record as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsShow,
}

func init() {
	for _, c := range []*cobra.Command{recordsListCmd, recordsExportCmd} {
		c.Flags().String("classification", "", "only records in this state (unclassified, keep, remove)")
		c.Flags().String("id-prefix", "", `only records whose id starts with this prefix (e.g. "pubmed:")`)
		c.Flags().Bool("missing-metadata", false, "only records whose metadata is not enriched")
		c.Flags().Int("offset", 0, "skip this many matching records")
		c.Flags().Int("limit", 0, "at most this many records (0 means all)")
	}
	recordsExportCmd.Flags().String("format", store.FormatYAML, "output format: yaml or json")
	recordsExportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	recordsCmd.AddCommand(recordsListCmd, recordsExportCmd, recordsShowCmd)
	rootCmd.AddCommand(recordsCmd)
}

func recordFilter(cmd *cobra.Command) (store.Filter, error) {
	var f store.Filter
	class, _ := cmd.Flags().GetString("classification")
	if class != "" {
		f.Classification = types.Classification(class)
		if !f.Classification.Valid() {
			return f, eris.Errorf("unknown classification %q", class)
		}
	}
	f.IDPrefix, _ = cmd.Flags().GetString("id-prefix")
	f.MissingMetadata, _ = cmd.Flags().GetBool("missing-metadata")
	f.Offset, _ = cmd.Flags().GetInt("offset")
	f.Limit, _ = cmd.Flags().GetInt("limit")
	return f, nil
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	f, err := recordFilter(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListRecords(ctx, f)
	if err != nil {
		return err
	}
	writeRecordTable(cmd.OutOrStdout(), records)
	return nil
}

func writeRecordTable(w io.Writer, records []types.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLASS\tMETADATA\tSPECIALTY\tARCHITECTURE\tTITLE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Classification, r.MetadataStatus, orDash(string(r.Specialty)), orDash(r.Architecture), shorten(r.Title, 60))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d records\n", len(records))
}

func runRecordsExport(cmd *cobra.Command, args []string) error {
	f, err := recordFilter(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	w := cmd.OutOrStdout()
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return eris.Wrap(err, "creating export file")
		}
		defer file.Close()
		w = file
	}

	n, err := store.Export(ctx, st, f, format, w)
	if err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", n, output)
	}
	return nil
}

func runRecordsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.GetRecord(ctx, args[0])
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return eris.Wrap(err, "marshaling record")
	}
	return enc.Close()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
