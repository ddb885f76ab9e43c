package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/internal/mapping"
	"github.com/joseph-ayodele/docintake/internal/schema"
	"github.com/joseph-ayodele/docintake/internal/tabular"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Parse a delimited file and map it onto a target schema",
	Long: `Import parses a delimited file (first row = headers), infers a semantic
type per column, and maps the columns onto the target schema. When every
required field maps, the transformed records are printed too; otherwise the
mapping is printed with its missing required fields so it can be completed
manually.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaID, _ := cmd.Flags().GetString("schema")
		delimiter, _ := cmd.Flags().GetString("delimiter")
		actor, _ := cmd.Flags().GetString("actor")

		target, err := schema.ByID(schemaID)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		var delim rune
		if delimiter != "" {
			delim = []rune(delimiter)[0]
		}
		parsed, err := tabular.Parse(data, delim)
		if err != nil {
			return err
		}

		s := buildStack()
		colMapping := s.mapper.MapColumns(cmd.Context(), parsed, target, actor)

		out := struct {
			Headers   []string                        `json:"headers"`
			RowCount  int                             `json:"row_count"`
			DataTypes map[string]tabular.DataTypeInfo `json:"data_types"`
			Mapping   any                             `json:"mapping"`
			Records   []map[string]string             `json:"records,omitempty"`
		}{
			Headers:   parsed.Headers,
			RowCount:  parsed.RowCount,
			DataTypes: parsed.DataTypes,
			Mapping:   colMapping,
		}
		if colMapping.Valid() {
			out.Records = mapping.Transform(parsed, &colMapping)
		}

		b, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(b))
		return nil
	},
}

func init() {
	importCmd.Flags().String("schema", "dbs_check", "target schema id (dbs_check, donation, expense_receipt)")
	importCmd.Flags().String("delimiter", "", "field delimiter (default comma)")
	importCmd.Flags().String("actor", "cli", "actor id for rate limiting")

	rootCmd.AddCommand(importCmd)
}
