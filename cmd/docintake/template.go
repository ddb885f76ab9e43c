package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/internal/export"
	"github.com/joseph-ayodele/docintake/internal/schema"
)

var templateCmd = &cobra.Command{
	Use:   "template [schema-id]",
	Short: "Produce an import template for a target schema",
	Long: `Template writes a delimited file with a header row and illustrative
sample rows typed per field. The output format follows the file extension:
.xlsx gives a workbook, anything else a CSV.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		schemaID := args[0]

		if out == "" {
			out = schemaID + "_template.csv"
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		svc := export.NewService(logger)

		var (
			data []byte
			err  error
		)
		if strings.EqualFold(filepath.Ext(out), ".xlsx") {
			data, err = svc.TemplateXLSX(schemaID)
		} else {
			data, err = svc.TemplateCSV(schemaID)
		}
		if err != nil {
			return err
		}

		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Printf("wrote %s (%d bytes)\n", out, len(data))
		return nil
	},
}

var templateListCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List the builtin target schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range schema.IDs() {
			target, err := schema.ByID(id)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s (%d fields, %d required)\n",
				id, target.Name, len(target.Fields), len(target.RequiredFields()))
		}
		return nil
	},
}

func init() {
	templateCmd.Flags().String("out", "", "output path (.csv or .xlsx)")

	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(templateListCmd)
}
