package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/review"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file...]",
	Short: "Extract a structured record from text content",
	Long: `Extract reads text content (an email body, OCR output) and produces a
confidence-scored record for the given document type. Multiple files are
treated as pages of one document and merged.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docType, _ := cmd.Flags().GetString("type")
		actor, _ := cmd.Flags().GetString("actor")

		pages := make([]string, 0, len(args))
		for _, path := range args {
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			pages = append(pages, string(b))
		}

		s := buildStack()
		var err error
		result := struct {
			Result      any    `json:"result"`
			Disposition string `json:"disposition"`
		}{}

		if len(pages) == 1 {
			res, exErr := s.engine.Extract(cmd.Context(), pages[0], constants.DocumentType(docType), actor)
			err = exErr
			result.Result = res
			result.Disposition = string(review.Route(res))
		} else {
			res, exErr := s.engine.ExtractPages(cmd.Context(), pages, constants.DocumentType(docType), actor)
			err = exErr
			result.Result = res
			result.Disposition = string(review.Route(res))
		}
		if err != nil {
			return err
		}

		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	extractCmd.Flags().String("type", string(constants.DocTypeDBSCertificate), "document type (dbs_certificate, donation, expense_receipt)")
	extractCmd.Flags().String("actor", "cli", "actor id for rate limiting")

	rootCmd.AddCommand(extractCmd)
}
