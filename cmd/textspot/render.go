package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"textspot/internal/extraction"
	"textspot/internal/report"
)

var renderOutPath string

var renderCmd = &cobra.Command{
	Use:   "render <result.json> [result.json...]",
	Short: "Render saved extraction results as an HTML report",
	Long: `Render one or more saved extraction results as a standalone HTML report.

Each input file is a JSON result produced by 'textspot extract'. Results
from multiple documents or models appear as selectable views in the report.

Example:
  textspot render book.json article.json -O report.html`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results := make([]*extraction.Result, 0, len(args))
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			var res extraction.Result
			if err := json.Unmarshal(data, &res); err != nil {
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}
			results = append(results, &res)
		}

		html, err := report.HTML(results...)
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}

		if renderOutPath == "" {
			_, err = os.Stdout.WriteString(html)
			return err
		}
		if err := os.WriteFile(renderOutPath, []byte(html), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Wrote report to %s\n", renderOutPath)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutPath, "out", "O", "", "write the report to this file instead of stdout")

	rootCmd.AddCommand(renderCmd)
}
