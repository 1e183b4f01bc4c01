package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"textspot/internal/config"
	"textspot/internal/extraction"
	"textspot/internal/pipeline"
	"textspot/internal/prompt"
	"textspot/internal/providers"
	"textspot/internal/report"
)

var (
	extractInstruction  string
	extractExamplesPath string
	extractModel        string
	extractProvider     string
	extractAPIKey       string
	extractBaseURL      string
	extractChunkSize    int
	extractOverlap      int
	extractWorkers      int
	extractAttempts     int
	extractBackoff      time.Duration
	extractThreshold    float64
	extractDedupe       bool
	extractErrorMode    string
	extractScheduler    string
	extractDocID        string
	extractAttrSchema   string
	extractOutPath      string
	extractHTMLPath     string
	extractFormat       string
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Run extraction over a document",
	Long: `Run the extraction pipeline over a document.

The document is read from the given file, or from stdin when the argument
is omitted or "-". The instruction describes what to extract; examples
(a YAML or JSON file of {text, extractions} pairs) show the model the
expected output shape.

Examples:
  textspot extract book.txt -i "Extract all character names" \
    -e examples.yaml -m google/gemini-2.5-flash
  cat article.txt | textspot extract -i "Extract medication mentions" \
    -m llama3 --provider ollama
  textspot extract report.txt -i "Extract dates" -m gpt-4o \
    --provider openai --html report.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVarP(&extractInstruction, "instruction", "i", "", "what to extract, in natural language (required)")
	f.StringVarP(&extractExamplesPath, "examples", "e", "", "path to a YAML or JSON few-shot examples file")
	f.StringVarP(&extractModel, "model", "m", "", "model name (required)")
	f.StringVar(&extractProvider, "provider", "", "provider: openrouter, openai, ollama, or mock (default: inferred)")
	f.StringVar(&extractAPIKey, "api-key", "", "provider API key (default: $OPENROUTER_API_KEY or $OPENAI_API_KEY)")
	f.StringVar(&extractBaseURL, "base-url", "", "override the provider base URL")
	f.IntVar(&extractChunkSize, "chunk-size", 0, "window size in characters")
	f.IntVar(&extractOverlap, "chunk-overlap", 0, "overlap between consecutive windows")
	f.IntVar(&extractWorkers, "workers", 0, "max concurrent model invocations")
	f.IntVar(&extractAttempts, "attempts", 0, "total tries per window, including the first")
	f.DurationVar(&extractBackoff, "retry-backoff", 0, "base retry delay")
	f.Float64Var(&extractThreshold, "fuzzy-threshold", 0, "min similarity for fuzzy alignment (0..1]")
	f.BoolVar(&extractDedupe, "dedupe", false, "merge duplicate extractions across overlapping windows")
	f.StringVar(&extractErrorMode, "error-mode", "", "chunk failure handling: collect or raise")
	f.StringVar(&extractScheduler, "scheduler", "", "scheduling mode: pool or fanout")
	f.StringVar(&extractDocID, "doc-id", "", "document identifier recorded in run metadata (default: file name)")
	f.StringVar(&extractAttrSchema, "attr-schema", "", "path to a JSON schema enforced on extraction attributes")
	f.StringVarP(&extractOutPath, "out", "O", "", "write the result to this file instead of stdout")
	f.StringVar(&extractHTMLPath, "html", "", "also write an HTML report to this file")
	f.StringVarP(&extractFormat, "output", "o", "json", "result format: json or yaml")

	_ = extractCmd.MarkFlagRequired("instruction")
	_ = extractCmd.MarkFlagRequired("model")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	cfg, err := config.Load(viper.New(), cfgFile)
	if err != nil {
		return err
	}
	applyExtractFlags(cmd, cfg)

	text, docID, err := readInput(args)
	if err != nil {
		return err
	}
	if extractDocID != "" {
		docID = extractDocID
	}

	renderer := &prompt.Renderer{
		Instruction: extractInstruction,
		MaxExamples: cfg.Extract.MaxExamples,
	}
	if extractExamplesPath != "" {
		examples, err := extraction.LoadExamples(extractExamplesPath)
		if err != nil {
			return err
		}
		renderer.Examples = examples
	}

	client, err := providers.New(providers.Config{
		Provider: cfg.Provider.Name,
		Model:    cfg.Provider.Model,
		APIKey:   cfg.Provider.APIKey,
		BaseURL:  cfg.Provider.BaseURL,
		Timeout:  cfg.Provider.Timeout,
		RPM:      cfg.Provider.RPM,
	})
	if err != nil {
		return err
	}

	annotator := pipeline.New(client, renderer, cfg.Provider.Model, pipeline.Options{
		ChunkSize:      cfg.Extract.ChunkSize,
		ChunkOverlap:   cfg.Extract.ChunkOverlap,
		MaxWorkers:     cfg.Extract.Workers,
		Attempts:       cfg.Extract.Attempts,
		Backoff:        cfg.Extract.RetryBackoff,
		Temperature:    cfg.Provider.Temperature,
		FuzzyThreshold: cfg.Extract.FuzzyThreshold,
		Dedupe:         cfg.Extract.Dedupe,
		ErrorMode:      pipeline.ErrorMode(cfg.Extract.ErrorMode),
		Logger:         logger,
	})

	if extractAttrSchema != "" {
		raw, err := os.ReadFile(extractAttrSchema)
		if err != nil {
			return fmt.Errorf("failed to read attribute schema: %w", err)
		}
		if err := annotator.SetAttributeSchema(raw); err != nil {
			return err
		}
	}

	doc := extraction.Document{ID: docID, Text: text}

	logger.Info("starting extraction",
		"provider", client.Name(),
		"model", cfg.Provider.Model,
		"chars", len([]rune(text)),
		"scheduler", cfg.Extract.Scheduler,
	)

	var result *extraction.Result
	switch cfg.Extract.Scheduler {
	case "fanout":
		result, err = annotator.RunFanOut(ctx, doc)
	default:
		result, err = annotator.Run(ctx, doc)
	}
	if err != nil {
		return err
	}

	logger.Info("extraction complete",
		"extractions", len(result.Extractions),
		"chunk_errors", len(result.Errors),
	)

	if err := writeResult(result, extractFormat, extractOutPath); err != nil {
		return err
	}

	if extractHTMLPath != "" {
		html, err := report.HTML(result)
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		if err := os.WriteFile(extractHTMLPath, []byte(html), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logger.Info("wrote HTML report", "path", extractHTMLPath)
	}
	return nil
}

// applyExtractFlags layers explicitly set flags over the loaded config.
func applyExtractFlags(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed

	if set("provider") {
		cfg.Provider.Name = extractProvider
	}
	if set("model") {
		cfg.Provider.Model = extractModel
	}
	if set("api-key") {
		cfg.Provider.APIKey = extractAPIKey
	}
	if set("base-url") {
		cfg.Provider.BaseURL = extractBaseURL
	}
	if set("chunk-size") {
		cfg.Extract.ChunkSize = extractChunkSize
	}
	if set("chunk-overlap") {
		cfg.Extract.ChunkOverlap = extractOverlap
	}
	if set("workers") {
		cfg.Extract.Workers = extractWorkers
	}
	if set("attempts") {
		cfg.Extract.Attempts = extractAttempts
	}
	if set("retry-backoff") {
		cfg.Extract.RetryBackoff = extractBackoff
	}
	if set("fuzzy-threshold") {
		cfg.Extract.FuzzyThreshold = extractThreshold
	}
	if set("dedupe") {
		cfg.Extract.Dedupe = extractDedupe
	}
	if set("error-mode") {
		cfg.Extract.ErrorMode = extractErrorMode
	}
	if set("scheduler") {
		cfg.Extract.Scheduler = extractScheduler
	}

	// Common provider key env vars as a convenience fallback.
	if cfg.Provider.APIKey == "" {
		if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
			cfg.Provider.APIKey = key
		} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Provider.APIKey = key
		}
	}
}

// readInput returns the document text and a default document ID. A missing
// argument or "-" reads stdin.
func readInput(args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), "", nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("failed to read input file: %w", err)
	}
	name := filepath.Base(args[0])
	return string(data), strings.TrimSuffix(name, filepath.Ext(name)), nil
}

// writeResult marshals the result as JSON or YAML to the given path, or
// stdout when the path is empty.
func writeResult(result *extraction.Result, format, path string) error {
	var data []byte
	var err error
	switch strings.ToLower(format) {
	case "yaml", "yml":
		data, err = yaml.Marshal(result)
	case "json", "":
		data, err = json.MarshalIndent(result, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("unknown output format %q (supported: json, yaml)", format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
