package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"textspot/internal/extraction"
	"textspot/internal/prompt"
	"textspot/internal/providers"
)

// extractorFor builds a Responder that reports every occurrence of each word
// found in the prompt's task text, as a canonical extractions object.
func extractorFor(class string, words ...string) func(string) (string, error) {
	return func(p string) (string, error) {
		// The window text is the last '''-quoted block in the prompt.
		parts := strings.Split(p, "'''")
		if len(parts) < 3 {
			return "", fmt.Errorf("prompt has no task text")
		}
		windowText := parts[len(parts)-2]

		type rec struct {
			Class string `json:"extraction_class"`
			Text  string `json:"extraction_text"`
		}
		var recs []rec
		for _, w := range words {
			if strings.Contains(windowText, w) {
				recs = append(recs, rec{Class: class, Text: w})
			}
		}
		out, err := json.Marshal(map[string]any{"extractions": recs})
		return string(out), err
	}
}

func newTestAnnotator(client providers.Client, opts Options) *Annotator {
	renderer := &prompt.Renderer{Instruction: "find the names"}
	return New(client, renderer, "test-model", opts)
}

func TestRun(t *testing.T) {
	t.Run("single chunk produces global offsets", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Responder = extractorFor("name", "Garen")

		a := newTestAnnotator(mock, Options{ChunkSize: 1000, ChunkOverlap: 0})
		res, err := a.Run(context.Background(), extraction.Document{Text: "Garen fought at the gates."})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if len(res.Extractions) != 1 {
			t.Fatalf("expected 1 extraction, got %d", len(res.Extractions))
		}
		iv := res.Extractions[0].Interval
		if iv == nil || iv.Start != 0 || iv.End != 5 {
			t.Errorf("interval = %+v, want [0, 5)", iv)
		}
	})

	t.Run("later chunk offsets include the window start", func(t *testing.T) {
		// "Dragon" lives entirely in the second window.
		text := strings.Repeat("x", 40) + " Dragon roams here"
		mock := providers.NewMockClient()
		mock.Responder = extractorFor("beast", "Dragon")

		a := newTestAnnotator(mock, Options{ChunkSize: 30, ChunkOverlap: 5})
		res, err := a.Run(context.Background(), extraction.Document{Text: text})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		var located []extraction.Extraction
		for _, e := range res.Extractions {
			if e.Interval != nil {
				located = append(located, e)
			}
		}
		if len(located) == 0 {
			t.Fatal("expected at least one located extraction")
		}
		runes := []rune(text)
		for _, e := range located {
			span := string(runes[e.Interval.Start:e.Interval.End])
			if span != "Dragon" {
				t.Errorf("global interval [%d, %d) selects %q, want %q",
					e.Interval.Start, e.Interval.End, span, "Dragon")
			}
		}
	})

	t.Run("overlap duplicates merge under dedupe", func(t *testing.T) {
		// Place the target inside the overlap so two windows both report it.
		text := strings.Repeat("a", 25) + "Dragon's Eye" + strings.Repeat("b", 25)
		mock := providers.NewMockClient()
		mock.Responder = extractorFor("artifact", "Dragon's Eye")

		a := newTestAnnotator(mock, Options{ChunkSize: 40, ChunkOverlap: 20, Dedupe: true})
		res, err := a.Run(context.Background(), extraction.Document{Text: text})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if len(res.Extractions) != 1 {
			t.Fatalf("expected 1 extraction after dedupe, got %d", len(res.Extractions))
		}
		iv := res.Extractions[0].Interval
		if iv == nil || iv.Start != 25 {
			t.Errorf("interval = %+v, want start 25", iv)
		}
	})

	t.Run("empty document yields empty result", func(t *testing.T) {
		mock := providers.NewMockClient()
		a := newTestAnnotator(mock, Options{})

		res, err := a.Run(context.Background(), extraction.Document{Text: ""})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(res.Extractions) != 0 {
			t.Errorf("expected 0 extractions, got %d", len(res.Extractions))
		}
		if res.Metadata["num_chunks"] != 0 {
			t.Errorf("num_chunks = %v, want 0", res.Metadata["num_chunks"])
		}
		if mock.RequestCount() != 0 {
			t.Errorf("expected no model calls, got %d", mock.RequestCount())
		}
	})

	t.Run("metadata records the run parameters", func(t *testing.T) {
		mock := providers.NewMockClient()
		a := newTestAnnotator(mock, Options{ChunkSize: 100, ChunkOverlap: 10})

		res, err := a.Run(context.Background(), extraction.Document{ID: "doc-1", Text: "short text"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if res.Metadata["model_name"] != "test-model" {
			t.Errorf("model_name = %v", res.Metadata["model_name"])
		}
		if res.Metadata["provider"] != providers.MockClientName {
			t.Errorf("provider = %v", res.Metadata["provider"])
		}
		if res.Metadata["chunk_size"] != 100 || res.Metadata["chunk_overlap"] != 10 {
			t.Errorf("chunk params = %v / %v", res.Metadata["chunk_size"], res.Metadata["chunk_overlap"])
		}
		if res.Metadata["doc_id"] != "doc-1" {
			t.Errorf("doc_id = %v", res.Metadata["doc_id"])
		}
		if res.Metadata["run_id"] == "" {
			t.Error("run_id missing")
		}
	})

	t.Run("invalid chunk config fails before any model call", func(t *testing.T) {
		mock := providers.NewMockClient()
		a := newTestAnnotator(mock, Options{ChunkSize: 10, ChunkOverlap: 10})

		_, err := a.Run(context.Background(), extraction.Document{Text: "some text"})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if mock.RequestCount() != 0 {
			t.Errorf("expected no model calls, got %d", mock.RequestCount())
		}
	})
}

func TestRunErrorModes(t *testing.T) {
	t.Run("collect mode surfaces chunk errors in the result", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ShouldFail = true

		a := newTestAnnotator(mock, Options{
			ChunkSize: 10, ChunkOverlap: 2,
			Attempts: 1, Backoff: time.Millisecond,
			ErrorMode: CollectErrors,
		})
		res, err := a.Run(context.Background(), extraction.Document{Text: strings.Repeat("w", 30)})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if len(res.Errors) == 0 {
			t.Fatal("expected chunk errors in result")
		}
		if len(res.Extractions) != 0 {
			t.Errorf("expected 0 extractions, got %d", len(res.Extractions))
		}
	})

	t.Run("raise mode propagates the failure", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ShouldFail = true

		a := newTestAnnotator(mock, Options{
			Attempts: 1, Backoff: time.Millisecond,
			ErrorMode: RaiseErrors,
		})
		res, err := a.Run(context.Background(), extraction.Document{Text: "some text"})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !errors.Is(err, ErrChunkFailed) {
			t.Errorf("expected ErrChunkFailed, got %v", err)
		}
		if res != nil {
			t.Errorf("expected nil result, got %+v", res)
		}
	})
}

func TestRunRetry(t *testing.T) {
	t.Run("transient failure retried to success", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.FailFirst = 1
		mock.Responder = extractorFor("name", "Ada")

		a := newTestAnnotator(mock, Options{Attempts: 2, Backoff: time.Millisecond})
		res, err := a.Run(context.Background(), extraction.Document{Text: "Ada wrote the first program."})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if mock.RequestCount() != 2 {
			t.Errorf("expected 2 attempts, got %d", mock.RequestCount())
		}
		if len(res.Extractions) != 1 {
			t.Errorf("expected 1 extraction, got %d", len(res.Extractions))
		}
		if len(res.Errors) != 0 {
			t.Errorf("expected no chunk errors, got %v", res.Errors)
		}
	})

	t.Run("attempts are exhausted on persistent failure", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ShouldFail = true

		a := newTestAnnotator(mock, Options{Attempts: 3, Backoff: time.Millisecond})
		res, err := a.Run(context.Background(), extraction.Document{Text: "text"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if mock.RequestCount() != 3 {
			t.Errorf("expected 3 attempts, got %d", mock.RequestCount())
		}
		if len(res.Errors) != 1 {
			t.Errorf("expected 1 chunk error, got %d", len(res.Errors))
		}
	})

	t.Run("non-textual content is not retried", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.NonTextual = true

		a := newTestAnnotator(mock, Options{Attempts: 3, Backoff: time.Millisecond})
		res, err := a.Run(context.Background(), extraction.Document{Text: "text"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if mock.RequestCount() != 1 {
			t.Errorf("expected 1 attempt for shape fault, got %d", mock.RequestCount())
		}
		if len(res.Errors) != 1 {
			t.Fatalf("expected 1 chunk error, got %d", len(res.Errors))
		}
		if !strings.Contains(res.Errors[0].Message, providers.ErrNonTextualContent.Error()) {
			t.Errorf("error message %q does not mention non-textual content", res.Errors[0].Message)
		}
	})

	t.Run("malformed output contributes zero extractions without error", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "I could not find anything, sorry!"

		a := newTestAnnotator(mock, Options{Attempts: 2, Backoff: time.Millisecond})
		res, err := a.Run(context.Background(), extraction.Document{Text: "text"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if mock.RequestCount() != 1 {
			t.Errorf("expected 1 attempt, got %d", mock.RequestCount())
		}
		if len(res.Extractions) != 0 || len(res.Errors) != 0 {
			t.Errorf("got %d extractions, %d errors", len(res.Extractions), len(res.Errors))
		}
	})

	t.Run("context cancellation aborts the run", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Latency = 5 * time.Second

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		a := newTestAnnotator(mock, Options{ErrorMode: RaiseErrors})
		_, err := a.Run(ctx, extraction.Document{Text: "text"})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRunFanOut(t *testing.T) {
	t.Run("matches worker pool results", func(t *testing.T) {
		text := "Ada and Grace met Alan at the conference in Ada's office."
		for _, words := range [][]string{{"Ada", "Grace", "Alan"}} {
			poolMock := providers.NewMockClient()
			poolMock.Responder = extractorFor("name", words...)
			fanMock := providers.NewMockClient()
			fanMock.Responder = extractorFor("name", words...)

			opts := Options{ChunkSize: 20, ChunkOverlap: 5, Dedupe: true}
			pool, err := newTestAnnotator(poolMock, opts).Run(context.Background(), extraction.Document{Text: text})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			fan, err := newTestAnnotator(fanMock, opts).RunFanOut(context.Background(), extraction.Document{Text: text})
			if err != nil {
				t.Fatalf("RunFanOut() error = %v", err)
			}

			if len(pool.Extractions) != len(fan.Extractions) {
				t.Errorf("pool found %d extractions, fanout %d", len(pool.Extractions), len(fan.Extractions))
			}
		}
	})

	t.Run("concurrency stays within the bound", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Latency = 30 * time.Millisecond

		a := newTestAnnotator(mock, Options{ChunkSize: 5, ChunkOverlap: 0, MaxWorkers: 2})
		start := time.Now()
		_, err := a.RunFanOut(context.Background(), extraction.Document{Text: strings.Repeat("q", 30)})
		if err != nil {
			t.Fatalf("RunFanOut() error = %v", err)
		}

		// 6 chunks, 2 workers, 30ms each: at least 3 waves.
		if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
			t.Errorf("6 chunks at 2 workers finished in %v, bound not enforced", elapsed)
		}
	})
}

func TestOptionsDefaults(t *testing.T) {
	t.Run("zero values take defaults", func(t *testing.T) {
		opts := Options{}.withDefaults()
		if opts.ChunkSize != DefaultChunkSize {
			t.Errorf("ChunkSize = %d, want %d", opts.ChunkSize, DefaultChunkSize)
		}
		if opts.ChunkOverlap != DefaultChunkOverlap {
			t.Errorf("ChunkOverlap = %d, want %d", opts.ChunkOverlap, DefaultChunkOverlap)
		}
		if opts.MaxWorkers != DefaultMaxWorkers {
			t.Errorf("MaxWorkers = %d, want %d", opts.MaxWorkers, DefaultMaxWorkers)
		}
	})

	t.Run("explicit zero overlap survives a set chunk size", func(t *testing.T) {
		opts := Options{ChunkSize: 5, ChunkOverlap: 0}.withDefaults()
		if opts.ChunkOverlap != 0 {
			t.Errorf("ChunkOverlap = %d, want 0", opts.ChunkOverlap)
		}
		if opts.ChunkSize != 5 {
			t.Errorf("ChunkSize = %d, want 5", opts.ChunkSize)
		}
	})
}
