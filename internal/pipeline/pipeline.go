// Package pipeline orchestrates extraction over a document: it splits the
// text into overlapping windows, fans windows out to the model under a
// concurrency bound, parses and aligns each window's output, stitches
// window-local offsets into document-global offsets, and merges the results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"textspot/internal/align"
	"textspot/internal/chunk"
	"textspot/internal/extraction"
	"textspot/internal/parse"
	"textspot/internal/prompt"
	"textspot/internal/providers"
)

// ErrChunkFailed wraps the chunk failure propagated in raise mode.
var ErrChunkFailed = errors.New("chunk failed")

// ErrorMode controls how chunk failures propagate.
type ErrorMode string

const (
	// CollectErrors continues past chunk failures and surfaces them all in
	// the final result. The run always returns a best-effort result.
	CollectErrors ErrorMode = "collect"
	// RaiseErrors aborts on the first chunk failure, in completion order,
	// and propagates it to the caller with no partial result.
	RaiseErrors ErrorMode = "raise"
)

// Defaults applied by Options when fields are zero.
const (
	DefaultChunkSize    = 4000
	DefaultChunkOverlap = 200
	DefaultMaxWorkers   = 10
	DefaultAttempts     = 2
	DefaultBackoff      = time.Second
)

// Options configures a pipeline run.
type Options struct {
	ChunkSize int
	// ChunkOverlap of zero means disjoint windows. The overlap default
	// applies only when ChunkSize is also unset.
	ChunkOverlap int
	// DropTrailing discards a final window shorter than ChunkSize (the
	// first window is always kept).
	DropTrailing bool

	// MaxWorkers bounds concurrent model invocations in both scheduling
	// modes.
	MaxWorkers int

	// Attempts is the total number of tries per window, including the
	// first. Only transient invocation failures are retried.
	Attempts int
	// Backoff is the base retry delay; the actual delay is
	// Backoff * 2^attempt plus a small random jitter.
	Backoff time.Duration

	// Temperature is passed through to the provider on every request.
	Temperature float64

	FuzzyThreshold float64
	Dedupe         bool
	ErrorMode      ErrorMode

	// Logger receives structured pipeline events. Nil means slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
		if o.ChunkOverlap == 0 {
			o.ChunkOverlap = DefaultChunkOverlap
		}
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = DefaultMaxWorkers
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	if o.ErrorMode == "" {
		o.ErrorMode = CollectErrors
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Annotator runs the chunk-dispatch-parse-align-merge pipeline against one
// provider and one prompt renderer. It is safe for concurrent use.
type Annotator struct {
	client    providers.Client
	renderer  *prompt.Renderer
	validator *extraction.Validator
	model     string
	opts      Options
}

// New creates an Annotator. The model name is recorded in run metadata and
// passed through to the provider on each request.
func New(client providers.Client, renderer *prompt.Renderer, model string, opts Options) *Annotator {
	opts = opts.withDefaults()
	return &Annotator{
		client:    client,
		renderer:  renderer,
		validator: extraction.NewValidator(opts.Logger),
		model:     model,
		opts:      opts,
	}
}

// SetAttributeSchema installs an optional JSON schema enforced on each
// extraction's attributes.
func (a *Annotator) SetAttributeSchema(raw []byte) error {
	return a.validator.SetAttributeSchema(raw)
}

// chunkResult is one window's outcome, routed back to the collector.
type chunkResult struct {
	index       int
	startChar   int
	extractions []extraction.Extraction
	err         error
}

// Run executes the pipeline using a fixed-size worker pool: MaxWorkers
// goroutines pull windows from a shared queue. See RunFanOut for the
// gate-bounded variant; both produce identical results.
func (a *Annotator) Run(ctx context.Context, doc extraction.Document) (*extraction.Result, error) {
	chunks, err := a.split(doc)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return a.assemble(doc, nil, nil, 0), nil
	}

	results := make(chan chunkResult, len(chunks))
	jobs := make(chan int)
	workers := min(a.opts.MaxWorkers, len(chunks))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				exts, err := a.processChunk(ctx, idx, chunks[idx])
				results <- chunkResult{index: idx, startChar: chunks[idx].StartChar, extractions: exts, err: err}
			}
		}()
	}
	go func() {
		for i := range chunks {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	return a.collect(doc, len(chunks), results)
}

// RunFanOut executes the pipeline with one goroutine per window, admission
// bounded by a counting gate of MaxWorkers. All window tasks are created up
// front and joined; the model invocation is the only blocking point.
func (a *Annotator) RunFanOut(ctx context.Context, doc extraction.Document) (*extraction.Result, error) {
	chunks, err := a.split(doc)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return a.assemble(doc, nil, nil, 0), nil
	}

	results := make(chan chunkResult, len(chunks))
	gate := make(chan struct{}, a.opts.MaxWorkers)

	var wg sync.WaitGroup
	for idx, c := range chunks {
		wg.Add(1)
		go func(idx int, c chunk.Chunk) {
			defer wg.Done()
			gate <- struct{}{}
			defer func() { <-gate }()
			exts, err := a.processChunk(ctx, idx, c)
			results <- chunkResult{index: idx, startChar: c.StartChar, extractions: exts, err: err}
		}(idx, c)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	return a.collect(doc, len(chunks), results)
}

func (a *Annotator) split(doc extraction.Document) ([]chunk.Chunk, error) {
	seq, err := chunk.Split(doc.Text, a.opts.ChunkSize, a.opts.ChunkOverlap, !a.opts.DropTrailing)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// processChunk handles one window: render the prompt, invoke the model with
// retries, then normalize, validate, and align the output. Intervals in the
// returned extractions are window-local.
//
// Prompt rendering failures are not retried; they indicate malformed example
// data rather than a transient fault. Likewise a non-textual response is a
// shape fault and surfaces after a single attempt.
func (a *Annotator) processChunk(ctx context.Context, index int, c chunk.Chunk) ([]extraction.Extraction, error) {
	rendered, err := a.renderer.Render(c.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt for chunk %d: %w", index, err)
	}

	var exts []extraction.Extraction
	err = retry.Do(
		func() error {
			res, err := a.client.Chat(ctx, &providers.ChatRequest{
				Prompt:      rendered,
				Model:       a.model,
				Temperature: a.opts.Temperature,
			})
			if err != nil {
				return err
			}

			candidates := parse.Normalize(res.Content)
			if candidates == nil {
				// Malformed output is data, not a pipeline fault: the
				// chunk contributes zero extractions.
				a.opts.Logger.Warn("no extraction list found in model output",
					"chunk", index, "output", truncate(res.Content, 200))
			}

			valid := a.validator.Apply(candidates)
			exts = align.Extractions(valid, c.Text, align.Options{
				FuzzyThreshold: a.opts.FuzzyThreshold,
				Logger:         a.opts.Logger,
			})
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(a.opts.Attempts)),
		retry.Delay(a.opts.Backoff),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(100*time.Millisecond),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, providers.ErrNonTextualContent)
		}),
		retry.OnRetry(func(attempt uint, err error) {
			a.opts.Logger.Warn("chunk attempt failed",
				"chunk", index, "attempt", attempt+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return exts, nil
}

// collect drains chunk results as they complete, globalizes offsets, and
// assembles the final result. In raise mode the first failure is returned
// after the remaining in-flight chunks drain; there is no mid-call
// cancellation of sibling invocations.
func (a *Annotator) collect(doc extraction.Document, numChunks int, results <-chan chunkResult) (*extraction.Result, error) {
	var all []extraction.Extraction
	var chunkErrs []extraction.ChunkError
	var raised error

	for res := range results {
		if res.err != nil {
			a.opts.Logger.Warn("chunk failed", "chunk", res.index, "error", res.err)
			chunkErrs = append(chunkErrs, extraction.ChunkError{
				ChunkIndex: res.index,
				Message:    res.err.Error(),
			})
			if a.opts.ErrorMode == RaiseErrors && raised == nil {
				raised = fmt.Errorf("%w: chunk %d: %w", ErrChunkFailed, res.index, res.err)
			}
			continue
		}
		for _, ext := range res.extractions {
			all = append(all, ext.Shifted(res.startChar))
		}
	}

	if raised != nil {
		return nil, raised
	}
	return a.assemble(doc, all, chunkErrs, numChunks), nil
}

func (a *Annotator) assemble(doc extraction.Document, exts []extraction.Extraction, chunkErrs []extraction.ChunkError, numChunks int) *extraction.Result {
	if a.opts.Dedupe {
		exts = Dedupe(exts)
	}

	metadata := map[string]any{
		"run_id":          uuid.NewString(),
		"model_name":      a.model,
		"provider":        a.client.Name(),
		"chunk_size":      a.opts.ChunkSize,
		"chunk_overlap":   a.opts.ChunkOverlap,
		"num_chunks":      numChunks,
		"num_extractions": len(exts),
	}
	if doc.ID != "" {
		metadata["doc_id"] = doc.ID
	}

	return &extraction.Result{
		Text:        doc.Text,
		Extractions: exts,
		Metadata:    metadata,
		Errors:      chunkErrs,
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
