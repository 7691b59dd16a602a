// Package asr wraps an external long-running speech recognition engine.
// Submitting audio yields an Operation that emits best-effort progress and
// exactly one outcome: a structured result or an error.
package asr

import (
	"context"
	"sync"
)

// Config is the fixed recognition configuration for a submission.
type Config struct {
	LanguageCode               string
	EnableWordTimeOffsets      bool
	EnableAutomaticPunctuation bool
}

// DefaultConfig matches what the transcript pipeline always asks for:
// word-level time offsets so the transcript can be time-aligned, and
// automatic punctuation for readable text.
func DefaultConfig() Config {
	return Config{
		LanguageCode:               "en-US",
		EnableWordTimeOffsets:      true,
		EnableAutomaticPunctuation: true,
	}
}

// Offset is a point in the audio as whole seconds plus a sub-second
// fraction in nanoseconds. The fraction is zero when the engine omits it.
type Offset struct {
	Seconds int64 `json:"seconds,omitempty"`
	Nanos   int32 `json:"nanos,omitempty"`
}

// Float64 renders the offset as fractional seconds.
func (o Offset) Float64() float64 {
	return float64(o.Seconds) + float64(o.Nanos)/1e9
}

// Word is one recognized word with its time span.
type Word struct {
	Word      string `json:"word"`
	StartTime Offset `json:"startTime"`
	EndTime   Offset `json:"endTime"`
}

// Alternative is one hypothesis for a segment. The first alternative of a
// segment is the engine's best guess.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence,omitempty"`
	Words      []Word  `json:"words,omitempty"`
}

// Segment is one recognized utterance, in audio order.
type Segment struct {
	Alternatives []Alternative `json:"alternatives"`
}

// Result is the full structured output of a recognition operation.
type Result struct {
	Segments []Segment `json:"segments"`
}

// Engine submits audio by storage URI to the external recognizer.
type Engine interface {
	Submit(ctx context.Context, uri string, cfg Config) (*Operation, error)
}

// Operation is one in-flight recognition. Progress is best-effort and may
// drop updates; Wait blocks until the engine pushes its single outcome.
type Operation struct {
	progress chan int

	mu       sync.Mutex
	resolved bool
	done     chan struct{}
	result   *Result
	err      error
}

func NewOperation() *Operation {
	return &Operation{
		progress: make(chan int, 8),
		done:     make(chan struct{}),
	}
}

// Progress yields percent updates as the engine reports them. The channel is
// closed when the operation finishes.
func (op *Operation) Progress() <-chan int {
	return op.progress
}

// ReportProgress forwards a percent update without blocking; updates nobody
// is ready to receive are dropped, as are updates arriving after the
// operation has resolved.
func (op *Operation) ReportProgress(percent int) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.resolved {
		return
	}
	select {
	case op.progress <- percent:
	default:
	}
}

// Complete resolves the operation with a result. Only the first of
// Complete/Fail takes effect.
func (op *Operation) Complete(result *Result) {
	op.resolve(result, nil)
}

// Fail resolves the operation with an error.
func (op *Operation) Fail(err error) {
	op.resolve(nil, err)
}

func (op *Operation) resolve(result *Result, err error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.resolved {
		return
	}
	op.resolved = true
	op.result = result
	op.err = err
	close(op.done)
	close(op.progress)
}

// Wait blocks until the operation resolves or the context ends.
func (op *Operation) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-op.done:
		return op.result, op.err
	}
}
