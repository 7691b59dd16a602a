package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	speech "google.golang.org/api/speech/v1"
)

const defaultWatchInterval = 5 * time.Second

// Google runs recognition through Cloud Speech's long-running recognize
// operation. The service pushes completion through its operation resource;
// watching that resource is this adapter's internal concern, the caller only
// sees the Operation resolve.
type Google struct {
	service       *speech.Service
	logger        *log.Logger
	watchInterval time.Duration
}

func NewGoogle(ctx context.Context, logger *log.Logger) (*Google, error) {
	service, err := speech.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech service: %w", err)
	}
	return &Google{
		service:       service,
		logger:        logger,
		watchInterval: defaultWatchInterval,
	}, nil
}

func (g *Google) Submit(
	ctx context.Context,
	uri string,
	cfg Config,
) (*Operation, error) {
	req := &speech.LongRunningRecognizeRequest{
		Audio: &speech.RecognitionAudio{Uri: uri},
		Config: &speech.RecognitionConfig{
			LanguageCode:               cfg.LanguageCode,
			EnableWordTimeOffsets:      cfg.EnableWordTimeOffsets,
			EnableAutomaticPunctuation: cfg.EnableAutomaticPunctuation,
		},
	}

	remote, err := g.service.Speech.Longrunningrecognize(req).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("submit recognition for %s: %w", uri, err)
	}

	op := NewOperation()
	go g.watch(ctx, remote.Name, op)
	return op, nil
}

func (g *Google) watch(ctx context.Context, name string, op *Operation) {
	interval := g.watchInterval
	if interval <= 0 {
		interval = defaultWatchInterval
	}

	for {
		select {
		case <-ctx.Done():
			op.Fail(ctx.Err())
			return
		case <-time.After(interval):
		}

		remote, err := g.service.Operations.Get(name).Context(ctx).Do()
		if err != nil {
			g.logger.Warn("recognition status check failed",
				"operation", name, "error", err)
			continue
		}

		if len(remote.Metadata) > 0 {
			var meta speech.LongRunningRecognizeMetadata
			if err := json.Unmarshal(remote.Metadata, &meta); err == nil {
				op.ReportProgress(int(meta.ProgressPercent))
			}
		}

		if !remote.Done {
			continue
		}

		if remote.Error != nil {
			op.Fail(fmt.Errorf(
				"recognition failed: %s", remote.Error.Message,
			))
			return
		}

		var resp speech.LongRunningRecognizeResponse
		if err := json.Unmarshal(remote.Response, &resp); err != nil {
			op.Fail(fmt.Errorf("decode recognition response: %w", err))
			return
		}
		result, err := resultFromResponse(&resp)
		if err != nil {
			op.Fail(err)
			return
		}
		op.Complete(result)
		return
	}
}

func resultFromResponse(resp *speech.LongRunningRecognizeResponse) (*Result, error) {
	result := &Result{}
	for _, seg := range resp.Results {
		segment := Segment{}
		for _, alt := range seg.Alternatives {
			words := make([]Word, 0, len(alt.Words))
			for _, w := range alt.Words {
				start, err := parseDuration(w.StartTime)
				if err != nil {
					return nil, fmt.Errorf("word %q start time: %w", w.Word, err)
				}
				end, err := parseDuration(w.EndTime)
				if err != nil {
					return nil, fmt.Errorf("word %q end time: %w", w.Word, err)
				}
				words = append(words, Word{
					Word:      w.Word,
					StartTime: start,
					EndTime:   end,
				})
			}
			segment.Alternatives = append(segment.Alternatives, Alternative{
				Transcript: alt.Transcript,
				Confidence: alt.Confidence,
				Words:      words,
			})
		}
		result.Segments = append(result.Segments, segment)
	}
	return result, nil
}

// parseDuration reads the wire format for time offsets, a decimal seconds
// string with an "s" suffix such as "3.100s". A missing fraction means zero
// nanos.
func parseDuration(s string) (Offset, error) {
	if s == "" {
		return Offset{}, nil
	}
	trimmed := strings.TrimSuffix(s, "s")
	whole, frac, _ := strings.Cut(trimmed, ".")

	seconds, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Offset{}, fmt.Errorf("parse duration %q: %w", s, err)
	}

	var nanos int32
	if frac != "" {
		if len(frac) > 9 {
			return Offset{}, errors.New("sub-second precision beyond nanos: " + s)
		}
		padded := frac + strings.Repeat("0", 9-len(frac))
		n, err := strconv.ParseInt(padded, 10, 32)
		if err != nil {
			return Offset{}, fmt.Errorf("parse duration fraction %q: %w", s, err)
		}
		nanos = int32(n)
	}

	return Offset{Seconds: seconds, Nanos: nanos}, nil
}
