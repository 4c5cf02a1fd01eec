package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/mediabatch/internal/backend"
	"github.com/rshade/mediabatch/internal/engine/batch"
)

// SubtitleGenerator aligns audio with its transcript.
type SubtitleGenerator interface {
	GenerateSubtitles(ctx context.Context, req backend.SubtitleRequest) (backend.SubtitleResult, error)
}

// SubtitleInput is one audio file with its transcript.
type SubtitleInput struct {
	AudioPath     string
	SourceText    string
	TranslateText string
}

// SubtitleOptions configures a subtitle job.
type SubtitleOptions struct {
	Language       string
	CutLength      float64
	MergeSRT       bool
	SourceUpOrder  bool
	ExportFCPXML   bool
	SeamlessFCPXML bool

	// Keys are the alignment keys. One worker runs per key.
	Keys []string

	// Concurrency overrides the key-derived value when positive.
	Concurrency int
	RetryDelay  time.Duration
	Logger      zerolog.Logger
}

// NewSubtitleJob builds a subtitle session from rows of
// audio_path<TAB>source_text[<TAB>translate_text]. Rows without source text are skipped.
func NewSubtitleJob(
	gen SubtitleGenerator,
	rows []Row,
	opts SubtitleOptions,
) (*Session[SubtitleInput, backend.SubtitleResult], error) {
	var entries []entry[SubtitleInput]
	var skipped []Skipped
	for _, row := range rows {
		in := SubtitleInput{
			AudioPath:     row.Field(0),
			SourceText:    row.Field(1),
			TranslateText: row.Field(2),
		}
		switch {
		case in.AudioPath == "":
			skipped = append(skipped, Skipped{Line: row.Line, Reason: "missing audio path"})
		case in.SourceText == "":
			skipped = append(skipped, Skipped{Line: row.Line, Reason: "missing source text"})
		default:
			entries = append(entries, entry[SubtitleInput]{
				line:  row.Line,
				label: filepath.Base(in.AudioPath),
				input: in,
			})
		}
	}

	keys := cleanKeys(opts.Keys)
	concurrency := ConcurrencyFromKeys(len(keys))
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}

	invoke := func(ctx context.Context, call batch.Call[SubtitleInput]) (backend.SubtitleResult, error) {
		return gen.GenerateSubtitles(ctx, backend.SubtitleRequest{
			AudioPath:      call.Input.AudioPath,
			SourceText:     call.Input.SourceText,
			TranslateText:  call.Input.TranslateText,
			Language:       opts.Language,
			CutLength:      opts.CutLength,
			GladiaKeys:     SubtitleKeysFor(keys, call.Slot),
			MergeSRT:       opts.MergeSRT,
			SourceUpOrder:  opts.SourceUpOrder,
			ExportFCPXML:   opts.ExportFCPXML,
			SeamlessFCPXML: opts.SeamlessFCPXML,
		})
	}

	describe := func(r backend.SubtitleResult) string {
		return fmt.Sprintf("%d files", len(r.Files))
	}

	return newSession(KindSubtitle, entries, skipped, concurrency, opts.RetryDelay, invoke, describe, opts.Logger)
}

// SubtitleKeysFor picks the keys sent for one invocation: the slot's own key during
// a run, every key on a retry.
func SubtitleKeysFor(keys []string, slot int) []string {
	if slot == batch.NoSlot || len(keys) == 0 {
		return append([]string(nil), keys...)
	}
	return []string{keys[slot%len(keys)]}
}
