package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/mediabatch/internal/backend"
	"github.com/rshade/mediabatch/internal/engine/batch"
)

// ErrMissingVoice is returned when a TTS row has no voice and no default applies.
var ErrMissingVoice = errors.New("missing voice")

// labelWidth caps text labels in task views.
const labelWidth = 40

// SpeechGenerator voices a single item.
type SpeechGenerator interface {
	Speak(ctx context.Context, item backend.SpeechItem, modelID, outputFormat string, circuitBreaker bool) (backend.SpeechResult, error)
}

// TTSInput is one line of text to voice.
type TTSInput struct {
	Text    string
	VoiceID string

	// SeqNum is the 1-based position among eligible rows, used to name outputs.
	SeqNum int
}

// TTSOptions configures a TTS job.
type TTSOptions struct {
	// Voice, when set, applies to every row.
	Voice string

	// DefaultVoice applies to rows without their own voice.
	DefaultVoice string

	Model          string
	Format         string
	CircuitBreaker bool

	// KeyCount is the number of enabled keys the backend holds (see SpeechKeyCount).
	// First-pass calls pin key_index to slot+1.
	KeyCount int

	// Concurrency lowers the key-derived value when positive.
	Concurrency int
	RetryDelay  time.Duration
	Logger      zerolog.Logger
}

// NewTTSJob builds a TTS session from rows of text[<TAB>voice_id]. Rows without text
// are skipped; a row left without a voice fails the whole job before anything starts.
func NewTTSJob(gen SpeechGenerator, rows []Row, opts TTSOptions) (*Session[TTSInput, backend.SpeechResult], error) {
	var entries []entry[TTSInput]
	var skipped []Skipped
	var missing []string
	for _, row := range rows {
		text := row.Field(0)
		if text == "" {
			skipped = append(skipped, Skipped{Line: row.Line, Reason: "missing text"})
			continue
		}

		voice := opts.Voice
		if voice == "" {
			voice = row.Field(1)
		}
		if voice == "" {
			voice = opts.DefaultVoice
		}
		if voice == "" {
			missing = append(missing, fmt.Sprint(row.Line))
			continue
		}

		entries = append(entries, entry[TTSInput]{
			line:  row.Line,
			label: truncate(text, labelWidth),
			input: TTSInput{Text: text, VoiceID: voice, SeqNum: len(entries) + 1},
		})
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w on line(s) %s: pass --voice or add a voice column",
			ErrMissingVoice, strings.Join(missing, ", "))
	}

	concurrency := ConcurrencyFromKeys(min(opts.KeyCount, len(entries)))
	if opts.Concurrency > 0 && opts.Concurrency < concurrency {
		concurrency = opts.Concurrency
	}

	invoke := func(ctx context.Context, call batch.Call[TTSInput]) (backend.SpeechResult, error) {
		item := backend.SpeechItem{
			Text:    call.Input.Text,
			VoiceID: call.Input.VoiceID,
			ModelID: opts.Model,
			SeqNum:  call.Input.SeqNum,
		}
		if !call.IsRetry() && opts.KeyCount > 0 {
			// The backend reads key_index as 1-based.
			keyIndex := call.Slot + 1
			item.KeyIndex = &keyIndex
		}
		return gen.Speak(ctx, item, opts.Model, opts.Format, opts.CircuitBreaker)
	}

	describe := func(r backend.SpeechResult) string {
		return r.FilePath
	}

	return newSession(KindTTS, entries, skipped, concurrency, opts.RetryDelay, invoke, describe, opts.Logger)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
