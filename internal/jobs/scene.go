package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/mediabatch/internal/backend"
	"github.com/rshade/mediabatch/internal/engine/batch"
	"github.com/rshade/mediabatch/internal/engine/cache"
)

// SceneDetector finds scene cuts in a video file.
type SceneDetector interface {
	DetectScenes(ctx context.Context, req backend.SceneRequest) (backend.SceneResult, error)
}

// SceneInput is one video file.
type SceneInput struct {
	FilePath string
}

// SceneOptions configures a scene detection job.
type SceneOptions struct {
	Threshold   float64
	MinInterval float64

	// Concurrency defaults to 1.
	Concurrency int

	// Cache, when enabled, short-circuits files already analysed with the same
	// parameters and unchanged content.
	Cache *cache.FileStore

	RetryDelay time.Duration
	Logger     zerolog.Logger
}

// NewSceneJob builds a scene detection session from rows of file_path.
// Concurrency defaults to 1, matching the sequential desktop behaviour.
func NewSceneJob(det SceneDetector, rows []Row, opts SceneOptions) (*Session[SceneInput, backend.SceneResult], error) {
	var entries []entry[SceneInput]
	var skipped []Skipped
	for _, row := range rows {
		path := row.Field(0)
		if path == "" {
			skipped = append(skipped, Skipped{Line: row.Line, Reason: "missing file path"})
			continue
		}
		entries = append(entries, entry[SceneInput]{
			line:  row.Line,
			label: filepath.Base(path),
			input: SceneInput{FilePath: path},
		})
	}

	invoke := func(ctx context.Context, call batch.Call[SceneInput]) (backend.SceneResult, error) {
		return det.DetectScenes(ctx, backend.SceneRequest{
			FilePath:    call.Input.FilePath,
			Threshold:   opts.Threshold,
			MinInterval: opts.MinInterval,
		})
	}
	cached := Cached(opts.Cache, KindScene, sceneCacheKey(opts), invoke, opts.Logger)

	describe := func(r backend.SceneResult) string {
		return fmt.Sprintf("%d scenes", len(r.Segments))
	}

	return newSession(KindScene, entries, skipped, opts.Concurrency, opts.RetryDelay, cached, describe, opts.Logger)
}

// sceneCacheKey keys results by path, content fingerprint and detection parameters.
// Files that cannot be fingerprinted bypass the cache.
func sceneCacheKey(opts SceneOptions) KeyFunc[SceneInput] {
	return func(in SceneInput) (string, bool) {
		fingerprint, err := cache.FileFingerprint(in.FilePath)
		if err != nil {
			return "", false
		}
		key, err := cache.NewKeyParamsBuilder(string(KindScene), in.FilePath).
			WithParam("threshold", strconv.FormatFloat(opts.Threshold, 'f', -1, 64)).
			WithParam("min_interval", strconv.FormatFloat(opts.MinInterval, 'f', -1, 64)).
			WithFingerprint(fingerprint).
			Build()
		if err != nil {
			return "", false
		}
		return key, true
	}
}
