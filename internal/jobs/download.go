package jobs

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/mediabatch/internal/backend"
	"github.com/rshade/mediabatch/internal/engine/batch"
)

// DefaultDownloadThreads is the download concurrency when none is configured.
const DefaultDownloadThreads = 4

// VideoDownloader fetches one video.
type VideoDownloader interface {
	DownloadVideo(ctx context.Context, item backend.DownloadItem, opts backend.DownloadOptions, outputDir string) (backend.DownloadResult, error)
}

// DownloadInput is one video URL.
type DownloadInput struct {
	URL   string
	Title string
}

// DownloadOptions configures a download job.
type DownloadOptions struct {
	Threads   int
	Quality   string
	Ext       string
	AudioOnly bool
	Subtitles bool
	SubLang   string
	OutputDir string

	RetryDelay time.Duration
	Logger     zerolog.Logger
}

// NewDownloadJob builds a download session from rows of url[<TAB>title].
// Rows that are not http(s) URLs are skipped.
func NewDownloadJob(dl VideoDownloader, rows []Row, opts DownloadOptions) (*Session[DownloadInput, backend.DownloadResult], error) {
	var entries []entry[DownloadInput]
	var skipped []Skipped
	for _, row := range rows {
		in := DownloadInput{URL: row.Field(0), Title: row.Field(1)}
		u, err := url.Parse(in.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			skipped = append(skipped, Skipped{Line: row.Line, Reason: "not an http(s) URL"})
			continue
		}
		label := in.Title
		if label == "" {
			label = in.URL
		}
		entries = append(entries, entry[DownloadInput]{line: row.Line, label: label, input: in})
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = DefaultDownloadThreads
	}

	backendOpts := backend.DownloadOptions{
		AudioOnly: opts.AudioOnly,
		Ext:       opts.Ext,
		Quality:   opts.Quality,
		Subtitles: opts.Subtitles,
		SubLang:   opts.SubLang,
	}
	invoke := func(ctx context.Context, call batch.Call[DownloadInput]) (backend.DownloadResult, error) {
		return dl.DownloadVideo(ctx,
			backend.DownloadItem{URL: call.Input.URL, Title: call.Input.Title},
			backendOpts, opts.OutputDir)
	}

	describe := func(r backend.DownloadResult) string {
		return r.OutputPath
	}

	return newSession(KindDownload, entries, skipped, threads, opts.RetryDelay, invoke, describe, opts.Logger)
}
