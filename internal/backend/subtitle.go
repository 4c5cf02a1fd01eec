package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

const routeSubtitle = "subtitle/generate-with-file"

// SubtitleRequest aligns one audio file with its transcript.
type SubtitleRequest struct {
	AudioPath     string
	SourceText    string
	TranslateText string
	Language      string

	// CutLength is the maximum subtitle line length in seconds.
	CutLength float64

	// GladiaKeys are the alignment keys the backend may use, in order.
	GladiaKeys []string

	MergeSRT       bool
	SourceUpOrder  bool
	ExportFCPXML   bool
	SeamlessFCPXML bool
}

// SubtitleResult lists the files the backend generated.
type SubtitleResult struct {
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

// GenerateSubtitles uploads the audio file with the alignment parameters.
// The request body is streamed, so large audio files are never held in memory.
func (c *Client) GenerateSubtitles(ctx context.Context, req SubtitleRequest) (SubtitleResult, error) {
	if req.AudioPath == "" {
		return SubtitleResult{}, fmt.Errorf("%w: audio path is required", ErrValidation)
	}
	if req.SourceText == "" {
		return SubtitleResult{}, fmt.Errorf("%w: source text is required", ErrValidation)
	}

	audio, err := os.Open(req.AudioPath)
	if err != nil {
		return SubtitleResult{}, fmt.Errorf("backend: open audio: %w", err)
	}

	keys, err := json.Marshal(nonNil(req.GladiaKeys))
	if err != nil {
		_ = audio.Close()
		return SubtitleResult{}, fmt.Errorf("backend: encode gladia keys: %w", err)
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	form := multipart.NewWriter(pw)
	go func() {
		defer audio.Close()
		_ = pw.CloseWithError(writeSubtitleForm(form, audio, filepath.Base(req.AudioPath), req, string(keys)))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(routeSubtitle), pr)
	if err != nil {
		return SubtitleResult{}, fmt.Errorf("backend: build %s request: %w", routeSubtitle, err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	var result SubtitleResult
	if err := c.do(httpReq, routeSubtitle, &result); err != nil {
		return SubtitleResult{}, err
	}
	return result, nil
}

func writeSubtitleForm(form *multipart.Writer, audio io.Reader, name string, req SubtitleRequest, keys string) error {
	part, err := form.CreateFormFile("audio_file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return err
	}

	language := req.Language
	if language == "" {
		language = "en"
	}
	fields := [][2]string{
		{"source_text", req.SourceText},
		{"translate_text", req.TranslateText},
		{"language", language},
		{"audio_cut_length", strconv.FormatFloat(req.CutLength, 'f', -1, 64)},
		{"gladia_keys", keys},
		{"gen_merge_srt", strconv.FormatBool(req.MergeSRT)},
		{"source_up_order", strconv.FormatBool(req.SourceUpOrder)},
		{"export_fcpxml", strconv.FormatBool(req.ExportFCPXML)},
		{"seamless_fcpxml", strconv.FormatBool(req.SeamlessFCPXML)},
	}
	var errs []error
	for _, f := range fields {
		errs = append(errs, form.WriteField(f[0], f[1]))
	}
	errs = append(errs, form.Close())
	return errors.Join(errs...)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
