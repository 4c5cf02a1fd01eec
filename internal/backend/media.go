package backend

import (
	"context"
	"fmt"
)

// SpeechItem is one line of text to voice.
type SpeechItem struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
	ModelID string `json:"model_id,omitempty"`
	SeqNum  int    `json:"seq_num"`

	// KeyIndex pins the provider key. Nil lets the backend choose.
	KeyIndex *int `json:"key_index,omitempty"`
}

// SpeechRequest is the body of POST /elevenlabs/tts-batch.
type SpeechRequest struct {
	Items                []SpeechItem `json:"items"`
	DefaultModelID       string       `json:"default_model_id,omitempty"`
	OutputFormat         string       `json:"output_format,omitempty"`
	EnableCircuitBreaker bool         `json:"enable_circuit_breaker"`
}

// SpeechResult is the outcome for one item. Exactly one of FilePath and Error is set.
type SpeechResult struct {
	Index    int    `json:"index"`
	FilePath string `json:"file_path,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SpeechResponse is the body returned by the TTS batch route. Results may contain
// nil entries for items the backend skipped.
type SpeechResponse struct {
	Message                 string          `json:"message"`
	Results                 []*SpeechResult `json:"results"`
	Success                 int             `json:"success"`
	Failed                  int             `json:"failed"`
	CircuitBreakerTriggered bool            `json:"circuit_breaker_triggered"`
}

// GenerateSpeech calls POST /elevenlabs/tts-batch.
func (c *Client) GenerateSpeech(ctx context.Context, req SpeechRequest) (SpeechResponse, error) {
	if len(req.Items) == 0 {
		return SpeechResponse{}, fmt.Errorf("%w: no speech items", ErrValidation)
	}
	var resp SpeechResponse
	if err := c.postJSON(ctx, "elevenlabs/tts-batch", req, &resp); err != nil {
		return SpeechResponse{}, err
	}
	return resp, nil
}

// Speak voices a single item. A 2xx response whose result carries an error is
// returned as *ItemError.
func (c *Client) Speak(ctx context.Context, item SpeechItem, modelID, outputFormat string, circuitBreaker bool) (SpeechResult, error) {
	resp, err := c.GenerateSpeech(ctx, SpeechRequest{
		Items:                []SpeechItem{item},
		DefaultModelID:       modelID,
		OutputFormat:         outputFormat,
		EnableCircuitBreaker: circuitBreaker,
	})
	if err != nil {
		return SpeechResult{}, err
	}
	if len(resp.Results) == 0 || resp.Results[0] == nil {
		return SpeechResult{}, &ItemError{Index: 0, Message: "no result returned"}
	}
	result := *resp.Results[0]
	if result.Error != "" {
		return result, &ItemError{Index: result.Index, Message: result.Error}
	}
	if result.FilePath == "" {
		return result, &ItemError{Index: result.Index, Message: "no file produced"}
	}
	return result, nil
}

// SceneRequest is the body of POST /media/scene-detect.
type SceneRequest struct {
	FilePath    string  `json:"file_path"`
	Threshold   float64 `json:"threshold"`
	MinInterval float64 `json:"min_interval"`
}

// ScenePoint is one detected cut.
type ScenePoint struct {
	Time    float64 `json:"time"`
	TimeStr string  `json:"time_str"`
}

// Segment is the span between two cuts.
type Segment struct {
	Index       int     `json:"index"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Duration    float64 `json:"duration"`
	StartStr    string  `json:"start_str"`
	EndStr      string  `json:"end_str"`
	DurationStr string  `json:"duration_str"`
}

// SceneResult is the body returned by the scene detection route.
type SceneResult struct {
	Message     string       `json:"message"`
	File        string       `json:"file"`
	Duration    float64      `json:"duration"`
	FPS         float64      `json:"fps"`
	Resolution  string       `json:"resolution,omitempty"`
	Threshold   float64      `json:"threshold"`
	ScenePoints []ScenePoint `json:"scene_points"`
	Segments    []Segment    `json:"segments"`
}

// DetectScenes calls POST /media/scene-detect.
func (c *Client) DetectScenes(ctx context.Context, req SceneRequest) (SceneResult, error) {
	if req.FilePath == "" {
		return SceneResult{}, fmt.Errorf("%w: file path is required", ErrValidation)
	}
	var result SceneResult
	if err := c.postJSON(ctx, "media/scene-detect", req, &result); err != nil {
		return SceneResult{}, err
	}
	return result, nil
}

// DownloadItem is one video to fetch.
type DownloadItem struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// DownloadOptions control the downloader.
type DownloadOptions struct {
	AudioOnly bool   `json:"audio_only"`
	Ext       string `json:"ext,omitempty"`
	Quality   string `json:"quality,omitempty"`
	Subtitles bool   `json:"subtitles"`
	SubLang   string `json:"sub_lang,omitempty"`
}

// DownloadRequest is the body of POST /video/download-batch.
type DownloadRequest struct {
	Items     []DownloadItem  `json:"items"`
	Options   DownloadOptions `json:"options"`
	OutputDir string          `json:"output_dir,omitempty"`
}

// DownloadResult is the body returned by the download route.
type DownloadResult struct {
	Message    string `json:"message"`
	OutputPath string `json:"output_path"`
	Count      int    `json:"count"`
}

// DownloadVideo fetches a single URL through the batch download route.
func (c *Client) DownloadVideo(ctx context.Context, item DownloadItem, opts DownloadOptions, outputDir string) (DownloadResult, error) {
	if item.URL == "" {
		return DownloadResult{}, fmt.Errorf("%w: url is required", ErrValidation)
	}
	var result DownloadResult
	req := DownloadRequest{Items: []DownloadItem{item}, Options: opts, OutputDir: outputDir}
	if err := c.postJSON(ctx, "video/download-batch", req, &result); err != nil {
		return DownloadResult{}, err
	}
	return result, nil
}

// ElevenLabsKey is one provider key with its state as the backend reports it.
type ElevenLabsKey struct {
	Key                string `json:"key"`
	Enabled            bool   `json:"enabled"`
	ManualDisabled     bool   `json:"manual_disabled,omitempty"`
	AutoDisabled       bool   `json:"auto_disabled,omitempty"`
	AutoDisabledReason string `json:"auto_disabled_reason,omitempty"`
}

// GladiaKeys calls GET /settings/gladia-keys.
func (c *Client) GladiaKeys(ctx context.Context) ([]string, error) {
	var payload struct {
		Keys []string `json:"keys"`
	}
	if err := c.getJSON(ctx, "settings/gladia-keys", &payload); err != nil {
		return nil, err
	}
	return payload.Keys, nil
}

// ElevenLabsKeys calls GET /settings/elevenlabs/keys, disabled keys included.
func (c *Client) ElevenLabsKeys(ctx context.Context) ([]ElevenLabsKey, error) {
	var payload struct {
		Keys []ElevenLabsKey `json:"keys"`
	}
	if err := c.getJSON(ctx, "settings/elevenlabs/keys", &payload); err != nil {
		return nil, err
	}
	return payload.Keys, nil
}
