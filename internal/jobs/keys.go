package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/rshade/mediabatch/internal/backend"
)

// KeySource lists the API keys stored in the backend settings.
type KeySource interface {
	GladiaKeys(ctx context.Context) ([]string, error)
	ElevenLabsKeys(ctx context.Context) ([]backend.ElevenLabsKey, error)
}

// ResolveGladiaKeys returns the configured keys, or the backend's when none are configured.
func ResolveGladiaKeys(ctx context.Context, configured []string, src KeySource) ([]string, error) {
	if keys := cleanKeys(configured); len(keys) > 0 {
		return keys, nil
	}
	if src == nil {
		return nil, nil
	}
	keys, err := src.GladiaKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching gladia keys: %w", err)
	}
	return cleanKeys(keys), nil
}

// ResolveElevenLabsKeys returns the configured enabled keys, or the backend's
// enabled keys when none are configured.
func ResolveElevenLabsKeys(ctx context.Context, configured []string, src KeySource) ([]string, error) {
	if keys := cleanKeys(configured); len(keys) > 0 {
		return keys, nil
	}
	if src == nil {
		return nil, nil
	}
	remote, err := src.ElevenLabsKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching elevenlabs keys: %w", err)
	}
	var keys []string
	for _, k := range remote {
		if k.Enabled {
			keys = append(keys, k.Key)
		}
	}
	return cleanKeys(keys), nil
}

// SpeechKeyCount returns how many speech keys a TTS run may pin by index. The
// backend resolves key_index against its own enabled keys, so that list bounds the
// count; configured keys can only lower it. Without a source the configured keys
// are counted as-is.
func SpeechKeyCount(ctx context.Context, configured []string, src KeySource) (int, error) {
	local := len(cleanKeys(configured))
	if src == nil {
		return local, nil
	}
	remote, err := src.ElevenLabsKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching elevenlabs keys: %w", err)
	}
	n := 0
	for _, k := range remote {
		if k.Enabled && strings.TrimSpace(k.Key) != "" {
			n++
		}
	}
	if local > 0 && local < n {
		return local, nil
	}
	return n, nil
}

// MaskKey hides all but the last four characters of a key.
func MaskKey(key string) string {
	const visible = 4
	if len(key) <= visible {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-visible) + key[len(key)-visible:]
}

func cleanKeys(keys []string) []string {
	var out []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
