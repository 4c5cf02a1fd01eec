package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrEmptyKind is returned when key parameters carry no job kind.
var ErrEmptyKind = errors.New("cache key kind cannot be empty")

// KeyParams identifies one cacheable remote call.
type KeyParams struct {
	// Kind is the job kind, e.g. "scene". Case and surrounding space are ignored.
	Kind string

	// Input is the primary input, e.g. a media file path.
	Input string

	// Params holds call parameters that change the result.
	Params map[string]string

	// Fingerprint pins the key to the input's content, see FileFingerprint.
	Fingerprint string
}

// canonicalKey is the normalized form that gets hashed.
type canonicalKey struct {
	Kind        string      `json:"kind"`
	Input       string      `json:"input"`
	Params      [][2]string `json:"params,omitempty"`
	Fingerprint string      `json:"fingerprint,omitempty"`
}

// GenerateKey returns the hex SHA-256 of the normalized parameters.
// Parameter order does not affect the key.
func GenerateKey(p KeyParams) (string, error) {
	kind := strings.ToLower(strings.TrimSpace(p.Kind))
	if kind == "" {
		return "", ErrEmptyKind
	}

	c := canonicalKey{
		Kind:        kind,
		Input:       p.Input,
		Fingerprint: p.Fingerprint,
	}
	names := make([]string, 0, len(p.Params))
	for name := range p.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.Params = append(c.Params, [2]string{name, p.Params[name]})
	}

	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// GenerateSimpleKey hashes the given parts joined in order.
func GenerateSimpleKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// FileFingerprint describes a file's size and modification time, so a cache entry
// for the file stops matching once it changes.
func FileFingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("fingerprinting %s: %w", path, err)
	}
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano()), nil
}

// KeyParamsBuilder assembles KeyParams fluently.
type KeyParamsBuilder struct {
	params KeyParams
}

// NewKeyParamsBuilder starts a builder for the given job kind and input.
func NewKeyParamsBuilder(kind, input string) *KeyParamsBuilder {
	return &KeyParamsBuilder{params: KeyParams{Kind: kind, Input: input}}
}

// WithParam adds one call parameter.
func (b *KeyParamsBuilder) WithParam(name, value string) *KeyParamsBuilder {
	if b.params.Params == nil {
		b.params.Params = make(map[string]string)
	}
	b.params.Params[name] = value
	return b
}

// WithFingerprint pins the key to the input's content.
func (b *KeyParamsBuilder) WithFingerprint(fingerprint string) *KeyParamsBuilder {
	b.params.Fingerprint = fingerprint
	return b
}

// BuildParams returns the assembled parameters.
func (b *KeyParamsBuilder) BuildParams() KeyParams {
	return b.params
}

// Build returns the cache key for the assembled parameters.
func (b *KeyParamsBuilder) Build() (string, error) {
	return GenerateKey(b.params)
}
