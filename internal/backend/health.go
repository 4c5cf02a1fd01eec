package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version,omitempty"`
}

// OK reports whether the backend declared itself healthy.
func (h HealthStatus) OK() bool {
	return strings.EqualFold(h.Status, "ok")
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var status HealthStatus
	if err := c.getJSON(ctx, "health", &status); err != nil {
		return HealthStatus{}, err
	}
	return status, nil
}

// CheckVersion compares the reported backend version with the configured minimum.
// It returns nil when no minimum is configured or the backend does not report a
// version, and an error matching ErrVersionMismatch when the backend is too old.
func (c *Client) CheckVersion(status HealthStatus) error {
	if c.minVersion == "" || status.Version == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(">= " + c.minVersion)
	if err != nil {
		return fmt.Errorf("backend: invalid minimum version %q: %w", c.minVersion, err)
	}
	got, err := semver.NewVersion(status.Version)
	if err != nil {
		return fmt.Errorf("backend: unparseable version %q: %w", status.Version, err)
	}
	if !constraint.Check(got) {
		return fmt.Errorf("%w: have %s, need >= %s", ErrVersionMismatch, got, c.minVersion)
	}
	return nil
}

// Ping checks health and version in one call, logging a warning on a version
// mismatch rather than failing.
func (c *Client) Ping(ctx context.Context) (HealthStatus, error) {
	status, err := c.Health(ctx)
	if err != nil {
		return HealthStatus{}, err
	}
	if verErr := c.CheckVersion(status); verErr != nil {
		c.logger.Warn().Ctx(ctx).Err(verErr).Msg("backend version check failed")
	}
	return status, nil
}
