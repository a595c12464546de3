package preflight

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MarkerFile records that the checks passed for a build configuration.
const MarkerFile = ".preflight-passed"

type marker struct {
	PassedAt    time.Time `json:"passed_at"`
	Fingerprint string    `json:"fingerprint"`
}

// NeedsCheck reports whether the checks must run: the marker in dir is
// missing, unreadable, or was written for a different fingerprint.
func NeedsCheck(dir, fingerprint string) bool {
	m, err := readMarker(dir)
	if err != nil {
		return true
	}
	return m.Fingerprint != fingerprint
}

// MarkPassed writes the marker for fingerprint, creating dir.
func MarkPassed(dir, fingerprint string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create marker directory: %w", err)
	}
	data, err := json.Marshal(marker{PassedAt: time.Now().UTC(), Fingerprint: fingerprint})
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, MarkerFile), data, 0o644)
}

// ClearMarker removes the marker, forcing a re-check on the next run.
func ClearMarker(dir string) error {
	err := os.Remove(filepath.Join(dir, MarkerFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove marker file: %w", err)
	}
	return nil
}

// MarkerAge returns how long ago the checks passed, or zero without a
// valid marker.
func MarkerAge(dir string) time.Duration {
	m, err := readMarker(dir)
	if err != nil {
		return 0
	}
	return time.Since(m.PassedAt)
}

func readMarker(dir string) (marker, error) {
	var m marker
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, err
	}
	return m, nil
}
