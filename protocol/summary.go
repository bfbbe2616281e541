package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/acarl005/stripansi"
)

var (
	// ErrNoMarker is returned when a chunk does not carry the completion marker.
	ErrNoMarker = errors.New("chunk does not contain the completion marker")
	// ErrBadMagic is returned when the payload magic field is not the marker.
	ErrBadMagic = errors.New("completion payload has unexpected magic")
)

// RunSummary is the payload the runner writes behind the completion marker.
type RunSummary struct {
	Magic   string `json:"magic"`
	Failed  int    `json:"failed"`
	Results string `json:"results"`
}

// NewRunSummary returns a summary with the magic field set.
func NewRunSummary(failed int, results string) RunSummary {
	return RunSummary{
		Magic:   CompletionMarker,
		Failed:  failed,
		Results: results,
	}
}

// Passed reports whether no spec failed.
func (s RunSummary) Passed() bool {
	return s.Failed == 0
}

// Payload returns the JSON object carried behind the marker.
func (s RunSummary) Payload() ([]byte, error) {
	if s.Magic == "" {
		s.Magic = CompletionMarker
	}
	return json.Marshal(s)
}

// MarkerLine returns the single log line announcing completion: the marker
// immediately followed by the JSON payload.
func (s RunSummary) MarkerLine() (string, error) {
	payload, err := s.Payload()
	if err != nil {
		return "", fmt.Errorf("failed to encode run summary: %w", err)
	}
	return CompletionMarker + string(payload), nil
}

// ParseCompletion extracts the RunSummary from a chunk matched by
// IsCompletion. Two framings are accepted: the marker followed by the JSON
// object, and a bare JSON object whose magic field holds the marker. ANSI
// escapes around the line are ignored; the payload encodes its own as \u001b.
func ParseCompletion(chunk string) (*RunSummary, error) {
	chunk = stripansi.Strip(chunk)
	idx := strings.Index(chunk, CompletionMarker)
	if idx < 0 {
		return nil, ErrNoMarker
	}

	payload := strings.TrimSpace(chunk[idx+len(CompletionMarker):])
	if !strings.HasPrefix(payload, "{") {
		// Bare form: the marker only appears inside the object.
		start := strings.LastIndex(chunk[:idx], "{")
		if start < 0 {
			return nil, fmt.Errorf("malformed completion payload: no JSON object in %q", truncate(chunk))
		}
		payload = strings.TrimSpace(chunk[start:])
	}

	var summary RunSummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return nil, fmt.Errorf("malformed completion payload: %w", err)
	}
	if summary.Magic != CompletionMarker {
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, summary.Magic)
	}
	if summary.Failed < 0 {
		return nil, fmt.Errorf("malformed completion payload: negative failed count %d", summary.Failed)
	}
	return &summary, nil
}

func truncate(s string) string {
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}
