package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// CompletionSink receives the completion payload once a run is done
type CompletionSink interface {
	Completed(payload []byte) error
}

// FileSink writes the completion payload to a file
type FileSink struct {
	Path string
}

func (s FileSink) Completed(payload []byte) error {
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(s.Path, payload, 0644); err != nil {
		return fmt.Errorf("failed to write completion payload to %s: %w", s.Path, err)
	}
	return nil
}
