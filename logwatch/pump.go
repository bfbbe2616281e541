package logwatch

import (
	"bufio"
	"io"
	"strings"
)

// maxLineBytes bounds a single chunk. The completion payload carries the whole
// report text on one line, so this is generous.
const maxLineBytes = 16 * 1024 * 1024

// PumpLines reads r until EOF and hands each line, without its trailing
// newline, to publish as one chunk. It returns the first read error other
// than io.EOF.
func PumpLines(r io.Reader, publish func(chunk string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		publish(strings.TrimRight(scanner.Text(), "\r"))
	}
	return scanner.Err()
}
