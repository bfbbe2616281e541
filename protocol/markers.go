// Package protocol defines the text markers the driver and the runner use to
// synchronize over the serving process log.
package protocol

import (
	"fmt"
	"strings"

	"github.com/acarl005/stripansi"
)

const (
	// ReadyMarker is logged by the serving process once it finished
	// initializing.
	ReadyMarker = "<END>   Initializing Packager"

	// CompletionMarker prefixes the JSON run summary printed by the runner.
	CompletionMarker = "[TEST-SUITE-END]"

	// DefaultLinkScheme is the custom scheme of the URL handed to the device.
	DefaultLinkScheme = "exp"
)

// ContainsMarker returns a predicate matching chunks that contain marker once
// ANSI escape sequences are removed.
func ContainsMarker(marker string) func(chunk string) bool {
	return func(chunk string) bool {
		return strings.Contains(stripansi.Strip(chunk), marker)
	}
}

// IsReady matches the default ready marker.
func IsReady(chunk string) bool {
	return ContainsMarker(ReadyMarker)(chunk)
}

// IsCompletion matches chunks carrying the completion marker.
func IsCompletion(chunk string) bool {
	return ContainsMarker(CompletionMarker)(chunk)
}

// LinkURL builds the URL the device opens for a server bound to port.
func LinkURL(scheme string, port int) string {
	if scheme == "" {
		scheme = DefaultLinkScheme
	}
	return fmt.Sprintf("%s://localhost:%d", scheme, port)
}

// FetchURL rewrites the custom scheme prefix of link to http so the manifest
// can be fetched directly. Links that do not start with scheme are returned
// unchanged.
func FetchURL(link, scheme string) string {
	if scheme == "" {
		scheme = DefaultLinkScheme
	}
	if strings.HasPrefix(link, scheme) {
		return "http" + strings.TrimPrefix(link, scheme)
	}
	return link
}
