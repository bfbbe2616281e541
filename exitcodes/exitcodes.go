// Package exitcodes defines the exit codes used by op-devicetest.
package exitcodes

// Exit code constants used by op-devicetest.
//
// * Success (0): every spec passed
// * 1..MaxFailed: the number of failed specs, clamped to MaxFailed
// * RuntimeErr (255): the run could not complete (configuration, collaborator
//   failures, marker timeouts, malformed payloads)
const (
	Success    = 0
	MaxFailed  = 250
	RuntimeErr = 255
)

// FromFailed maps a failed spec count to an exit code. Counts above
// MaxFailed are clamped so they cannot wrap around to success.
func FromFailed(failed int) int {
	switch {
	case failed <= 0:
		return Success
	case failed > MaxFailed:
		return MaxFailed
	default:
		return failed
	}
}
