// Package runner is a small in-process test framework for code that runs on
// the device.
//
// Modules register suites and specs into an Env with Describe, It, XIt and
// FIt. Execute then runs every spec once, in declaration order, on a single
// goroutine and reports each lifecycle event to its Reporters:
//
//	RunStarted
//	  SuiteStarted
//	    SpecStarted / SpecDone
//	  SuiteDone
//	RunDone
//
// Excluded specs, and every unfocused spec once any spec is focused, are
// reported as disabled without running their body.
package runner
