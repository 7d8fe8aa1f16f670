package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess   = 0 // Run completed, nothing failing (or failures tolerated)
	ExitRunFailed = 1 // Run completed with failing candidates and --fail-on-fail
	ExitError     = 2 // Configuration, validation or runtime error
)

// FailingCandidatesError indicates that the run completed but some
// candidates did not pass their classification or requirements.
type FailingCandidatesError struct {
	Failing int
	Total   int
}

func (e *FailingCandidatesError) Error() string {
	return fmt.Sprintf("%d of %d candidates failing", e.Failing, e.Total)
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var failing *FailingCandidatesError
	if errors.As(err, &failing) {
		return ExitRunFailed
	}
	return ExitError
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
