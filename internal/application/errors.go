// Package application contains use-case orchestration: check aggregation,
// merging, filtering and the follow loop.
package application

import "errors"

// ErrUsage marks invalid flag combinations and similar operator mistakes.
// Raised before any network activity; mapped to exit code 1.
var ErrUsage = errors.New("usage error")

// ErrInterrupted is returned when follow mode is interrupted by the
// operator. Mapped to exit code 130.
var ErrInterrupted = errors.New("interrupted")

// ErrMissingCIToken is returned when CI-linked checks are present but no
// CI-provider token is configured.
var ErrMissingCIToken = errors.New("CI-linked checks found but CIRCLECI_TOKEN is not set; export it to include pipeline data")
