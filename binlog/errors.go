package binlog

import (
	"fmt"
	"strings"
)

// ConfigError means the server is not configured for row-based capture.
// It is fatal: no retry can help until the server is reconfigured.
type ConfigError struct {
	Reason string
}

func (err *ConfigError) Error() string {
	return fmt.Sprintf("Unable to replicate binlog stream because %s", err.Reason)
}

func configErrorf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// PurgedPositionError means one or more bookmarked log files were rotated
// away by retention. Resuming is impossible without a full resync, so the
// engine never substitutes an alternate position.
type PurgedPositionError struct {
	Files []string
}

func (err *PurgedPositionError) Error() string {
	return fmt.Sprintf(
		"Unable to replicate binlog stream because the following binary log(s) no longer exist: %s",
		strings.Join(err.Files, ", "),
	)
}
