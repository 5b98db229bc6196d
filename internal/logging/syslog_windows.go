//go:build windows

package logging

import "errors"

// EnableSyslog is unavailable on Windows, which has no syslog facility;
// callers treat a non-nil error as "continue without it" rather than a
// fatal startup condition.
func EnableSyslog(l Logger, name string) error {
	return errors.New("syslog is not supported on windows")
}
