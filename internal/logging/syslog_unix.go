//go:build !windows

package logging

import (
	"log/syslog"

	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
)

// EnableSyslog attaches a syslog hook to l so records are delivered to
// the local syslog daemon in addition to l's own writer, the way the
// teacher's logger package pairs a stderr/file writer with an optional
// syslog hook rather than switching between the two. name is the
// syslog tag (argv[0], conventionally "guacd").
//
// l must have been built by New; any other Logger implementation is a
// no-op, matching the original daemon's behavior of silently skipping
// syslog setup when log.c's openlog() target is unavailable.
func EnableSyslog(l Logger, name string) error {
	g, ok := l.(*logger)
	if !ok {
		return nil
	}

	hook, err := lsyslog.NewSyslogHook("", "", syslog.LOG_DAEMON, name)
	if err != nil {
		return err
	}

	g.e.Logger.AddHook(hook)
	return nil
}
