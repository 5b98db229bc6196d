// Command guacd is the proxy daemon spec.md describes: it terminates
// the Guacamole wire protocol from web clients and multiplexes backend
// protocol workers. This file wires the daemon's CLI surface with
// spf13/cobra, following the teacher's cobra package's house style: the
// root command's RunE loads and validates configuration, then starts the
// long-running server — adapted down from that package's generic
// multi-format config-file abstraction to the single bespoke INI-like
// grammar spec.md §4.J defines.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sabouaram/guacd/internal/config"
	"github.com/sabouaram/guacd/internal/logging"
	"github.com/sabouaram/guacd/internal/pidfile"
	"github.com/sabouaram/guacd/internal/tlsconfig"
)

// listenError marks a failure to bind/listen, which exits with status 3
// per spec.md §6.3 ("3 on listen/accept failure after daemonization"),
// distinct from the generic configuration-error exit status of 1.
type listenError struct{ err error }

func (e *listenError) Error() string { return e.err.Error() }
func (e *listenError) Unwrap() error { return e.err }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var le *listenError
		if errors.As(err, &le) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		flags      config.Flags
		foreground bool
	)

	cmd := &cobra.Command{
		Use:     "guacd",
		Short:   "Guacamole proxy daemon",
		Version: "1.0.0",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			backgroundRequested := cmd.Flags().Changed("foreground") && !foreground
			return run(configPath, flags, backgroundRequested)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&configPath, "config", "c", "/etc/guacd.conf", "path to the daemon's configuration file")
	fs.StringVarP(&flags.BindHost, "bind-host", "b", "", "host to bind the listening socket to")
	fs.StringVarP(&flags.BindPort, "bind-port", "l", "", "port to bind the listening socket to")
	fs.StringVarP(&flags.PIDFile, "pid-file", "p", "", "path to write the daemon's PID file to")
	fs.StringVarP(&flags.LogLevel, "log-level", "L", "", "log level: trace, debug, info, warning, or error")
	fs.StringVarP(&flags.CertFile, "cert", "C", "", "path to the TLS certificate chain")
	fs.StringVarP(&flags.KeyFile, "key", "K", "", "path to the TLS private key")
	fs.BoolVarP(&foreground, "foreground", "f", false, "run in the foreground (background execution is not supported: see DESIGN.md)")

	cmd.SetVersionTemplate("guacd {{.Version}}\n")

	return cmd
}

func run(configPath string, flags config.Flags, backgroundRequested bool) error {
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%v", err)
	}
	cfg := config.Merge(fileCfg, flags)

	if err := cfg.Validate(); err != nil {
		return err
	}

	if backgroundRequested {
		// See SPEC_FULL.md §4 "Foreground/daemonize split": this rewrite
		// never self-daemonizes via fork(), which is unsafe once the Go
		// runtime has started threads. An operator who wants background
		// execution supervises this process externally instead.
		return fmt.Errorf("backgrounding via fork() is not supported; run under a process supervisor instead")
	}

	log := logging.New(cfg.Level(), os.Stderr)
	if err := logging.EnableSyslog(log, "guacd"); err != nil {
		log.WithField("cause", err).Warning("syslog unavailable, logging to stderr only")
	}

	// The daemon never forks its own children directly (workers are
	// exec'd, not fork()'d, and os/exec.Cmd.Wait already reaps them), and
	// writes to sockets surface as an error return, not a process signal,
	// so neither SIGPIPE nor SIGCHLD needs explicit handling here — unlike
	// the original C daemon, which had to ignore both. SIGINT/SIGTERM
	// still need a handler to stop accepting new connections cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pf, err := pidfile.Write(cfg.PIDFile)
	if err != nil {
		return err
	}
	defer func() { _ = pf.Remove() }()

	var tlsSrc *tlsconfig.Source
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsSrc, err = tlsconfig.Load(cfg.CertFile, cfg.KeyFile, log)
		if err != nil {
			return fmt.Errorf("loading TLS configuration: %v", err)
		}
		defer tlsSrc.Close()
	}

	addr := net.JoinHostPort(cfg.BindHost, cfg.BindPort)
	srv, err := newServer(addr, cfg.MaxWorkers, processSpawner{}.spawn, log, tlsSrc)
	if err != nil {
		return &listenError{err: fmt.Errorf("listening on %s: %w", addr, err)}
	}

	log.WithField("addr", addr).Info("guacd listening")

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		_ = srv.Shutdown()
	}()

	if err := srv.serve(ctx); err != nil {
		return &listenError{err: fmt.Errorf("accept loop: %w", err)}
	}

	return nil
}
