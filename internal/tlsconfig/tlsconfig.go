// Package tlsconfig builds the *tls.Config the daemon's listener uses
// when the [ssl] section of spec.md §4.J names a certificate and key,
// and keeps it current across a certificate rotation.
//
// It is grounded on the teacher's certificates package: the same
// TLS-version floor/ceiling defaults (TLS 1.2 minimum, TLS 1.3 maximum)
// and the same "parse a PEM key/cert pair into a *tls.Config" shape as
// certificates/cert.go and certificates/config.go, scaled down to the
// two fields spec.md's [ssl] section actually names — it does not carry
// over that package's client-auth modes, custom cipher/curve lists, or
// multi-CA pools, none of which spec.md's config grammar exposes a slot
// for. Rotation is watched with fsnotify the way the teacher pairs
// certificates/ with a filesystem watcher in its own config reload
// paths; see DESIGN.md for the fuller accounting.
package tlsconfig

import (
	"crypto/tls"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/sabouaram/guacd/internal/guacerr"
	"github.com/sabouaram/guacd/internal/logging"
)

// Source serves the current certificate pair to a *tls.Config's
// GetCertificate hook, so a rotated file takes effect on the very next
// handshake without restarting the listener.
type Source struct {
	certFile string
	keyFile  string
	log      logging.Logger

	mu   sync.RWMutex
	cert *tls.Certificate

	watcher *fsnotify.Watcher
	stop    chan struct{}
}

// Load reads certFile/keyFile and arms an fsnotify watcher on both so a
// subsequent rotation that rewrites the files in place is picked up
// automatically. Replacing a file by renaming another over it is not
// picked up: that reports only Chmod/Remove on the watched file, which
// the watch loop ignores, and the watch on that path ends.
func Load(certFile, keyFile string, log logging.Logger) (*Source, guacerr.Error) {
	s := &Source{certFile: certFile, keyFile: keyFile, log: log, stop: make(chan struct{})}

	if err := s.reload(); err != nil {
		return nil, err
	}

	w, werr := fsnotify.NewWatcher()
	if werr != nil {
		// Rotation support is best-effort: a daemon that can terminate
		// TLS at all but cannot watch for rotation still works, it just
		// requires a restart to pick up a renewed certificate.
		log.WithField("error", werr).Warning("certificate rotation watch unavailable")
		return s, nil
	}
	if err := w.Add(certFile); err != nil {
		log.WithField("error", err).Warning("watching certificate file for rotation")
	}
	if err := w.Add(keyFile); err != nil {
		log.WithField("error", err).Warning("watching key file for rotation")
	}
	s.watcher = w

	go s.watchLoop()
	return s, nil
}

func (s *Source) watchLoop() {
	for {
		select {
		case <-s.stop:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.reload(); err != nil {
				s.log.WithField("error", err).Warning("reloading rotated certificate")
			} else {
				s.log.Info("certificate rotated")
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.WithField("error", err).Warning("certificate watch error")
		}
	}
}

func (s *Source) reload() guacerr.Error {
	cert, err := tls.LoadX509KeyPair(s.certFile, s.keyFile)
	if err != nil {
		return guacerr.IoError.Errorf("loading TLS certificate pair: %v", err)
	}

	s.mu.Lock()
	s.cert = &cert
	s.mu.Unlock()
	return nil
}

// Close stops the rotation watch. The last-loaded certificate remains
// valid to serve; Close does not invalidate it.
func (s *Source) Close() {
	close(s.stop)
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
}

// Config returns a *tls.Config whose GetCertificate hook always serves
// the most recently loaded certificate, at the version floor/ceiling the
// teacher's certificates package defaults to (TLS 1.2 minimum, TLS 1.3
// maximum).
func (s *Source) Config() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			s.mu.RLock()
			defer s.mu.RUnlock()
			return s.cert, nil
		},
	}
}
