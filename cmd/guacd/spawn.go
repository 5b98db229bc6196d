// Worker spawning is the one piece of guacd's lifecycle spec.md
// explicitly places outside the core (§4.I.3): "the router treats
// worker spawning as an opaque factory." This file supplies that
// factory for the cmd/guacd binary: it execs a per-protocol plugin
// binary, found on $PATH as guacd-plugin-<protocol>, handing it the
// worker's end of a descriptor-passing socket as file descriptor 3 via
// os/exec's ExtraFiles — the Go-idiomatic replacement for the
// original's fork()-then-exec() plugin loading, grounded on
// original_source/src/guacd/proc.c's "spawn one process per protocol"
// shape. cmd.Wait reaps the child itself, which is this rewrite's
// answer to spec.md §5's "SIGCHLD must not let workers accumulate as
// zombies" requirement — no explicit signal.Notify(SIGCHLD) is needed.
package main

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/sabouaram/guacd/internal/guacerr"
	"github.com/sabouaram/guacd/internal/identifier"
	"github.com/sabouaram/guacd/internal/router"
)

// pluginFD is the descriptor number the child process finds its end of
// the descriptor-passing channel on (stdin/stdout/stderr occupy 0-2;
// ExtraFiles starts handing out fd 3 in Go's exec.Cmd).
const pluginFD = 3

// processSpawner builds router.SpawnFunc values that launch external
// "guacd-plugin-<protocol>" binaries, the stand-in for the RDP/VNC/SSH/
// telnet engines spec.md places outside this core's scope.
type processSpawner struct{}

func (processSpawner) spawn(protocol string) (*router.Worker, guacerr.Error) {
	fds, errno := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if errno != nil {
		return nil, guacerr.IoError.Errorf("allocating worker descriptor-channel pair: %v", errno)
	}
	daemonEnd, workerEnd := fds[0], fds[1]

	id, idErr := identifier.Generate(identifier.PrefixWorker)
	if idErr != nil {
		_ = unix.Close(daemonEnd)
		_ = unix.Close(workerEnd)
		return nil, idErr
	}

	bin, lookErr := exec.LookPath(fmt.Sprintf("guacd-plugin-%s", protocol))
	if lookErr != nil {
		_ = unix.Close(daemonEnd)
		_ = unix.Close(workerEnd)
		return nil, guacerr.NotSupported.Errorf("no plugin registered for protocol %q", protocol)
	}

	workerFile := os.NewFile(uintptr(workerEnd), "guacd-plugin-channel")

	cmd := exec.Command(bin, id)
	cmd.ExtraFiles = []*os.File{workerFile}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		_ = workerFile.Close()
		_ = unix.Close(daemonEnd)
		return nil, guacerr.InternalError.Errorf("starting plugin %q: %v", bin, err)
	}
	// The parent's copy of the worker's end is only needed to pass the fd
	// across exec(); once the child has it (inherited via ExtraFiles) the
	// parent's copy is redundant and must be closed so EOF propagates
	// correctly when the child exits.
	_ = workerFile.Close()

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	return &router.Worker{
		ID:       id,
		FDSocket: daemonEnd,
		Wait: func() {
			<-waitErr
			_ = unix.Close(daemonEnd)
		},
	}, nil
}
