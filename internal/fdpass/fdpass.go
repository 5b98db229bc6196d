/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package fdpass sends and receives an open file descriptor across a
// UNIX domain socket via SCM_RIGHTS, the mechanism guacd uses to hand a
// freshly accepted client connection from the listener process to a
// forked worker and back. Grounded on
// original_source/src/guacd/move-fd.c; golang.org/x/sys/unix supplies
// Sendmsg/Recvmsg and the UnixRights control-message helper the
// standard library doesn't expose.
package fdpass

import (
	"golang.org/x/sys/unix"

	"github.com/sabouaram/guacd/internal/guacerr"
)

// sentinel is the one-byte payload that must precede the SCM_RIGHTS
// control message, guarding against a message that happens to carry a
// descriptor without actually meaning to send one.
const sentinel = 'G'

// Send passes fd across the UNIX domain socket sock, preceded by the
// sentinel byte.
func Send(sock int, fd int) guacerr.Error {
	rights := unix.UnixRights(fd)
	if err := unix.Sendmsg(sock, []byte{sentinel}, rights, nil, 0); err != nil {
		return guacerr.IoError.Errorf("sending descriptor: %v", err)
	}
	return nil
}

// Receive reads a descriptor sent with Send from sock. It reports
// ProtocolError if the message is not preceded by the sentinel byte, or
// if no descriptor was attached.
func Receive(sock int) (int, guacerr.Error) {
	data := make([]byte, 1)
	control := make([]byte, unix.CmsgSpace(4))

	n, oobn, _, _, err := unix.Recvmsg(sock, data, control, 0)
	if err != nil {
		return -1, guacerr.IoError.Errorf("receiving descriptor: %v", err)
	}
	if n != 1 || data[0] != sentinel {
		return -1, guacerr.ProtocolError.Errorf("missing descriptor sentinel byte")
	}

	messages, err := unix.ParseSocketControlMessage(control[:oobn])
	if err != nil {
		return -1, guacerr.ProtocolError.Errorf("parsing control message: %v", err)
	}

	for _, msg := range messages {
		fds, err := unix.ParseUnixRights(&msg)
		if err != nil {
			continue
		}
		if len(fds) > 0 {
			return fds[0], nil
		}
	}

	return -1, guacerr.ProtocolError.Errorf("no descriptor in control message")
}
