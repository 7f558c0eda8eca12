// Copyright (C) 2014 Jakob Borg and Contributors (see the CONTRIBUTORS file).
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE. See the GNU General Public License for
// more details.
//
// You should have received a copy of the GNU General Public License along
// with this program. If not, see <http://www.gnu.org/licenses/>.

package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fluxdrop/fluxdrop/internal/diskspace"
	"github.com/fluxdrop/fluxdrop/internal/metrics"
	"github.com/fluxdrop/fluxdrop/internal/protocol"
	"github.com/fluxdrop/fluxdrop/internal/security"
	"github.com/fluxdrop/fluxdrop/internal/transfer"
)

// Receiver implements the receiver half of spec.md §4.7: connect,
// authenticate, then consume a meta/chunk stream per file.
type Receiver struct {
	SaveDir   string
	PIN       int
	Callbacks ClientCallbacks
	Cancel    *atomic.Bool
}

// Run dials (ip, port), authenticates with r.PIN, and loops consuming
// files until the peer disconnects or sends a cancellable error.
func (r *Receiver) Run(ctx context.Context, ip string, port int) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp4", net.JoinHostPort(ip, fmt.Sprintf("%d", port)))
	if err != nil {
		wrapped := newErr(ErrIoFailed, fmt.Errorf("dial %s:%d: %w", ip, port, err))
		r.Callbacks.errorf(wrapped.Error())
		return wrapped
	}
	defer conn.Close()

	c := transfer.NewConn(conn)

	if err := r.authenticate(c); err != nil {
		r.Callbacks.errorf(err.Error())
		return err
	}
	r.Callbacks.status("authenticated")

	for {
		h, err := c.ReceiveHeader()
		if err != nil {
			wrapped := newErr(ErrIoFailed, fmt.Errorf("receive header: %w", err))
			r.Callbacks.errorf(wrapped.Error())
			return wrapped
		}

		switch {
		case h.IsZero():
			if r.Callbacks.OnComplete != nil {
				r.Callbacks.OnComplete()
			}
			return nil
		case h.Command == protocol.CmdPing:
			if err := c.SendHeader(protocol.PacketHeader{Command: protocol.CmdPong}); err != nil {
				wrapped := newErr(ErrIoFailed, fmt.Errorf("reply pong: %w", err))
				r.Callbacks.errorf(wrapped.Error())
				return wrapped
			}
		case h.Command == protocol.CmdFileMeta:
			if err := r.handleFileMeta(c, h); err != nil {
				r.Callbacks.errorf(err.Error())
				return err
			}
		default:
			wrapped := newErr(ErrProtocolViolation, fmt.Errorf("unexpected command %d", h.Command))
			r.Callbacks.errorf(wrapped.Error())
			return wrapped
		}
	}
}

func (r *Receiver) authenticate(c *transfer.Conn) error {
	digest := security.HashPIN(r.PIN)
	if err := c.SendHeader(protocol.PacketHeader{Command: protocol.CmdAuth, PayloadSize: uint32(len(digest))}); err != nil {
		return newErr(ErrIoFailed, fmt.Errorf("send auth header: %w", err))
	}
	if err := c.WriteAll([]byte(digest)); err != nil {
		return newErr(ErrIoFailed, fmt.Errorf("send auth payload: %w", err))
	}

	h, err := c.ReceiveHeader()
	if err != nil {
		return newErr(ErrIoFailed, fmt.Errorf("receive auth response: %w", err))
	}
	if h.Command != protocol.CmdAuthOK {
		return newErr(ErrAuthRejected, fmt.Errorf("auth rejected (command %d)", h.Command))
	}
	return nil
}

func (r *Receiver) handleFileMeta(c *transfer.Conn, h protocol.PacketHeader) error {
	info, err := c.ReceiveFileMeta(h.PayloadSize)
	if err != nil {
		return newErr(ErrProtocolViolation, fmt.Errorf("receive file meta: %w", err))
	}

	safeName, err := protocol.SanitizeRelativePath(info.Filename)
	if err != nil {
		return newErr(ErrProtocolViolation, fmt.Errorf("unsafe filename %q: %w", info.Filename, err))
	}
	finalPath := filepath.Join(r.SaveDir, safeName)

	ok, err := diskspace.HasRoom(finalPath, info.Size)
	if err != nil {
		return newErr(ErrIoFailed, fmt.Errorf("check free space: %w", err))
	}
	if !ok {
		l.Infof("receiver: insufficient space for %s (%d bytes)", safeName, info.Size)
		return c.SendHeader(protocol.PacketHeader{Command: protocol.CmdCancel})
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return newErr(ErrIoFailed, fmt.Errorf("create directories: %w", err))
	}

	resumeOffset, err := transfer.ResumeOffset(finalPath)
	if err != nil {
		return newErr(ErrIoFailed, fmt.Errorf("resume offset: %w", err))
	}

	if !r.Callbacks.fileRequest(safeName, info.Size) {
		return c.SendHeader(protocol.PacketHeader{Command: protocol.CmdCancel})
	}

	if resumeOffset > 0 {
		if err := c.SendHeader(protocol.PacketHeader{Command: protocol.CmdResume, PayloadSize: uint32(resumeOffset)}); err != nil {
			return newErr(ErrIoFailed, fmt.Errorf("send resume: %w", err))
		}
	} else {
		if err := c.SendHeader(protocol.PacketHeader{Command: protocol.CmdAccept}); err != nil {
			return newErr(ErrIoFailed, fmt.Errorf("send accept: %w", err))
		}
	}

	progress := func(filename string, done, total uint64, mibps float64) {
		if r.Callbacks.OnProgress != nil {
			r.Callbacks.OnProgress(filename, done, total, mibps)
		}
	}

	result, err := c.ReceiveFile(finalPath, info.Size, resumeOffset, r.Cancel, progress)
	if err != nil {
		metrics.FilesFailed.Inc()
		return newErr(ErrIoFailed, fmt.Errorf("receive %s: %w", safeName, err))
	}

	switch result {
	case transfer.ReceiveCompleted:
		metrics.BytesTransferred.WithLabelValues(metrics.DirectionReceived).Add(float64(info.Size - resumeOffset))
		metrics.FilesCompleted.Inc()
		l.Infof("receiver: completed %s", safeName)
	case transfer.ReceiveCancelled:
		metrics.FilesCancelled.Inc()
		if r.Cancel != nil && r.Cancel.Load() {
			return newErr(ErrLocalCancel, errors.New("cancelled locally"))
		}
		l.Infof("receiver: %s cancelled by peer", safeName)
	}
	return nil
}
