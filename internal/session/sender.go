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
	"sync/atomic"
	"time"

	"github.com/fluxdrop/fluxdrop/internal/beacon"
	"github.com/fluxdrop/fluxdrop/internal/logger"
	"github.com/fluxdrop/fluxdrop/internal/metrics"
	"github.com/fluxdrop/fluxdrop/internal/protocol"
	"github.com/fluxdrop/fluxdrop/internal/security"
	"github.com/fluxdrop/fluxdrop/internal/supervisor"
	"github.com/fluxdrop/fluxdrop/internal/transfer"
)

var l = logger.DefaultLogger

// acceptPollInterval bounds how long Sender.Run blocks between cancel
// checks while waiting for a peer, per spec.md §4.6 step 5 and the
// 400ms cancellation-liveness bound of §8.
const acceptPollInterval = 200 * time.Millisecond

// Sender implements the sender half of spec.md §4.6: accept one peer,
// authenticate, then stream a FIFO job queue.
type Sender struct {
	Jobs           *transfer.Queue
	Callbacks      ServerCallbacks
	Cancel         *atomic.Bool
	BandwidthLimit int // bytes/second, 0 = unlimited
}

// Run executes the full sender session to completion, returning nil
// on a normal Complete and a *Error otherwise. It invokes exactly one
// of Callbacks.OnComplete or Callbacks.OnError before returning.
func (s *Sender) Run(ctx context.Context) error {
	first, ok := s.Jobs.Peek()
	if !ok {
		err := newErr(ErrNoWork, errors.New("no jobs queued"))
		s.Callbacks.errorf(err.Error())
		return err
	}
	sessionID := first.SessionID

	ln, err := net.Listen("tcp4", ":0")
	if err != nil {
		wrapped := newErr(ErrBindFailed, fmt.Errorf("listen: %w", err))
		s.Callbacks.errorf(wrapped.Error())
		return wrapped
	}
	defer ln.Close()
	tcpLn := ln.(*net.TCPListener)

	port := ln.Addr().(*net.TCPAddr).Port
	ip := localIP()

	pin, err := security.GeneratePIN()
	if err != nil {
		wrapped := newErr(ErrIoFailed, fmt.Errorf("generate pin: %w", err))
		s.Callbacks.errorf(wrapped.Error())
		return wrapped
	}
	pinHash := security.HashPIN(pin)

	if s.Callbacks.OnReady != nil {
		s.Callbacks.OnReady(ip, port, pin)
	}
	s.Callbacks.status("waiting for peer")

	instanceID, err := beacon.NewInstanceID()
	if err != nil {
		wrapped := newErr(ErrIoFailed, fmt.Errorf("instance id: %w", err))
		s.Callbacks.errorf(wrapped.Error())
		return wrapped
	}
	broadcaster, err := beacon.NewBroadcaster(sessionID, port, instanceID)
	if err != nil {
		wrapped := newErr(ErrIoFailed, fmt.Errorf("broadcaster: %w", err))
		s.Callbacks.errorf(wrapped.Error())
		return wrapped
	}

	bcastCtx, stopBcast := context.WithCancel(ctx)
	sup := supervisor.New("fluxdrop-sender-beacon")
	sup.Add(supervisor.AsService(broadcaster.Serve, "beacon-broadcaster"))
	go func() {
		if err := sup.Serve(bcastCtx); err != nil && bcastCtx.Err() == nil {
			l.Warnln("sender: beacon supervisor exited:", err)
		}
	}()

	conn, err := s.accept(tcpLn)
	stopBcast()
	if err != nil {
		if errors.Is(err, errAcceptCancelled) {
			wrapped := newErr(ErrAcceptCancelled, err)
			s.Callbacks.errorf(wrapped.Error())
			return wrapped
		}
		wrapped := newErr(ErrIoFailed, fmt.Errorf("accept: %w", err))
		s.Callbacks.errorf(wrapped.Error())
		return wrapped
	}
	defer conn.Close()

	c := transfer.NewConn(conn)

	if err := s.authenticate(c, pinHash); err != nil {
		s.Callbacks.errorf(err.Error())
		return err
	}

	for {
		job, ok := s.Jobs.Pop()
		if !ok {
			break
		}
		if err := s.runJob(c, job); err != nil {
			s.Callbacks.errorf(err.Error())
			return err
		}
	}

	if s.Callbacks.OnComplete != nil {
		s.Callbacks.OnComplete()
	}
	return nil
}

var errAcceptCancelled = errors.New("accept cancelled")

// accept waits for a single TCP connection, polling the cancel flag
// every acceptPollInterval so a set flag is observed promptly.
func (s *Sender) accept(ln *net.TCPListener) (net.Conn, error) {
	for {
		if s.Cancel != nil && s.Cancel.Load() {
			return nil, errAcceptCancelled
		}
		ln.SetDeadline(time.Now().Add(acceptPollInterval))
		conn, err := ln.Accept()
		if err == nil {
			return conn, nil
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			continue
		}
		return nil, err
	}
}

// authenticate receives the AUTH packet and replies AUTH_OK or
// AUTH_FAIL, per spec.md §4.6 step 7.
func (s *Sender) authenticate(c *transfer.Conn, pinHash string) error {
	h, err := c.ReceiveHeader()
	if err != nil {
		return newErr(ErrIoFailed, fmt.Errorf("receive auth header: %w", err))
	}
	if h.Command != protocol.CmdAuth {
		return newErr(ErrProtocolViolation, fmt.Errorf("expected AUTH, got command %d", h.Command))
	}
	digest, err := c.ReadExact(int(h.PayloadSize))
	if err != nil {
		return newErr(ErrIoFailed, fmt.Errorf("read auth payload: %w", err))
	}

	if !security.VerifyHashHex(string(digest), pinHash) {
		c.SendHeader(protocol.PacketHeader{Command: protocol.CmdAuthFail})
		return newErr(ErrAuthRejected, errors.New("pin mismatch"))
	}
	if err := c.SendHeader(protocol.PacketHeader{Command: protocol.CmdAuthOK}); err != nil {
		return newErr(ErrIoFailed, fmt.Errorf("send auth ok: %w", err))
	}
	s.Callbacks.status("authenticated")
	return nil
}

// runJob streams one file, per spec.md §4.6 step 8. A missing source
// file or a peer CANCEL ends the job without failing the session; a
// peer disconnect (all-zero header) is fatal.
func (s *Sender) runJob(c *transfer.Conn, job transfer.Job) error {
	info, err := os.Stat(job.SourcePath)
	if err != nil {
		l.Infof("sender: skipping missing source %s: %v", job.SourcePath, err)
		return nil
	}

	fileInfo := protocol.FileInfo{
		Filename: job.LogicalFilename,
		Size:     uint64(info.Size()),
		Mime:     "application/octet-stream",
	}
	if err := c.SendFileMeta(job.SessionID, fileInfo); err != nil {
		return newErr(ErrIoFailed, fmt.Errorf("send file meta: %w", err))
	}

	for {
		h, err := c.ReceiveHeader()
		if err != nil {
			return newErr(ErrIoFailed, fmt.Errorf("receive header: %w", err))
		}

		switch {
		case h.IsZero():
			return newErr(ErrPeerDisconnected, errors.New("peer disconnected mid-handshake"))
		case h.Command == protocol.CmdPing:
			if err := c.SendHeader(protocol.PacketHeader{Command: protocol.CmdPong}); err != nil {
				return newErr(ErrIoFailed, fmt.Errorf("reply pong: %w", err))
			}
			continue
		case h.Command == protocol.CmdCancel:
			metrics.FilesCancelled.Inc()
			l.Infof("sender: %s cancelled by peer", job.LogicalFilename)
			return nil
		case h.Command == protocol.CmdAccept:
			return s.stream(c, job, fileInfo, 0)
		case h.Command == protocol.CmdResume:
			return s.stream(c, job, fileInfo, uint64(h.PayloadSize))
		default:
			return newErr(ErrProtocolViolation, fmt.Errorf("unexpected command %d awaiting accept", h.Command))
		}
	}
}

func (s *Sender) stream(c *transfer.Conn, job transfer.Job, fileInfo protocol.FileInfo, startOffset uint64) error {
	limiter := transfer.NewBandwidthLimiter(s.BandwidthLimit)
	progress := func(filename string, done, total uint64, mibps float64) {
		if s.Callbacks.OnProgress != nil {
			s.Callbacks.OnProgress(filename, done, total, mibps)
		}
	}
	if err := c.SendFile(job.SourcePath, job.SessionID, startOffset, limiter, progress); err != nil {
		metrics.FilesFailed.Inc()
		return newErr(ErrIoFailed, fmt.Errorf("stream %s: %w", job.LogicalFilename, err))
	}
	metrics.BytesTransferred.WithLabelValues(metrics.DirectionSent).Add(float64(fileInfo.Size - startOffset))
	metrics.FilesCompleted.Inc()
	return nil
}
