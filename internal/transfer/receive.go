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

package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fluxdrop/fluxdrop/internal/protocol"
)

// PartSuffix is the reserved sibling name used for an in-progress
// download, per spec.md §3's PartialFile model.
const PartSuffix = ".fluxpart"

// ReceiveResult is the outcome of ReceiveFile.
type ReceiveResult int

const (
	ReceiveCompleted ReceiveResult = iota
	ReceiveCancelled
)

// PartPath returns the sibling partial-file path for a final
// destination path.
func PartPath(finalPath string) string {
	return finalPath + PartSuffix
}

// ResumeOffset stats the partial file sibling of finalPath, returning
// its size (the byte offset resumption should continue from), or 0 if
// no partial file exists.
func ResumeOffset(finalPath string) (uint64, error) {
	info, err := os.Stat(PartPath(finalPath))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(info.Size()), nil
}

// ReceiveFile reads FILE_CHUNK frames into <finalPath>.fluxpart until
// expectedSize bytes (including startOffset already on disk) have
// been written, then renames the partial file into place. It answers
// PING with PONG transparently, and handles a CANCEL from the sender
// or from the local cancel flag per spec.md §4.7.vi.
func (c *Conn) ReceiveFile(finalPath string, expectedSize, startOffset uint64, cancel *atomic.Bool, progress ProgressFunc) (ReceiveResult, error) {
	partPath := PartPath(finalPath)

	if parent := filepath.Dir(partPath); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return ReceiveCancelled, fmt.Errorf("transfer: create parent dirs: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if startOffset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(partPath, flags, 0o644)
	if err != nil {
		return ReceiveCancelled, fmt.Errorf("transfer: open part file: %w", err)
	}
	defer f.Close()

	totalReceived := startOffset
	startTime := time.Now()
	lastCB := startTime

	for totalReceived < expectedSize {
		if cancel != nil && cancel.Load() {
			f.Close()
			_ = c.SendHeader(protocol.PacketHeader{Command: protocol.CmdCancel})
			return ReceiveCancelled, nil
		}

		h, err := c.ReceiveHeader()
		if err != nil {
			return ReceiveCancelled, err
		}

		switch h.Command {
		case protocol.CmdFileChunk:
			buf, err := c.ReadExact(int(h.PayloadSize))
			if err != nil {
				return ReceiveCancelled, err
			}
			if _, err := f.Write(buf); err != nil {
				return ReceiveCancelled, fmt.Errorf("transfer: write part file: %w", err)
			}
			totalReceived += uint64(h.PayloadSize)

			if progress != nil {
				now := time.Now()
				if now.Sub(lastCB) >= progressInterval || totalReceived == expectedSize {
					elapsed := now.Sub(startTime).Seconds()
					sessionReceived := totalReceived - startOffset
					var mibps float64
					if elapsed > 0 {
						mibps = float64(sessionReceived) / elapsed / (1024 * 1024)
					}
					progress(filepath.Base(finalPath), totalReceived, expectedSize, mibps)
					lastCB = now
				}
			}

		case protocol.CmdCancel:
			f.Close()
			os.Remove(partPath)
			return ReceiveCancelled, nil

		case protocol.CmdPing:
			if err := c.SendHeader(protocol.PacketHeader{Command: protocol.CmdPong, SessionID: h.SessionID}); err != nil {
				return ReceiveCancelled, err
			}

		default:
			if h.IsZero() {
				return ReceiveCancelled, fmt.Errorf("transfer: peer disconnected mid-file")
			}
			// Unexpected command mid-stream: ignore and keep reading.
		}
	}

	if err := f.Close(); err != nil {
		return ReceiveCancelled, fmt.Errorf("transfer: close part file: %w", err)
	}
	if err := os.Rename(partPath, finalPath); err != nil {
		return ReceiveCancelled, fmt.Errorf("transfer: rename part file: %w", err)
	}
	return ReceiveCompleted, nil
}
