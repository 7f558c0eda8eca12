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
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/fluxdrop/fluxdrop/internal/protocol"
)

func TestSendFileReceiveFileHappyPath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.bin")
	content := []byte("HELLO")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "out", "a.bin")

	a, b := net.Pipe()
	sender := NewConn(a)
	receiver := NewConn(b)

	done := make(chan error, 1)
	go func() {
		done <- sender.SendFile(src, 100, 0, nil, nil)
	}()

	var cancel atomic.Bool
	result, err := receiver.ReceiveFile(dst, uint64(len(content)), 0, &cancel, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result != ReceiveCompleted {
		t.Fatalf("result = %v, want ReceiveCompleted", result)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("got %q, want %q", got, content)
	}
	if _, err := os.Stat(PartPath(dst)); !os.IsNotExist(err) {
		t.Fatal("expected .fluxpart to be removed after rename")
	}
}

func TestReceiveFileResume(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.bin")
	if err := os.WriteFile(PartPath(dst), []byte("HELL"), 0o644); err != nil {
		t.Fatal(err)
	}

	offset, err := ResumeOffset(dst)
	if err != nil {
		t.Fatal(err)
	}
	if offset != 4 {
		t.Fatalf("resume offset = %d, want 4", offset)
	}

	a, b := net.Pipe()
	sender := NewConn(a)
	receiver := NewConn(b)

	go func() {
		sender.SendHeader(protocol.PacketHeader{Command: protocol.CmdFileChunk, PayloadSize: 1})
		sender.WriteAll([]byte("O"))
	}()

	var cancel atomic.Bool
	result, err := receiver.ReceiveFile(dst, 5, offset, &cancel, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result != ReceiveCompleted {
		t.Fatalf("result = %v, want ReceiveCompleted", result)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "HELLO" {
		t.Fatalf("got %q, want HELLO", got)
	}
}

func TestReceiveFileCancelFromSender(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.bin")

	a, b := net.Pipe()
	sender := NewConn(a)
	receiver := NewConn(b)

	go func() {
		sender.SendHeader(protocol.PacketHeader{Command: protocol.CmdCancel})
	}()

	var cancel atomic.Bool
	result, err := receiver.ReceiveFile(dst, 10, 0, &cancel, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result != ReceiveCancelled {
		t.Fatalf("result = %v, want ReceiveCancelled", result)
	}
	if _, err := os.Stat(PartPath(dst)); !os.IsNotExist(err) {
		t.Fatal("expected .fluxpart to be deleted on sender cancel")
	}
}

func TestReceiveFileLocalCancel(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.bin")

	a, b := net.Pipe()
	receiver := NewConn(b)
	cancelSignalConn := NewConn(a)

	var cancel atomic.Bool
	cancel.Store(true)

	cancelReceived := make(chan struct{})
	go func() {
		h, _ := cancelSignalConn.ReceiveHeader()
		if h.Command == protocol.CmdCancel {
			close(cancelReceived)
		}
	}()

	result, err := receiver.ReceiveFile(dst, 10, 0, &cancel, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result != ReceiveCancelled {
		t.Fatalf("result = %v, want ReceiveCancelled", result)
	}
	<-cancelReceived
}
