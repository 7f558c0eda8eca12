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

package protocol

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	cases := []PacketHeader{
		{},
		{Command: CmdFileMeta, PayloadSize: 42, SessionID: 100, Reserved: 0},
		{Command: CmdFileChunk, PayloadSize: 1 << 20, SessionID: 0xffffffff, Reserved: 7},
		{Command: CmdAuth, PayloadSize: 64, SessionID: 1, Reserved: 1},
	}
	for _, h := range cases {
		buf := Serialize(h)
		if len(buf) != HeaderSize {
			t.Fatalf("serialized header is %d bytes, want %d", len(buf), HeaderSize)
		}
		got := Deserialize(buf)
		if got != h {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, h)
		}
	}
}

func TestHeaderFieldOrder(t *testing.T) {
	h := PacketHeader{Command: 1, PayloadSize: 2, SessionID: 3, Reserved: 4}
	buf := Serialize(h)
	want := []byte{0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 4}
	for i, b := range want {
		if buf[i] != b {
			t.Fatalf("byte %d = %#x, want %#x (big-endian field order)", i, buf[i], b)
		}
	}
}

func TestZeroHeaderIsSentinel(t *testing.T) {
	var h PacketHeader
	if !h.IsZero() {
		t.Fatal("zero-value PacketHeader should report IsZero")
	}
	h.Command = CmdPing
	if h.IsZero() {
		t.Fatal("non-zero header reported as zero")
	}
}

func TestAcceptIsPongWireValue(t *testing.T) {
	if CmdAccept != CmdPong {
		t.Fatal("CmdAccept must share PONG's wire value for compatibility")
	}
}
