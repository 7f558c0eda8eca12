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

// Package protocol implements fluxdrop's wire codec: the fixed 16-byte
// packet header and the JSON file-metadata payload carried in a
// FILE_META frame.
package protocol

import "encoding/binary"

// CommandType is the closed set of values carried in a PacketHeader's
// Command field.
type CommandType uint32

const (
	CmdFileMeta CommandType = 1
	CmdFileChunk CommandType = 2
	CmdCancel    CommandType = 3
	CmdPing      CommandType = 4
	CmdPong      CommandType = 5
	// CmdAccept is the wire value historically named PONG: a receiver
	// replying PONG to a FILE_META means "accept, stream from byte 0".
	// Named Accept internally per spec.md §9's note, same wire value.
	CmdAccept   = CmdPong
	CmdAuth     CommandType = 6
	CmdAuthOK   CommandType = 7
	CmdAuthFail CommandType = 8
	CmdResume   CommandType = 9
)

// HeaderSize is the fixed on-the-wire size of a PacketHeader.
const HeaderSize = 16

// PacketHeader is the 16-byte fixed header preceding every frame:
// four big-endian uint32 fields, never padded.
type PacketHeader struct {
	Command     CommandType
	PayloadSize uint32
	SessionID   uint32
	Reserved    uint32
}

// IsZero reports whether h is the all-zero sentinel header the codec
// returns on a clean peer disconnect.
func (h PacketHeader) IsZero() bool {
	return h.Command == 0 && h.PayloadSize == 0 && h.SessionID == 0 && h.Reserved == 0
}

// Serialize encodes h as exactly HeaderSize bytes, fields in
// declaration order, each big-endian uint32.
func Serialize(h PacketHeader) [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(h.Command))
	binary.BigEndian.PutUint32(buf[4:8], h.PayloadSize)
	binary.BigEndian.PutUint32(buf[8:12], h.SessionID)
	binary.BigEndian.PutUint32(buf[12:16], h.Reserved)
	return buf
}

// Deserialize is the inverse of Serialize. It never fails: any
// HeaderSize-byte input decodes to some PacketHeader, including the
// all-zero one. Unknown Command values are not rejected at this
// layer — the session layer decides what to do with them.
func Deserialize(buf [HeaderSize]byte) PacketHeader {
	return PacketHeader{
		Command:     CommandType(binary.BigEndian.Uint32(buf[0:4])),
		PayloadSize: binary.BigEndian.Uint32(buf[4:8]),
		SessionID:   binary.BigEndian.Uint32(buf[8:12]),
		Reserved:    binary.BigEndian.Uint32(buf[12:16]),
	}
}
