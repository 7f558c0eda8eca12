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

// Package beacon implements fluxdrop's UDP LAN discovery: a
// broadcaster that announces a listening sender once a second, and a
// listener that receives, deduplicates, and surfaces those
// announcements as DiscoveredDevice events.
package beacon

import (
	"context"
	"net"

	"github.com/fluxdrop/fluxdrop/internal/logger"
)

var l = logger.DefaultLogger

// Port is the fixed UDP port fluxdrop's discovery beacon uses, per
// spec.md §4.3/§4.4.
const Port = 45454

// listenReuseAddr opens a UDP listen socket on Port with SO_REUSEADDR
// set, so overlapping local `join` attempts on the same host don't
// fail to bind. See listen_unix.go / listen_other.go.
func listenReuseAddr(ctx context.Context, port int) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	return lc.ListenPacket(ctx, "udp4", localAddr(port))
}

func localAddr(port int) string {
	return (&net.UDPAddr{Port: port}).String()
}

// bcast computes the broadcast address of the network iaddr belongs
// to, by OR-ing the host bits of its address with the complement of
// its subnet mask.
func bcast(iaddr *net.IPNet) *net.IPNet {
	bc := &net.IPNet{}
	bc.IP = make([]byte, len(iaddr.IP))
	copy(bc.IP, iaddr.IP)
	bc.Mask = iaddr.Mask

	offset := len(bc.IP) - len(bc.Mask)
	for i := range bc.IP {
		if i-offset >= 0 {
			bc.IP[i] = iaddr.IP[i] | ^iaddr.Mask[i-offset]
		}
	}
	return bc
}

// broadcastDestinations enumerates the IPv4 broadcast addresses of
// every global-unicast interface address on the host, falling back to
// the general 255.255.255.255 address if none are found — the same
// fallback chain as the teacher's beacon.Broadcast.writer.
func broadcastDestinations() []net.IP {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		l.Warnln("beacon: interface addresses:", err)
	}

	var dsts []net.IP
	for _, addr := range addrs {
		if iaddr, ok := addr.(*net.IPNet); ok && len(iaddr.IP) >= 4 && iaddr.IP.IsGlobalUnicast() && iaddr.IP.To4() != nil {
			dsts = append(dsts, bcast(iaddr).IP)
		}
	}

	if len(dsts) == 0 {
		dsts = append(dsts, net.IP{0xff, 0xff, 0xff, 0xff})
	}
	return dsts
}
