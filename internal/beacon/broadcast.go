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

package beacon

import (
	"context"
	"fmt"
	"net"
	"time"
)

// announceInterval is how often the broadcaster repeats its
// announcement datagram, per spec.md §4.3.
const announceInterval = time.Second

// Broadcaster periodically emits fluxdrop's discovery datagram
// (FLUXDROP|session_id|tcp_port|instance_id) to the LAN broadcast
// address, the way the teacher's Broadcast.writer loop repeated an
// Announce packet to every local interface's broadcast address.
type Broadcaster struct {
	conn       *net.UDPConn
	sessionID  uint32
	tcpPort    int
	instanceID string
}

// NewBroadcaster opens the UDP send socket used to announce a hosted
// session identified by sessionID, reachable on tcpPort, tagged with
// instanceID so listeners on the same host can ignore their own beacon.
func NewBroadcaster(sessionID uint32, tcpPort int, instanceID string) (*Broadcaster, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("beacon: open broadcast socket: %w", err)
	}
	return &Broadcaster{conn: conn, sessionID: sessionID, tcpPort: tcpPort, instanceID: instanceID}, nil
}

// Payload formats the wire text of this broadcaster's announcement.
func (b *Broadcaster) Payload() string {
	return fmt.Sprintf("FLUXDROP|%d|%d|%s", b.sessionID, b.tcpPort, b.instanceID)
}

// Serve sends the announcement once a second to every broadcast
// address on the host until ctx is cancelled. Its signature matches
// suture.Service so the caller can run it as a supervised service
// alongside the rest of a sender's session.
func (b *Broadcaster) Serve(ctx context.Context) error {
	defer b.conn.Close()

	payload := []byte(b.Payload())
	ticker := time.NewTicker(announceInterval)
	defer ticker.Stop()

	b.announce(payload)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.announce(payload)
		}
	}
}

func (b *Broadcaster) announce(payload []byte) {
	for _, dst := range broadcastDestinations() {
		addr := &net.UDPAddr{IP: dst, Port: Port}
		if _, err := b.conn.WriteTo(payload, addr); err != nil {
			l.Debugf("beacon: write to %s: %v", addr, err)
		} else {
			l.Debugf("beacon: sent %d bytes to %s", len(payload), addr)
		}
	}
}

// Stop closes the broadcaster's socket immediately, unblocking any
// in-flight Serve call's next write.
func (b *Broadcaster) Stop() {
	b.conn.Close()
}
