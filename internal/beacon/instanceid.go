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
	"crypto/rand"
	"encoding/hex"
)

// instanceIDLen is the fixed length, in hex characters, of an
// instance id.
const instanceIDLen = 16

// NewInstanceID returns a fresh random instance id on every call.
// session.Sender.Run draws a new one for each session it hosts and
// does not take one from its caller, so a Listener in the same process
// filters that sender's beacons only if it was built with the same id.
func NewInstanceID() (string, error) {
	buf := make([]byte, instanceIDLen/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
