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

// Package security implements fluxdrop's one-shot shared-secret PIN:
// generation, hashing, and constant-time verification.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/blake2b"
)

const (
	pinMin = 1000
	pinMax = 9999
)

// GeneratePIN returns a uniformly random integer in [1000, 9999] from
// a cryptographically secure RNG.
func GeneratePIN() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(pinMax-pinMin+1))
	if err != nil {
		return 0, fmt.Errorf("security: generate pin: %w", err)
	}
	return pinMin + int(n.Int64()), nil
}

// HashPIN computes a 32-byte BLAKE2b digest of the decimal PIN text
// and returns it as a 64-character lowercase hex string.
func HashPIN(pin int) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%d", pin)))
	return hex.EncodeToString(sum[:])
}

// HashPINText hashes an already-formatted PIN string. For decimal
// text it yields the same digest as HashPIN on the equivalent int.
func HashPINText(pin string) string {
	sum := blake2b.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

// VerifyPIN reports whether pin hashes to expectedHex, compared in
// constant time.
func VerifyPIN(pin int, expectedHex string) bool {
	got := HashPIN(pin)
	return subtle.ConstantTimeCompare([]byte(got), []byte(expectedHex)) == 1
}

// VerifyHashHex constant-time compares two already-hashed hex
// digests, used on the sender side where the peer transmits a digest
// rather than a PIN.
func VerifyHashHex(gotHex, expectedHex string) bool {
	return subtle.ConstantTimeCompare([]byte(gotHex), []byte(expectedHex)) == 1
}
