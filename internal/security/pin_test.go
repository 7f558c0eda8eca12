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

package security

import "testing"

func TestGeneratePINRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		pin, err := GeneratePIN()
		if err != nil {
			t.Fatal(err)
		}
		if pin < 1000 || pin > 9999 {
			t.Fatalf("pin %d out of range [1000,9999]", pin)
		}
	}
}

func TestHashPINDeterministic(t *testing.T) {
	h1 := HashPIN(1234)
	h2 := HashPIN(1234)
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %q != %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("hash length = %d, want 64", len(h1))
	}
}

func TestHashPINDistinctForDistinctPINs(t *testing.T) {
	if HashPIN(1234) == HashPIN(4321) {
		t.Fatal("distinct PINs hashed to the same digest")
	}
}

func TestVerifyPIN(t *testing.T) {
	pin := 1234
	hash := HashPIN(pin)
	if !VerifyPIN(pin, hash) {
		t.Fatal("VerifyPIN should accept the correct PIN")
	}
	if VerifyPIN(0000, hash) {
		t.Fatal("VerifyPIN should reject an incorrect PIN")
	}
}

func TestHashPINTextMatchesHashPIN(t *testing.T) {
	if HashPINText("1234") != HashPIN(1234) {
		t.Fatal("HashPINText and HashPIN disagree for the same decimal text")
	}
}

func TestVerifyHashHex(t *testing.T) {
	hash := HashPIN(1234)
	if !VerifyHashHex(HashPINText("1234"), hash) {
		t.Fatal("VerifyHashHex should accept a matching digest")
	}
	if VerifyHashHex(HashPINText("0000"), hash) {
		t.Fatal("VerifyHashHex should reject a mismatched digest")
	}
}
