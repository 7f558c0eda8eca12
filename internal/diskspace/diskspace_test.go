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

package diskspace

import (
	"path/filepath"
	"testing"
)

func TestHasRoomAgainstTinyRequest(t *testing.T) {
	dir := t.TempDir()
	ok, err := HasRoom(filepath.Join(dir, "out.bin"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected room for a 1-byte file on a temp filesystem")
	}
}

func TestHasRoomAgainstImpossibleRequest(t *testing.T) {
	dir := t.TempDir()
	ok, err := HasRoom(filepath.Join(dir, "out.bin"), 1<<62)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no filesystem to have 4 exabytes free")
	}
}

// TestHasRoomAgainstUnexpandedNestedPath exercises a directory job's
// destination before any of its ancestor directories have been
// created by MkdirAll: HasRoom must walk up to dir itself, the
// nearest existing ancestor, rather than failing on the ENOENT
// Dir(path) would otherwise produce.
func TestHasRoomAgainstUnexpandedNestedPath(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "base", "sub", "deeper", "out.bin")
	ok, err := HasRoom(nested, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected room for a 1-byte file under an unexpanded nested path")
	}
}
