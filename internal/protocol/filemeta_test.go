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

func TestFileInfoRoundTrip(t *testing.T) {
	info := FileInfo{Filename: "a.bin", Size: 5, Mime: "application/octet-stream"}
	buf, err := EncodeFileInfo(info)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeFileInfo(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != info {
		t.Errorf("got %+v, want %+v", got, info)
	}
}

func TestSanitizeRelativePathRejectsAbsolute(t *testing.T) {
	if _, err := SanitizeRelativePath("/etc/passwd"); err != ErrUnsafePath {
		t.Fatalf("expected ErrUnsafePath for absolute path, got %v", err)
	}
}

func TestSanitizeRelativePathRejectsTraversal(t *testing.T) {
	cases := []string{"../secret", "a/../../b", "a/b/../../../c"}
	for _, c := range cases {
		if _, err := SanitizeRelativePath(c); err != ErrUnsafePath {
			t.Errorf("path %q: expected ErrUnsafePath, got %v", c, err)
		}
	}
}

func TestSanitizeRelativePathAcceptsSafe(t *testing.T) {
	got, err := SanitizeRelativePath("sub/dir/file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "sub/dir/file.txt" {
		t.Errorf("got %q", got)
	}
}
