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

// Package diskspace checks free space on a transfer destination
// before a file is accepted, per spec.md §5.3's insufficient-space
// rejection path.
package diskspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/disk"
)

// Free returns the number of bytes free on the filesystem backing
// path. path need not exist yet; its nearest existing ancestor
// directory is statted instead, since a destination a few directory
// levels deep in an as-yet-unexpanded TransferJob won't exist until
// the session creates it.
func Free(path string) (uint64, error) {
	dir := nearestExistingAncestor(filepath.Dir(path))
	usage, err := disk.Usage(dir)
	if err != nil {
		return 0, fmt.Errorf("diskspace: usage for %s: %w", dir, err)
	}
	return usage.Free, nil
}

// nearestExistingAncestor walks up from dir until it finds a
// directory that exists, stopping at the filesystem root.
func nearestExistingAncestor(dir string) string {
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

// HasRoom reports whether at least wantBytes are free at path.
func HasRoom(path string, wantBytes uint64) (bool, error) {
	free, err := Free(path)
	if err != nil {
		return false, err
	}
	return free >= wantBytes, nil
}
