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

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
)

// FileInfo is the JSON-text payload carried by a FILE_META frame.
type FileInfo struct {
	Filename string `json:"filename"`
	Size     uint64 `json:"size"`
	Mime     string `json:"mime"`
}

// ErrUnsafePath is returned by SanitizeRelativePath when a filename is
// absolute or escapes its intended root via a ".." component.
var ErrUnsafePath = errors.New("protocol: unsafe relative path")

// EncodeFileInfo renders info as the compact JSON text sent on the wire.
func EncodeFileInfo(info FileInfo) ([]byte, error) {
	return json.Marshal(info)
}

// DecodeFileInfo parses the JSON text payload of a FILE_META frame.
func DecodeFileInfo(payload []byte) (FileInfo, error) {
	var info FileInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return FileInfo{}, err
	}
	return info, nil
}

// SanitizeRelativePath rejects an absolute filename or one containing
// a ".." path component, per spec.md §3's invariant and §9's
// resolution of the path-sanitization open question. On success it
// returns the cleaned, slash-normalized relative path.
func SanitizeRelativePath(name string) (string, error) {
	if name == "" {
		return "", ErrUnsafePath
	}
	if filepath.IsAbs(name) {
		return "", ErrUnsafePath
	}
	cleaned := filepath.Clean(name)
	for _, part := range strings.Split(filepath.ToSlash(cleaned), "/") {
		if part == ".." {
			return "", ErrUnsafePath
		}
	}
	if filepath.IsAbs(cleaned) {
		return "", ErrUnsafePath
	}
	return cleaned, nil
}
