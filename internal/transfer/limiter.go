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

package transfer

import "golang.org/x/time/rate"

// NewBandwidthLimiter builds a rate.Limiter capping chunk writes to
// bytesPerSecond. A non-positive value means unlimited, represented
// as a nil limiter (SendFile treats nil as "no throttling").
func NewBandwidthLimiter(bytesPerSecond int) *rate.Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	// Burst equal to one chunk so a single SendFile write never stalls
	// waiting on tokens it could otherwise have banked.
	return rate.NewLimiter(rate.Limit(bytesPerSecond), ChunkSize)
}
