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

// Package metrics exposes fluxdrop's transfer counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BytesTransferred counts file-body bytes streamed by a sender or
	// written to disk by a receiver, labeled by direction so a single
	// registry can serve both a sender and receiver process.
	BytesTransferred = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fluxdrop_bytes_transferred_total",
		Help: "Total bytes transferred over fluxdrop sessions.",
	}, []string{"direction"})

	// FilesCompleted counts files that finished streaming: on a
	// sender once the last chunk is written, on a receiver once the
	// partial file is renamed into place.
	FilesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxdrop_files_completed_total",
		Help: "Total files successfully sent, or received and renamed into place.",
	})

	// FilesFailed counts files whose streaming ended in an I/O error.
	// Rejections and cancellations are not counted here.
	FilesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxdrop_files_failed_total",
		Help: "Total files that failed to transfer.",
	})

	// FilesCancelled counts files whose transfer was cancelled by
	// either peer, counted separately from failures.
	FilesCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxdrop_files_cancelled_total",
		Help: "Total files whose transfer was cancelled.",
	})
)

const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)
