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

// Command fluxdrop is the command-line front end for LAN peer-to-peer
// file transfer: hosting a session, joining one discovered on the
// LAN, or connecting to a peer directly.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/fluxdrop/fluxdrop/internal/beacon"
	"github.com/fluxdrop/fluxdrop/internal/logger"
	"github.com/fluxdrop/fluxdrop/internal/session"
	"github.com/fluxdrop/fluxdrop/internal/transfer"
)

var l = logger.DefaultLogger

type cli struct {
	MetricsAddr string `name:"metrics-addr" help:"If set, serve Prometheus metrics on this address (e.g. :9090)."`

	Host    hostCmd    `cmd:"" help:"Serve one or more files/directories to a single peer."`
	Join    joinCmd    `cmd:"" help:"Discover a session on the LAN by id and connect to it."`
	Connect connectCmd `cmd:"" help:"Connect directly to a peer's ip:port."`
}

type hostCmd struct {
	Paths          []string `arg:"" name:"path" help:"Files or directories to send." type:"path"`
	SessionID      uint32   `name:"session" default:"1" help:"Session id announced in the discovery beacon."`
	Ignore         []string `name:"ignore" help:"Glob patterns to skip when expanding a directory."`
	BandwidthLimit int      `name:"bandwidth-limit" help:"Cap chunk writes to this many bytes/second (0 = unlimited)."`
}

type joinCmd struct {
	SessionID uint32        `arg:"" name:"session_id" help:"Session id to look for on the LAN."`
	PIN       int           `name:"pin" required:"" help:"PIN displayed by the host."`
	SaveDir   string        `name:"save-dir" help:"Destination directory; defaults to Downloads or the home directory."`
	Timeout   time.Duration `name:"timeout" default:"30s" help:"How long to wait for a matching beacon."`
}

type connectCmd struct {
	IP      string `arg:"" name:"ip"`
	Port    int    `arg:"" name:"port"`
	PIN     int    `name:"pin" required:"" help:"PIN displayed by the host."`
	SaveDir string `name:"save-dir" help:"Destination directory; defaults to Downloads or the home directory."`
}

func main() {
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		l.Debugf(format, args...)
	})); err != nil {
		l.Warnln("main: automaxprocs:", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("fluxdrop"),
		kong.Description("LAN peer-to-peer file transfer."),
		kong.Bind(ctx),
	)

	if c.MetricsAddr != "" {
		go serveMetrics(c.MetricsAddr)
	}

	kctx.FatalIfErrorf(kctx.Run())
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		l.Warnln("main: metrics server:", err)
	}
}

func (h *hostCmd) Run(ctx context.Context) error {
	var cancelFlag atomic.Bool
	go watchCancel(ctx, &cancelFlag)

	var jobs []transfer.Job
	for _, p := range h.Paths {
		expanded, err := transfer.ExpandJobs(p, h.SessionID, h.Ignore)
		if err != nil {
			return fmt.Errorf("expand %s: %w", p, err)
		}
		jobs = append(jobs, expanded...)
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no files to send")
	}

	sender := &session.Sender{
		Jobs:           transfer.NewQueue(jobs...),
		Cancel:         &cancelFlag,
		BandwidthLimit: h.BandwidthLimit,
		Callbacks: session.ServerCallbacks{
			OnReady: func(ip string, port, pin int) {
				fmt.Printf("Ready: %s:%d  PIN %04d\n", ip, port, pin)
			},
			OnStatus: func(msg string) { fmt.Println(msg) },
			OnProgress: func(filename string, done, total uint64, mibps float64) {
				fmt.Printf("\r%s: %d/%d bytes (%.2f MiB/s)", filename, done, total, mibps)
			},
			OnComplete: func() { fmt.Println("\ndone") },
			OnError:    func(msg string) { fmt.Fprintln(os.Stderr, msg) },
		},
	}

	if err := sender.Run(ctx); err != nil {
		return err
	}
	return nil
}

func (j *joinCmd) Run(ctx context.Context) error {
	instanceID, err := beacon.NewInstanceID()
	if err != nil {
		return err
	}

	found := make(chan beacon.DiscoveredDevice, 1)
	ln := beacon.NewListener(instanceID, func(d beacon.DiscoveredDevice) {
		if d.SessionID == j.SessionID {
			select {
			case found <- d:
			default:
			}
		}
	})

	listenCtx, stopListen := context.WithTimeout(ctx, j.Timeout)
	defer stopListen()
	go func() {
		if err := ln.Serve(listenCtx); err != nil && listenCtx.Err() == nil {
			l.Warnln("main: discovery listener:", err)
		}
	}()

	select {
	case d := <-found:
		stopListen()
		return connect(ctx, d.Addr.IP.String(), d.Addr.Port, j.PIN, j.SaveDir)
	case <-listenCtx.Done():
		return fmt.Errorf("no session %d found within %s", j.SessionID, j.Timeout)
	}
}

func (c *connectCmd) Run(ctx context.Context) error {
	return connect(ctx, c.IP, c.Port, c.PIN, c.SaveDir)
}

func connect(ctx context.Context, ip string, port, pin int, saveDir string) error {
	if saveDir == "" {
		saveDir = defaultSaveDir()
	}

	var cancelFlag atomic.Bool
	go watchCancel(ctx, &cancelFlag)

	receiver := &session.Receiver{
		SaveDir: saveDir,
		PIN:     pin,
		Cancel:  &cancelFlag,
		Callbacks: session.ClientCallbacks{
			OnStatus: func(msg string) { fmt.Println(msg) },
			OnProgress: func(filename string, done, total uint64, mibps float64) {
				fmt.Printf("\r%s: %d/%d bytes (%.2f MiB/s)", filename, done, total, mibps)
			},
			OnComplete: func() { fmt.Println("\ndone") },
			OnError:    func(msg string) { fmt.Fprintln(os.Stderr, msg) },
		},
	}
	return receiver.Run(ctx, ip, port)
}

// watchCancel flips cancelFlag once ctx is cancelled (Ctrl-C), giving
// the session layer's poll loops a bounded-latency signal per
// spec.md §5.
func watchCancel(ctx context.Context, cancelFlag *atomic.Bool) {
	<-ctx.Done()
	cancelFlag.Store(true)
}

func defaultSaveDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	downloads := filepath.Join(home, "Downloads")
	if info, err := os.Stat(downloads); err == nil && info.IsDir() {
		return downloads
	}
	return home
}

