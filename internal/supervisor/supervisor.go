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

// Package supervisor adapts fluxdrop's long-running loops (currently
// the sender's discovery broadcaster) into suture.Service so they
// restart under a supervision tree instead of dying silently.
package supervisor

import (
	"context"

	"github.com/thejerf/suture/v4"
)

type namedService struct {
	fn   func(context.Context) error
	name string
}

// AsService wraps fn as a suture.Service named name, the way the
// teacher's lib/suturewrap.AsService turned a plain context-aware
// function into something a suture.Supervisor could run and restart.
func AsService(fn func(context.Context) error, name string) suture.Service {
	return &namedService{fn: fn, name: name}
}

func (s *namedService) Serve(ctx context.Context) error {
	return s.fn(ctx)
}

func (s *namedService) String() string {
	return s.name
}

// New builds a supervisor with suture's default restart policy:
// a failing service is restarted indefinitely, and once failures pass
// suture's default threshold, restarts pause for its fixed default
// backoff period.
func New(name string) *suture.Supervisor {
	return suture.NewSimple(name)
}
