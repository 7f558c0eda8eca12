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

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
)

// Job is one unit of work queued on the sender: a source file on
// disk, the logical (receiver-facing) filename, and the session ID
// it travels under.
type Job struct {
	SourcePath      string
	LogicalFilename string
	SessionID       uint32
}

// Queue is a FIFO queue of Jobs.
type Queue struct {
	jobs []Job
}

// NewQueue builds a queue from jobs in the given order.
func NewQueue(jobs ...Job) *Queue {
	q := &Queue{}
	q.jobs = append(q.jobs, jobs...)
	return q
}

// Push enqueues a job at the back of the queue.
func (q *Queue) Push(j Job) { q.jobs = append(q.jobs, j) }

// Pop removes and returns the job at the front of the queue.
func (q *Queue) Pop() (Job, bool) {
	if len(q.jobs) == 0 {
		return Job{}, false
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, true
}

// Peek returns the job at the front of the queue without removing it.
func (q *Queue) Peek() (Job, bool) {
	if len(q.jobs) == 0 {
		return Job{}, false
	}
	return q.jobs[0], true
}

// Len reports the number of jobs remaining.
func (q *Queue) Len() int { return len(q.jobs) }

// ExpandJobs turns a single enqueue target — a regular file or a
// directory — into one or more Jobs. A directory expands into one job
// per regular file, walked in lexical order, with LogicalFilename
// preserving the relative subpath under the directory's base name
// (spec.md §3). Paths matching any of the compiled ignore globs are
// skipped.
func ExpandJobs(sourcePath string, sessionID uint32, ignore []string) ([]Job, error) {
	compiled, err := compileIgnores(ignore)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("transfer: stat %s: %w", sourcePath, err)
	}

	if !info.IsDir() {
		if matchesAny(compiled, info.Name()) {
			return nil, nil
		}
		return []Job{{
			SourcePath:      sourcePath,
			LogicalFilename: info.Name(),
			SessionID:       sessionID,
		}}, nil
	}

	base := filepath.Base(filepath.Clean(sourcePath))
	var jobs []Job
	walkErr := filepath.WalkDir(sourcePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(sourcePath, path)
		if err != nil {
			return err
		}
		logical := filepath.ToSlash(filepath.Join(base, rel))
		if matchesAny(compiled, logical) || matchesAny(compiled, d.Name()) {
			return nil
		}
		jobs = append(jobs, Job{
			SourcePath:      path,
			LogicalFilename: logical,
			SessionID:       sessionID,
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("transfer: expand directory %s: %w", sourcePath, walkErr)
	}
	return jobs, nil
}

func compileIgnores(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("transfer: compile ignore pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

func matchesAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
