// Copyright © 2019 mg
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package project persists and restores the user-authored facts a Log
// carries -- entry points, assertions, jump-table resolutions, preserved
// labels and comments -- independent of whatever the symbolic CPU derives.
package project

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/mg6502/gilgamesh/pkg/log"
	"github.com/mg6502/gilgamesh/pkg/state"
)

// snapshot is the exact tuple named in the persistence contract: every
// field the Log keeps that analysis can't re-derive on its own.
type snapshot struct {
	EntryPoints           []log.EntryPoint
	InstructionAssertions map[uint32]state.StateChange
	SubroutineAssertions  map[uint32]map[uint32]state.StateChange
	JumpAssertions        map[uint32][]log.JumpTarget
	JumpTableTargets      map[uint32]int
	CompleteJumpTables    map[uint32]bool
	PreservedLabels       map[uint32]string
	Comments              map[uint32]string
}

func init() {
	gob.Register(snapshot{})
}

// Save encodes l's persisted fields into an opaque byte snapshot.
func Save(l *log.Log) ([]byte, error) {
	s := snapshot{
		EntryPoints:           l.EntryPoints,
		InstructionAssertions: l.InstructionAssertions,
		SubroutineAssertions:  l.SubroutineAssertions,
		JumpAssertions:        l.JumpAssertions,
		JumpTableTargets:      l.JumpTableTargets,
		CompleteJumpTables:    l.CompleteJumpTables,
		PreservedLabels:       l.PreservedLabels,
		Comments:              l.Comments,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("project: encoding snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Load decodes data into l, overwriting its persisted fields. Derived
// state (subroutines, instructions, local labels) is untouched; callers
// should follow Load with analysis.Analyze to rebuild it.
func Load(l *log.Log, data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return fmt.Errorf("project: decoding snapshot: %w", err)
	}
	l.EntryPoints = s.EntryPoints
	l.InstructionAssertions = s.InstructionAssertions
	l.SubroutineAssertions = s.SubroutineAssertions
	l.JumpAssertions = s.JumpAssertions
	l.JumpTableTargets = s.JumpTableTargets
	l.CompleteJumpTables = s.CompleteJumpTables
	l.PreservedLabels = s.PreservedLabels
	l.Comments = s.Comments
	return nil
}

// SaveFile writes l's snapshot to path.
func SaveFile(l *log.Log, path string) error {
	data, err := Save(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFile reads a snapshot from path into l.
func LoadFile(l *log.Log, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("project: reading %s: %w", path, err)
	}
	return Load(l, data)
}
