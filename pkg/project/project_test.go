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

package project

import (
	"path/filepath"
	"testing"

	"github.com/mg6502/gilgamesh/pkg/log"
	"github.com/mg6502/gilgamesh/pkg/state"
)

func buildAssertedLog() *log.Log {
	l := log.New(nil)
	l.AddSubroutine(0x8000, 0, "main", true)
	l.AssertInstructionStateChange(0x8010, state.Known(state.True, nil))
	l.AssertSubroutineStateChange(0x8000, 0x8020, state.Known(nil, state.False))
	l.AssertJump(0x8030, 0x9000, 2, true)
	l.Comments[0x8040] = "loop counter"
	l.PreservedLabels[0x9000] = "jump_table_entry"
	return l
}

func TestSaveLoad_RoundTripsAssertionsAndComments(t *testing.T) {
	original := buildAssertedLog()

	data, err := Save(original)
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	restored := log.New(nil)
	if err := Load(restored, data); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got := restored.InstructionAssertions[0x8010]; got.M == nil || !*got.M {
		t.Errorf("InstructionAssertions[$8010] = %v, want m=1", got)
	}
	if got := restored.SubroutineAssertions[0x8000][0x8020]; got.X == nil || *got.X {
		t.Errorf("SubroutineAssertions[$8000][$8020] = %v, want x=0", got)
	}
	targets := restored.JumpAssertions[0x8030]
	if len(targets) != 1 || targets[0].Target != 0x9000 || !targets[0].HasIndex || targets[0].Index != 2 {
		t.Errorf("JumpAssertions[$8030] = %v, want one target at $9000 index 2", targets)
	}
	if got := restored.Comments[0x8040]; got != "loop counter" {
		t.Errorf("Comments[$8040] = %q, want %q", got, "loop counter")
	}
	if got := restored.PreservedLabels[0x9000]; got != "jump_table_entry" {
		t.Errorf("PreservedLabels[$9000] = %q, want %q", got, "jump_table_entry")
	}
	if len(restored.EntryPoints) != 1 || restored.EntryPoints[0].PC != 0x8000 {
		t.Errorf("EntryPoints = %v, want one entry point at $8000", restored.EntryPoints)
	}
}

func TestSaveFileLoadFile_RoundTripsThroughDisk(t *testing.T) {
	original := buildAssertedLog()
	path := filepath.Join(t.TempDir(), "snapshot.gilg")

	if err := SaveFile(original, path); err != nil {
		t.Fatalf("SaveFile() error: %v", err)
	}

	restored := log.New(nil)
	if err := LoadFile(restored, path); err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if got := restored.Comments[0x8040]; got != "loop counter" {
		t.Errorf("Comments[$8040] after disk round trip = %q, want %q", got, "loop counter")
	}
}
