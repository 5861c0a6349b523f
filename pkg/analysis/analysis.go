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

// Package analysis drives a full pass of the symbolic CPU over every
// registered entry point and regenerates local labels from what it finds.
package analysis

import (
	"github.com/golang/glog"

	"github.com/mg6502/gilgamesh/pkg/cpu"
	"github.com/mg6502/gilgamesh/pkg/log"
)

// Analyze runs the analysis driver: reset derived state (folding the
// current labels into PreservedLabels when preserveLabels is true),
// recreate a Subroutine for every entry point, walk the symbolic CPU from
// each in declared order, then regenerate local labels from the
// references the walk discovered.
func Analyze(l *log.Log, preserveLabels bool) {
	var kept map[uint32]string
	if !preserveLabels {
		kept = make(map[uint32]string, len(l.PreservedLabels))
		for pc, name := range l.PreservedLabels {
			kept[pc] = name
		}
	}
	l.Reset()
	if !preserveLabels {
		l.PreservedLabels = kept
	}

	entryPoints := append([]log.EntryPoint(nil), l.EntryPoints...)
	l.EntryPoints = nil

	for _, ep := range entryPoints {
		sub := l.AddSubroutine(ep.PC, ep.P, ep.Name, true)
		glog.Infof("analysis: walking entry point %s at $%06X", sub.Label, ep.PC)
		cpu.Run(l, l.ROM, ep.PC, ep.P, ep.PC)
	}

	l.GenerateLabels()
	l.Dirty = false
}

// Reset clears every derived fact (subroutines, instructions, local
// labels, references) without forgetting assertions, entry points,
// comments or (via PreservedLabels) renamed labels.
func Reset(l *log.Log) {
	l.Reset()
}
