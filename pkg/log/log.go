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

// Package log implements the Log: the single long-lived aggregate that
// cross-indexes every fact the symbolic CPU discovers -- subroutines,
// instructions, local labels, cross-references, assertions, jump-table
// resolutions and entry points -- and owns the reset/analyze lifecycle.
package log

import (
	"fmt"
	"sort"
	"strings"

	"github.com/golang/glog"

	"github.com/mg6502/gilgamesh/pkg/errgm"
	"github.com/mg6502/gilgamesh/pkg/ir"
	"github.com/mg6502/gilgamesh/pkg/rom"
	"github.com/mg6502/gilgamesh/pkg/state"
)

// reservedLabelNames are the 65C816 register aliases spec.md reserves: a
// rename must never shadow one, since it would read as an operand rather
// than a label in disassembly output.
var reservedLabelNames = map[string]bool{
	"a": true, "x": true, "y": true, "s": true, "p": true,
	"d": true, "dbr": true, "pbr": true, "pc": true,
}

// isIdentifier reports whether s is a valid label identifier: non-empty,
// starting with a letter or underscore, and containing only letters,
// digits and underscores thereafter.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// validateLabel enforces spec.md's rename rules on the proposed new name:
// it must be an identifier, must not start with an auto-name prefix, and
// must not equal a reserved hardware-register alias. Scope collisions are
// checked by the caller, which alone knows which map new would land in.
func validateLabel(new string) error {
	if !isIdentifier(new) {
		return fmt.Errorf("rename to %q: not a valid identifier: %w", new, errgm.ErrInvalidLabel)
	}
	if strings.HasPrefix(new, "sub_") || strings.HasPrefix(new, "loc_") {
		return fmt.Errorf("rename to %q: reserved auto-name prefix: %w", new, errgm.ErrInvalidLabel)
	}
	if reservedLabelNames[strings.ToLower(new)] {
		return fmt.Errorf("rename to %q: reserved hardware-register alias: %w", new, errgm.ErrInvalidLabel)
	}
	return nil
}

// defaultEntryP is the processor status a fresh entry point starts with:
// 8-bit accumulator and index registers (native-mode reset convention).
const defaultEntryP = 0b0011_0000

// EntryPoint is a (pc, name, initial processor status) triple analysis
// begins walking from.
type EntryPoint struct {
	PC   uint32
	Name string
	P    uint8
}

// JumpTarget is one resolved entry of a jump table: an optional index and
// the target pc it was asserted to reach.
type JumpTarget struct {
	Index    int
	HasIndex bool
	Target   uint32
}

// sourceRef is one (source pc, source subroutine pc) occurrence recorded
// against a reference target.
type sourceRef struct {
	PC           uint32
	SubroutinePC uint32
}

// localLabels is the bidirectional pc<->name map scoped to one subroutine,
// per the design note recommending paired maps with invariant-preserving
// mutation helpers over a full bimap dependency (none exists in the pack).
type localLabels struct {
	nameToPC map[string]uint32
	pcToName map[uint32]string
}

func newLocalLabels() *localLabels {
	return &localLabels{nameToPC: map[string]uint32{}, pcToName: map[uint32]string{}}
}

func (l *localLabels) set(name string, pc uint32) {
	if old, ok := l.pcToName[pc]; ok {
		delete(l.nameToPC, old)
	}
	l.nameToPC[name] = pc
	l.pcToName[pc] = name
}

func (l *localLabels) byName(name string) (uint32, bool) {
	pc, ok := l.nameToPC[name]
	return pc, ok
}

func (l *localLabels) byPC(pc uint32) (string, bool) {
	name, ok := l.pcToName[pc]
	return name, ok
}

// rename moves old's pc to new. found is false if old isn't known; collides
// is true if new already names a different pc in this scope, in which case
// neither map is mutated.
func (l *localLabels) rename(old, new string) (found, collides bool) {
	pc, ok := l.nameToPC[old]
	if !ok {
		return false, false
	}
	if existing, ok := l.nameToPC[new]; ok && existing != pc {
		return true, true
	}
	delete(l.nameToPC, old)
	l.nameToPC[new] = pc
	l.pcToName[pc] = new
	return true, false
}

func (l *localLabels) names() []string {
	out := make([]string, 0, len(l.nameToPC))
	for n := range l.nameToPC {
		out = append(out, n)
	}
	return out
}

// Log is the central analysis database described in the data model.
type Log struct {
	ROM rom.Provider

	InstructionAssertions map[uint32]state.StateChange
	// SubroutineAssertions is keyed by subroutine pc, then by the pc of the
	// specific return instruction being asserted -- one subroutine can have
	// differently-asserted returns at different return sites.
	SubroutineAssertions map[uint32]map[uint32]state.StateChange
	JumpAssertions       map[uint32][]JumpTarget
	JumpTableTargets     map[uint32]int
	CompleteJumpTables   map[uint32]bool
	PreservedLabels      map[uint32]string
	Comments             map[uint32]string

	EntryPoints        []EntryPoint
	localLabels        map[uint32]*localLabels
	Instructions       map[uint32]map[ir.InstructionID]bool
	subroutines        map[uint32]*ir.Subroutine
	SubroutinesByLabel map[string]*ir.Subroutine
	references         map[uint32]map[sourceRef]bool

	Dirty bool
}

// New creates a Log over rom with no entry points yet registered. Callers
// typically follow New with AddEntryPoint(reset) and AddEntryPoint(nmi).
func New(r rom.Provider) *Log {
	l := &Log{
		ROM:                   r,
		InstructionAssertions: map[uint32]state.StateChange{},
		SubroutineAssertions:  map[uint32]map[uint32]state.StateChange{},
		JumpAssertions:        map[uint32][]JumpTarget{},
		JumpTableTargets:      map[uint32]int{},
		CompleteJumpTables:    map[uint32]bool{},
		PreservedLabels:       map[uint32]string{},
		Comments:              map[uint32]string{},
	}
	l.resetDerived()
	return l
}

// NewFromVectors creates a Log seeded with the ROM's default entry points
// (reset, nmi), matching the lifecycle spec'd for a freshly opened ROM.
func NewFromVectors(r rom.Provider) (*Log, error) {
	l := New(r)
	reset, err := r.ResetVector()
	if err != nil {
		return nil, err
	}
	nmi, err := r.NMIVector()
	if err != nil {
		return nil, err
	}
	l.AddSubroutine(reset, defaultEntryP, "reset", true)
	l.AddSubroutine(nmi, defaultEntryP, "nmi", true)
	return l, nil
}

// resetDerived clears every field the analysis derives, without touching
// user assertions, preserved labels, comments or entry points.
func (l *Log) resetDerived() {
	l.localLabels = map[uint32]*localLabels{}
	l.Instructions = map[uint32]map[ir.InstructionID]bool{}
	l.subroutines = map[uint32]*ir.Subroutine{}
	l.SubroutinesByLabel = map[string]*ir.Subroutine{}
	l.references = map[uint32]map[sourceRef]bool{}
	l.Dirty = false
}

// Reset clears every derived field (subroutines, instructions, local
// labels, references) but retains user assertions, preserved labels,
// comments and entry points. Labels visible before the reset are folded
// into PreservedLabels first so renames survive a subsequent Analyze.
func (l *Log) Reset() {
	l.preserveLabels()
	entryPoints := l.EntryPoints
	l.resetDerived()
	l.EntryPoints = entryPoints
}

func (l *Log) preserveLabels() {
	for subroutinePC, labels := range l.localLabels {
		for name, pc := range labels.nameToPC {
			_ = subroutinePC
			l.PreservedLabels[pc] = name
		}
	}
	for pc, sub := range l.subroutines {
		l.PreservedLabels[pc] = sub.Label
	}
}

// AddEntryPoint registers pc as a place analysis should begin, with the
// given display name and initial processor status p.
func (l *Log) AddEntryPoint(pc uint32, name string, p uint8) {
	l.AddSubroutine(pc, p, name, true)
}

// AddInstruction inserts i into the pc-indexed instruction set and into
// its owning subroutine's ordered map, and notes whether this pc carries
// an instruction-level assertion.
func (l *Log) AddInstruction(i *ir.Instruction) {
	if l.Instructions[i.ID.PC] == nil {
		l.Instructions[i.ID.PC] = map[ir.InstructionID]bool{}
	}
	l.Instructions[i.ID.PC][i.ID] = true

	sub := l.subroutines[i.SubroutinePC]
	if sub == nil {
		return
	}
	sub.AddInstruction(i)

	if _, asserted := l.InstructionAssertions[i.ID.PC]; asserted {
		sub.AssertedStateChange = true
	}
}

// AddSubroutine registers pc as a subroutine, reusing any existing
// Subroutine object for it, and optionally as an entry point. label is
// used only when no preserved label exists for pc.
func (l *Log) AddSubroutine(pc uint32, p uint8, label string, entryPoint bool) *ir.Subroutine {
	if preserved, ok := l.PreservedLabels[pc]; ok && preserved != "" {
		label = preserved
	} else if label == "" {
		label = fmt.Sprintf("sub_%06X", pc)
	}

	sub := l.subroutines[pc]
	if sub == nil {
		sub = ir.NewSubroutine(pc, label)
		l.subroutines[pc] = sub
		l.SubroutinesByLabel[label] = sub
	}

	if returns, ok := l.SubroutineAssertions[pc]; ok {
		sub.AssertedStateChange = true
		for returnPC, change := range returns {
			sub.StateChanges[returnPC] = change
		}
	}

	if entryPoint {
		l.EntryPoints = append(l.EntryPoints, EntryPoint{PC: pc, Name: label, P: p})
	}
	return sub
}

// AddSubroutineState records an observed StateChange for a subroutine's
// return, unless that return site is already covered by an assertion (an
// assertion always wins over analyzer inference).
func (l *Log) AddSubroutineState(subroutinePC, returnPC uint32, change state.StateChange) {
	if asserted, ok := l.SubroutineAssertions[subroutinePC]; ok {
		if _, ok := asserted[returnPC]; ok {
			return
		}
	}
	sub := l.subroutines[subroutinePC]
	if sub == nil {
		return
	}
	sub.StateChanges[returnPC] = change
}

// AddReference records that target is reached from instruction i, used
// later to generate local labels at every referenced, non-subroutine pc.
func (l *Log) AddReference(i *ir.Instruction, target uint32) {
	if l.references[target] == nil {
		l.references[target] = map[sourceRef]bool{}
	}
	l.references[target][sourceRef{PC: i.ID.PC, SubroutinePC: i.SubroutinePC}] = true
}

// Subroutine returns the subroutine rooted at pc, if any.
func (l *Log) Subroutine(pc uint32) (*ir.Subroutine, bool) {
	s, ok := l.subroutines[pc]
	return s, ok
}

// Subroutines returns every known subroutine ordered by pc, matching the
// spec'd iteration order for deterministic analysis.
func (l *Log) Subroutines() []*ir.Subroutine {
	pcs := make([]uint32, 0, len(l.subroutines))
	for pc := range l.subroutines {
		pcs = append(pcs, pc)
	}
	sort.Slice(pcs, func(a, b int) bool { return pcs[a] < pcs[b] })
	out := make([]*ir.Subroutine, len(pcs))
	for i, pc := range pcs {
		out[i] = l.subroutines[pc]
	}
	return out
}

// AssertInstructionStateChange records a StateChange assertion at
// instruction pc, overriding whatever the symbolic CPU would otherwise
// infer there, and marks the log dirty; Dirty stays set until the log is
// next reset or analyzed.
func (l *Log) AssertInstructionStateChange(pc uint32, change state.StateChange) {
	l.InstructionAssertions[pc] = change
	l.Dirty = true
	glog.Infof("log: asserted instruction state change at $%06X: %s", pc, change.Render())
}

// DeassertInstructionStateChange removes an instruction-level assertion.
func (l *Log) DeassertInstructionStateChange(pc uint32) {
	delete(l.InstructionAssertions, pc)
	l.Dirty = true
}

// AssertSubroutineStateChange records a StateChange assertion for a
// specific return site of subroutine, keyed by both the subroutine's pc
// and the return instruction's pc so a subroutine with multiple returns
// can be asserted independently at each.
func (l *Log) AssertSubroutineStateChange(subroutinePC, returnPC uint32, change state.StateChange) {
	if l.SubroutineAssertions[subroutinePC] == nil {
		l.SubroutineAssertions[subroutinePC] = map[uint32]state.StateChange{}
	}
	l.SubroutineAssertions[subroutinePC][returnPC] = change
	l.Dirty = true
	glog.Infof("log: asserted subroutine state change at $%06X (return $%06X): %s", subroutinePC, returnPC, change.Render())
}

// DeassertSubroutineStateChange removes a subroutine-level assertion at
// the given return site.
func (l *Log) DeassertSubroutineStateChange(subroutinePC, returnPC uint32) {
	if m, ok := l.SubroutineAssertions[subroutinePC]; ok {
		delete(m, returnPC)
		if len(m) == 0 {
			delete(l.SubroutineAssertions, subroutinePC)
		}
	}
	l.Dirty = true
}

// AssertJump records an indirect-jump/jump-table resolution: caller pc
// reaches target (optionally at a specific table index).
func (l *Log) AssertJump(callerPC, targetPC uint32, index int, hasIndex bool) {
	l.JumpAssertions[callerPC] = append(l.JumpAssertions[callerPC], JumpTarget{Index: index, HasIndex: hasIndex, Target: targetPC})
	l.JumpTableTargets[targetPC]++
	l.Dirty = true
	glog.Infof("log: asserted jump from $%06X to $%06X", callerPC, targetPC)
}

// DeassertJump removes a single jump-table resolution.
func (l *Log) DeassertJump(callerPC, targetPC uint32) {
	targets := l.JumpAssertions[callerPC]
	for i, t := range targets {
		if t.Target == targetPC {
			l.JumpAssertions[callerPC] = append(targets[:i], targets[i+1:]...)
			l.JumpTableTargets[targetPC]--
			if l.JumpTableTargets[targetPC] <= 0 {
				delete(l.JumpTableTargets, targetPC)
			}
			break
		}
	}
	delete(l.CompleteJumpTables, callerPC)
	l.Dirty = true
}

// MarkJumpTableComplete records that caller's jump table has been
// exhaustively explored via assertions.
func (l *Log) MarkJumpTableComplete(callerPC uint32) {
	l.CompleteJumpTables[callerPC] = true
}

// GetLabel returns the display label for pc as seen from subroutinePC:
// the subroutine's own label if pc is a subroutine entry, else a
// leading-dot local label scoped to subroutinePC, else "".
func (l *Log) GetLabel(pc, subroutinePC uint32) string {
	if sub, ok := l.subroutines[pc]; ok {
		return sub.Label
	}
	if labels, ok := l.localLabels[subroutinePC]; ok {
		if name, ok := labels.byPC(pc); ok {
			return "." + name
		}
	}
	return ""
}

// GetLabelValue resolves a label name back to a pc: subroutine labels
// first, then, when scoped is true, the local labels of subroutinePC.
func (l *Log) GetLabelValue(label string, subroutinePC uint32, scoped bool) (uint32, bool) {
	if sub, ok := l.SubroutinesByLabel[label]; ok {
		return sub.PC, true
	}
	if scoped {
		if labels, ok := l.localLabels[subroutinePC]; ok {
			return labels.byName(label)
		}
	}
	return 0, false
}

// RenameLabel renames old to new. If old names a subroutine, the rename
// is global; otherwise subroutinePC selects which subroutine's local
// labels to rename within. Returns errgm.ErrInvalidLabel if new isn't a
// valid identifier, starts with an auto-name prefix, names a reserved
// register alias, collides with another label already in scope, or if old
// is unknown in the requested scope.
func (l *Log) RenameLabel(old, new string, subroutinePC uint32) error {
	if err := validateLabel(new); err != nil {
		return err
	}

	if sub, ok := l.SubroutinesByLabel[old]; ok {
		if existing, collides := l.SubroutinesByLabel[new]; collides && existing != sub {
			return fmt.Errorf("rename %q to %q: %q is already in use: %w", old, new, new, errgm.ErrInvalidLabel)
		}
		delete(l.SubroutinesByLabel, old)
		sub.Label = new
		l.SubroutinesByLabel[new] = sub
		return nil
	}
	if labels, ok := l.localLabels[subroutinePC]; ok {
		found, collides := labels.rename(old, new)
		if collides {
			return fmt.Errorf("rename %q to %q: %q is already in use in this scope: %w", old, new, new, errgm.ErrInvalidLabel)
		}
		if found {
			return nil
		}
	}
	return fmt.Errorf("rename %q to %q: %w", old, new, errgm.ErrInvalidLabel)
}

// IsVisited reports whether id has already been logged -- the loop-cut
// check the symbolic CPU uses before stepping into an instruction.
func (l *Log) IsVisited(id ir.InstructionID) bool {
	return l.Instructions[id.PC][id]
}

// GenerateLabels walks every reference target that is not itself a
// subroutine and assigns (or reuses a preserved) local label for it in
// every subroutine that refers to it.
func (l *Log) GenerateLabels() {
	targets := make([]uint32, 0, len(l.references))
	for target := range l.references {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(a, b int) bool { return targets[a] < targets[b] })

	for _, target := range targets {
		if _, isSub := l.subroutines[target]; isSub {
			continue
		}
		sources := make([]sourceRef, 0, len(l.references[target]))
		for s := range l.references[target] {
			sources = append(sources, s)
		}
		sort.Slice(sources, func(a, b int) bool { return sources[a].SubroutinePC < sources[b].SubroutinePC })

		name := l.PreservedLabels[target]
		if name == "" {
			name = fmt.Sprintf("loc_%06X", target)
		}
		for _, src := range sources {
			if l.localLabels[src.SubroutinePC] == nil {
				l.localLabels[src.SubroutinePC] = newLocalLabels()
			}
			l.localLabels[src.SubroutinePC].set(name, target)
		}
	}
}

// LocalLabelNames returns every local label name registered under
// subroutinePC, for disassembly rendering and scoping checks.
func (l *Log) LocalLabelNames(subroutinePC uint32) []string {
	labels, ok := l.localLabels[subroutinePC]
	if !ok {
		return nil
	}
	return labels.names()
}
