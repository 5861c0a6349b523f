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

package disasm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mg6502/gilgamesh/pkg/decode"
	"github.com/mg6502/gilgamesh/pkg/ir"
	"github.com/mg6502/gilgamesh/pkg/log"
	"github.com/mg6502/gilgamesh/pkg/opcode"
)

// separatorLine marks the boundary between two subroutines in a ROM-level
// rendering.
const separatorLine = "; ----------------------------------------"

// SubroutineTokens renders sub's token sequence the way the parser would
// re-derive it from RenderSubroutine's text: one []Token per source line,
// each closed by a NEWLINE token.
func SubroutineTokens(sub *ir.Subroutine, l *log.Log) [][]Token {
	var lines [][]Token

	lines = append(lines, line(Token{Type: LABEL, Val: sub.Label + ":", PC: sub.PC}))

	assertionType, assertion := subroutineStateTokens(sub)
	lines = append(lines, line(
		Token{Type: ASSERTION_TYPE, Val: assertionType, PC: sub.PC},
		Token{Type: ASSERTION, Val: assertion, PC: sub.PC},
	))

	if sub.HasStackManipulation {
		lines = append(lines, line(Token{Type: STACK_MANIPULATION, Val: "; stack manipulation", PC: sub.PC}))
	}

	for _, instr := range sub.Instructions() {
		lines = append(lines, instructionLines(instr, sub, l)...)
	}

	return lines
}

func line(tokens ...Token) []Token {
	pc := uint32(0)
	if len(tokens) > 0 {
		pc = tokens[0].PC
	}
	return append(append([]Token{}, tokens...), Token{Type: NEWLINE, Val: "\n", PC: pc})
}

// subroutineStateTokens summarizes every observed return StateChange into
// a single (assertion_type, assertion) pair: "subroutine" if the returns
// were asserted, "none"/unified text if they merely agree, "none"/"unknown"
// if they don't.
func subroutineStateTokens(sub *ir.Subroutine) (string, string) {
	unified, ok := sub.UnifiedStateChange()
	assertionType := "none"
	if sub.AssertedStateChange {
		assertionType = "subroutine"
	}
	if !ok {
		return assertionType, "unknown"
	}
	return assertionType, unified.Render()
}

func instructionLines(instr *ir.Instruction, sub *ir.Subroutine, l *log.Log) [][]Token {
	var lines [][]Token

	if change, asserted := l.InstructionAssertions[instr.ID.PC]; asserted {
		lines = append(lines, line(
			Token{Type: ASSERTION_TYPE, Val: "instruction", PC: instr.ID.PC},
			Token{Type: ASSERTION, Val: change.Render(), PC: instr.ID.PC},
		))
	}

	if instr.IsJumpTable {
		lines = append(lines, jumpTableLines(instr, l)...)
	}

	if label := l.GetLabel(instr.ID.PC, sub.PC); label != "" && instr.ID.PC != sub.PC {
		lines = append(lines, line(Token{Type: LABEL, Val: label + ":", PC: instr.ID.PC}))
	}

	entries := []Token{
		{Type: PC, Val: fmt.Sprintf("$%06X", instr.ID.PC), PC: instr.ID.PC},
		{Type: OPERATION, Val: instr.Op.String(), PC: instr.ID.PC},
	}

	if operand, isLabel := operandToken(instr, sub, l); operand != "" {
		typ := OPERAND
		if isLabel {
			typ = OPERAND_LABEL
		}
		entries = append(entries, Token{Type: typ, Val: operand, PC: instr.ID.PC})
	}

	if instr.DoesManipulateStack() {
		entries = append(entries, Token{Type: STACK_MANIPULATION, Val: "; stack manipulation", PC: instr.ID.PC})
	}

	if comment, ok := l.Comments[instr.ID.PC]; ok && comment != "" {
		entries = append(entries, Token{Type: COMMENT, Val: "; " + comment, PC: instr.ID.PC})
	}

	lines = append(lines, line(entries...))
	return lines
}

// operandToken renders the operand text for instr, reporting whether it
// names a label (OPERAND_LABEL) rather than a raw literal (OPERAND). A
// label is a subroutine identifier or a dotted local name, so the parser
// can distinguish the two by whether the text starts with one of the
// literal-operand sigils ($ # ( [) or is the accumulator operand "a",
// a reserved name no label can take.
func operandToken(instr *ir.Instruction, sub *ir.Subroutine, l *log.Log) (string, bool) {
	if instr.Mode == opcode.Implied || instr.Mode == opcode.ImpliedAccumulator {
		d := decode.Decoded{Mode: instr.Mode}
		return d.ArgumentString(), false
	}
	if instr.HasTarget {
		if label := l.GetLabel(instr.Target, sub.PC); label != "" {
			return label, true
		}
	}
	d := decode.Decoded{
		Mode:     instr.Mode,
		Size:     instr.Size,
		Argument: instr.Argument,
		State:    instr.EntryState.P,
	}
	return d.ArgumentString(), false
}

func jumpTableLines(instr *ir.Instruction, l *log.Log) [][]Token {
	lines := [][]Token{line(Token{Type: JUMP_TABLE, Val: "; jump table", PC: instr.ID.PC})}
	targets := append([]log.JumpTarget(nil), l.JumpAssertions[instr.ID.PC]...)
	sort.Slice(targets, func(a, b int) bool { return targets[a].Target < targets[b].Target })
	for _, t := range targets {
		entry := fmt.Sprintf("; -> $%06X", t.Target)
		if t.HasIndex {
			entry = fmt.Sprintf("; -> [%d] $%06X", t.Index, t.Target)
		}
		lines = append(lines, line(Token{Type: JUMP_TABLE_ENTRY, Val: entry, PC: instr.ID.PC}))
	}
	return lines
}

// RenderSubroutine is the canonical textual projection of one subroutine.
func RenderSubroutine(sub *ir.Subroutine, l *log.Log) string {
	return stringify(SubroutineTokens(sub, l))
}

// RenderROM renders every subroutine in l, in pc order, separated by a
// fixed header line.
func RenderROM(l *log.Log) string {
	var sb strings.Builder
	for i, sub := range l.Subroutines() {
		if i > 0 {
			sb.WriteString(separatorLine)
			sb.WriteString("\n")
		}
		sb.WriteString(RenderSubroutine(sub, l))
	}
	return sb.String()
}

func stringify(lines [][]Token) string {
	var sb strings.Builder
	for _, ln := range lines {
		sb.WriteString(stringifyLine(ln))
		sb.WriteString("\n")
	}
	return sb.String()
}

// stringifyLine joins one line's tokens into text. An (ASSERTION_TYPE,
// ASSERTION) pair needs a literal "; state:"/"; assert" lead-in so Parse
// can recognize the line again -- every other token already carries its
// own literal punctuation in Val. On an instruction assertion line the
// "; assert" lead-in stands for the type, so only the assertion follows it.
func stringifyLine(ln []Token) string {
	var parts []string
	for _, t := range ln {
		if t.Type == NEWLINE {
			continue
		}
		parts = append(parts, t.Val)
	}
	if len(ln) > 0 && ln[0].Type == ASSERTION_TYPE {
		if ln[0].Val == "instruction" {
			return "; assert " + strings.Join(parts[1:], " ")
		}
		return "; state: " + strings.Join(parts, " ")
	}
	return strings.Join(parts, " ")
}
