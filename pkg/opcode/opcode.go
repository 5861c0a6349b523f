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

// Package opcode carries the static 65C816 instruction set: the full
// 256-entry opcode table and the per-addressing-mode operand size.
//
// It is deliberately inert data plus pure lookups -- no decoding logic
// lives here, that belongs to pkg/decode.
package opcode

// AddressMode names one of the 65C816's 28 addressing modes.
type AddressMode uint8

const (
	Implied AddressMode = iota
	ImmediateM
	ImmediateX
	Immediate8
	Relative
	RelativeLong
	DirectPage
	DirectPageIndexedX
	DirectPageIndexedY
	DirectPageIndirect
	DirectPageIndexedIndirect
	DirectPageIndirectIndexed
	DirectPageIndirectLong
	DirectPageIndirectIndexedLong
	Absolute
	AbsoluteIndexedX
	AbsoluteIndexedY
	AbsoluteLong
	AbsoluteIndexedLong
	StackRelative
	StackRelativeIndirectIndexed
	AbsoluteIndirect
	AbsoluteIndirectLong
	AbsoluteIndexedIndirect
	ImpliedAccumulator
	Move
	StackAbsolute
	PEIDirectPageIndirect
)

var addressModeNames = [...]string{
	Implied:                       "implied",
	ImmediateM:                    "immediate_m",
	ImmediateX:                    "immediate_x",
	Immediate8:                    "immediate_8",
	Relative:                      "relative",
	RelativeLong:                  "relative_long",
	DirectPage:                    "direct_page",
	DirectPageIndexedX:            "direct_page_indexed_x",
	DirectPageIndexedY:            "direct_page_indexed_y",
	DirectPageIndirect:            "direct_page_indirect",
	DirectPageIndexedIndirect:     "direct_page_indexed_indirect",
	DirectPageIndirectIndexed:     "direct_page_indirect_indexed",
	DirectPageIndirectLong:        "direct_page_indirect_long",
	DirectPageIndirectIndexedLong: "direct_page_indirect_indexed_long",
	Absolute:                      "absolute",
	AbsoluteIndexedX:              "absolute_indexed_x",
	AbsoluteIndexedY:              "absolute_indexed_y",
	AbsoluteLong:                  "absolute_long",
	AbsoluteIndexedLong:           "absolute_indexed_long",
	StackRelative:                 "stack_relative",
	StackRelativeIndirectIndexed:  "stack_relative_indirect_indexed",
	AbsoluteIndirect:              "absolute_indirect",
	AbsoluteIndirectLong:          "absolute_indirect_long",
	AbsoluteIndexedIndirect:       "absolute_indexed_indirect",
	ImpliedAccumulator:            "implied_accumulator",
	Move:                          "move",
	StackAbsolute:                 "stack_absolute",
	PEIDirectPageIndirect:         "pei_direct_page_indirect",
}

func (m AddressMode) String() string {
	if int(m) < len(addressModeNames) {
		return addressModeNames[m]
	}
	return "unknown"
}

// argumentSize holds the operand width in bytes for every addressing mode,
// or -1 for the two modes whose width depends on the processor's M/X state
// (ImmediateM, ImmediateX) -- callers resolve those via ArgumentSize.
var argumentSize = [...]int{
	Implied:                       0,
	ImmediateM:                    -1,
	ImmediateX:                    -1,
	Immediate8:                    1,
	Relative:                      1,
	RelativeLong:                  2,
	DirectPage:                    1,
	DirectPageIndexedX:            1,
	DirectPageIndexedY:            1,
	DirectPageIndirect:            1,
	DirectPageIndexedIndirect:     1,
	DirectPageIndirectIndexed:     1,
	DirectPageIndirectLong:        1,
	DirectPageIndirectIndexedLong: 1,
	Absolute:                      2,
	AbsoluteIndexedX:              2,
	AbsoluteIndexedY:              2,
	AbsoluteLong:                  3,
	AbsoluteIndexedLong:           3,
	StackRelative:                 1,
	StackRelativeIndirectIndexed:  1,
	AbsoluteIndirect:              2,
	AbsoluteIndirectLong:          2,
	AbsoluteIndexedIndirect:       2,
	ImpliedAccumulator:            0,
	Move:                          2,
	StackAbsolute:                 2,
	PEIDirectPageIndirect:         1,
}

// ArgumentSize returns the operand width in bytes for mode, resolving the
// state-dependent immediate modes against the processor's current M/X bits.
// wide8 is true when the relevant register is in 8-bit mode.
func ArgumentSize(mode AddressMode, wide8 bool) int {
	switch mode {
	case ImmediateM, ImmediateX:
		if wide8 {
			return 1
		}
		return 2
	default:
		return argumentSize[mode]
	}
}

// Op names one of the 65C816's 92 distinct mnemonics.
type Op uint8

const (
	ADC Op = iota
	AND
	ASL
	BCC
	BCS
	BEQ
	BIT
	BMI
	BNE
	BPL
	BRA
	BRK
	BRL
	BVC
	BVS
	CLC
	CLD
	CLI
	CLV
	CMP
	COP
	CPX
	CPY
	DEC
	DEX
	DEY
	EOR
	INC
	INX
	INY
	JML
	JMP
	JSL
	JSR
	LDA
	LDX
	LDY
	LSR
	MVN
	MVP
	NOP
	ORA
	PEA
	PEI
	PER
	PHA
	PHB
	PHD
	PHK
	PHP
	PHX
	PHY
	PLA
	PLB
	PLD
	PLP
	PLX
	PLY
	REP
	ROL
	ROR
	RTI
	RTL
	RTS
	SBC
	SEC
	SED
	SEI
	SEP
	STA
	STP
	STX
	STY
	STZ
	TAX
	TAY
	TCD
	TCS
	TDC
	TRB
	TSB
	TSC
	TSX
	TXA
	TXS
	TXY
	TYA
	TYX
	WAI
	WDM
	XBA
	XCE
)

var opNames = [...]string{
	ADC: "ADC", AND: "AND", ASL: "ASL", BCC: "BCC", BCS: "BCS", BEQ: "BEQ",
	BIT: "BIT", BMI: "BMI", BNE: "BNE", BPL: "BPL", BRA: "BRA", BRK: "BRK",
	BRL: "BRL", BVC: "BVC", BVS: "BVS", CLC: "CLC", CLD: "CLD", CLI: "CLI",
	CLV: "CLV", CMP: "CMP", COP: "COP", CPX: "CPX", CPY: "CPY", DEC: "DEC",
	DEX: "DEX", DEY: "DEY", EOR: "EOR", INC: "INC", INX: "INX", INY: "INY",
	JML: "JML", JMP: "JMP", JSL: "JSL", JSR: "JSR", LDA: "LDA", LDX: "LDX",
	LDY: "LDY", LSR: "LSR", MVN: "MVN", MVP: "MVP", NOP: "NOP", ORA: "ORA",
	PEA: "PEA", PEI: "PEI", PER: "PER", PHA: "PHA", PHB: "PHB", PHD: "PHD",
	PHK: "PHK", PHP: "PHP", PHX: "PHX", PHY: "PHY", PLA: "PLA", PLB: "PLB",
	PLD: "PLD", PLP: "PLP", PLX: "PLX", PLY: "PLY", REP: "REP", ROL: "ROL",
	ROR: "ROR", RTI: "RTI", RTL: "RTL", RTS: "RTS", SBC: "SBC", SEC: "SEC",
	SED: "SED", SEI: "SEI", SEP: "SEP", STA: "STA", STP: "STP", STX: "STX",
	STY: "STY", STZ: "STZ", TAX: "TAX", TAY: "TAY", TCD: "TCD", TCS: "TCS",
	TDC: "TDC", TRB: "TRB", TSB: "TSB", TSC: "TSC", TSX: "TSX", TXA: "TXA",
	TXS: "TXS", TXY: "TXY", TYA: "TYA", TYX: "TYX", WAI: "WAI", WDM: "WDM",
	XBA: "XBA", XCE: "XCE",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "???"
}

// Entry is one row of the opcode table: the mnemonic and addressing mode
// a raw opcode byte decodes to.
type Entry struct {
	Op   Op
	Mode AddressMode
}

// Table maps all 256 opcode byte values to their (Op, AddressMode) pair,
// ported entry-for-entry from the reference disassembler's opcode table.
var Table = [256]Entry{
	{BRK, Immediate8}, {ORA, DirectPageIndexedIndirect}, {COP, Immediate8}, {ORA, StackRelative},
	{TSB, DirectPage}, {ORA, DirectPage}, {ASL, DirectPage}, {ORA, DirectPageIndirectLong},
	{PHP, Implied}, {ORA, ImmediateM}, {ASL, ImpliedAccumulator}, {PHD, Implied},
	{TSB, Absolute}, {ORA, Absolute}, {ASL, Absolute}, {ORA, AbsoluteLong},
	{BPL, Relative}, {ORA, DirectPageIndirectIndexed}, {ORA, DirectPageIndirect}, {ORA, StackRelativeIndirectIndexed},
	{TRB, DirectPage}, {ORA, DirectPageIndexedX}, {ASL, DirectPageIndexedX}, {ORA, DirectPageIndirectIndexedLong},
	{CLC, Implied}, {ORA, AbsoluteIndexedY}, {INC, ImpliedAccumulator}, {TCS, Implied},
	{TRB, Absolute}, {ORA, AbsoluteIndexedX}, {ASL, AbsoluteIndexedX}, {ORA, AbsoluteIndexedLong},
	{JSR, Absolute}, {AND, DirectPageIndexedIndirect}, {JSL, AbsoluteLong}, {AND, StackRelative},
	{BIT, DirectPage}, {AND, DirectPage}, {ROL, DirectPage}, {AND, DirectPageIndirectLong},
	{PLP, Implied}, {AND, ImmediateM}, {ROL, ImpliedAccumulator}, {PLD, Implied},
	{BIT, Absolute}, {AND, Absolute}, {ROL, Absolute}, {AND, AbsoluteLong},
	{BMI, Relative}, {AND, DirectPageIndirectIndexed}, {AND, DirectPageIndirect}, {AND, StackRelativeIndirectIndexed},
	{BIT, DirectPageIndexedX}, {AND, DirectPageIndexedX}, {ROL, DirectPageIndexedX}, {AND, DirectPageIndirectIndexedLong},
	{SEC, Implied}, {AND, AbsoluteIndexedY}, {DEC, ImpliedAccumulator}, {TSC, Implied},
	{BIT, AbsoluteIndexedX}, {AND, AbsoluteIndexedX}, {ROL, AbsoluteIndexedX}, {AND, AbsoluteIndexedLong},
	{RTI, Implied}, {EOR, DirectPageIndexedIndirect}, {WDM, Immediate8}, {EOR, StackRelative},
	{MVP, Move}, {EOR, DirectPage}, {LSR, DirectPage}, {EOR, DirectPageIndirectLong},
	{PHA, Implied}, {EOR, ImmediateM}, {LSR, ImpliedAccumulator}, {PHK, Implied},
	{JMP, Absolute}, {EOR, Absolute}, {LSR, Absolute}, {EOR, AbsoluteLong},
	{BVC, Relative}, {EOR, DirectPageIndirectIndexed}, {EOR, DirectPageIndirect}, {EOR, StackRelativeIndirectIndexed},
	{MVN, Move}, {EOR, DirectPageIndexedX}, {LSR, DirectPageIndexedX}, {EOR, DirectPageIndirectIndexedLong},
	{CLI, Implied}, {EOR, AbsoluteIndexedY}, {PHY, Implied}, {TCD, Implied},
	{JML, AbsoluteLong}, {EOR, AbsoluteIndexedX}, {LSR, AbsoluteIndexedX}, {EOR, AbsoluteIndexedLong},
	{RTS, Implied}, {ADC, DirectPageIndexedIndirect}, {PER, RelativeLong}, {ADC, StackRelative},
	{STZ, DirectPage}, {ADC, DirectPage}, {ROR, DirectPage}, {ADC, DirectPageIndirectLong},
	{PLA, Implied}, {ADC, ImmediateM}, {ROR, ImpliedAccumulator}, {RTL, Implied},
	{JMP, AbsoluteIndirect}, {ADC, Absolute}, {ROR, Absolute}, {ADC, AbsoluteLong},
	{BVS, Relative}, {ADC, DirectPageIndirectIndexed}, {ADC, DirectPageIndirect}, {ADC, StackRelativeIndirectIndexed},
	{STZ, DirectPageIndexedX}, {ADC, DirectPageIndexedX}, {ROR, DirectPageIndexedX}, {ADC, DirectPageIndirectIndexedLong},
	{SEI, Implied}, {ADC, AbsoluteIndexedY}, {PLY, Implied}, {TDC, Implied},
	{JMP, AbsoluteIndexedIndirect}, {ADC, AbsoluteIndexedX}, {ROR, AbsoluteIndexedX}, {ADC, AbsoluteIndexedLong},
	{BRA, Relative}, {STA, DirectPageIndexedIndirect}, {BRL, RelativeLong}, {STA, StackRelative},
	{STY, DirectPage}, {STA, DirectPage}, {STX, DirectPage}, {STA, DirectPageIndirectLong},
	{DEY, Implied}, {BIT, ImmediateM}, {TXA, Implied}, {PHB, Implied},
	{STY, Absolute}, {STA, Absolute}, {STX, Absolute}, {STA, AbsoluteLong},
	{BCC, Relative}, {STA, DirectPageIndirectIndexed}, {STA, DirectPageIndirect}, {STA, StackRelativeIndirectIndexed},
	{STY, DirectPageIndexedX}, {STA, DirectPageIndexedX}, {STX, DirectPageIndexedY}, {STA, DirectPageIndirectIndexedLong},
	{TYA, Implied}, {STA, AbsoluteIndexedY}, {TXS, Implied}, {TXY, Implied},
	{STZ, Absolute}, {STA, AbsoluteIndexedX}, {STZ, AbsoluteIndexedX}, {STA, AbsoluteIndexedLong},
	{LDY, ImmediateX}, {LDA, DirectPageIndexedIndirect}, {LDX, ImmediateX}, {LDA, StackRelative},
	{LDY, DirectPage}, {LDA, DirectPage}, {LDX, DirectPage}, {LDA, DirectPageIndirectLong},
	{TAY, Implied}, {LDA, ImmediateM}, {TAX, Implied}, {PLB, Implied},
	{LDY, Absolute}, {LDA, Absolute}, {LDX, Absolute}, {LDA, AbsoluteLong},
	{BCS, Relative}, {LDA, DirectPageIndirectIndexed}, {LDA, DirectPageIndirect}, {LDA, StackRelativeIndirectIndexed},
	{LDY, DirectPageIndexedX}, {LDA, DirectPageIndexedX}, {LDX, DirectPageIndexedY}, {LDA, DirectPageIndirectIndexedLong},
	{CLV, Implied}, {LDA, AbsoluteIndexedY}, {TSX, Implied}, {TYX, Implied},
	{LDY, AbsoluteIndexedX}, {LDA, AbsoluteIndexedX}, {LDX, AbsoluteIndexedY}, {LDA, AbsoluteIndexedLong},
	{CPY, ImmediateX}, {CMP, DirectPageIndexedIndirect}, {REP, Immediate8}, {CMP, StackRelative},
	{CPY, DirectPage}, {CMP, DirectPage}, {DEC, DirectPage}, {CMP, DirectPageIndirectLong},
	{INY, Implied}, {CMP, ImmediateM}, {DEX, Implied}, {WAI, Implied},
	{CPY, Absolute}, {CMP, Absolute}, {DEC, Absolute}, {CMP, AbsoluteLong},
	{BNE, Relative}, {CMP, DirectPageIndirectIndexed}, {CMP, DirectPageIndirect}, {CMP, StackRelativeIndirectIndexed},
	{PEI, PEIDirectPageIndirect}, {CMP, DirectPageIndexedX}, {DEC, DirectPageIndexedX}, {CMP, DirectPageIndirectIndexedLong},
	{CLD, Implied}, {CMP, AbsoluteIndexedY}, {PHX, Implied}, {STP, Implied},
	{JML, AbsoluteIndirectLong}, {CMP, AbsoluteIndexedX}, {DEC, AbsoluteIndexedX}, {CMP, AbsoluteIndexedLong},
	{CPX, ImmediateX}, {SBC, DirectPageIndexedIndirect}, {SEP, Immediate8}, {SBC, StackRelative},
	{CPX, DirectPage}, {SBC, DirectPage}, {INC, DirectPage}, {SBC, DirectPageIndirectLong},
	{INX, Implied}, {SBC, ImmediateM}, {NOP, Implied}, {XBA, Implied},
	{CPX, Absolute}, {SBC, Absolute}, {INC, Absolute}, {SBC, AbsoluteLong},
	{BEQ, Relative}, {SBC, DirectPageIndirectIndexed}, {SBC, DirectPageIndirect}, {SBC, StackRelativeIndirectIndexed},
	{PEA, StackAbsolute}, {SBC, DirectPageIndexedX}, {INC, DirectPageIndexedX}, {SBC, DirectPageIndirectIndexedLong},
	{SED, Implied}, {SBC, AbsoluteIndexedY}, {PLX, Implied}, {XCE, Implied},
	{JSR, AbsoluteIndexedIndirect}, {SBC, AbsoluteIndexedX}, {INC, AbsoluteIndexedX}, {SBC, AbsoluteIndexedLong},
}

// IsBranch reports whether op is a relative branch: the conditional
// branches plus BRA and BRL.
func IsBranch(op Op) bool {
	switch op {
	case BCC, BCS, BEQ, BMI, BNE, BPL, BRA, BVC, BVS, BRL:
		return true
	default:
		return false
	}
}

// IsCall reports whether op transfers control to a subroutine.
func IsCall(op Op) bool {
	return op == JSR || op == JSL
}

// IsJump reports whether op is an unconditional, non-subroutine transfer.
func IsJump(op Op) bool {
	return op == JMP || op == JML
}

// IsReturn reports whether op returns control to a caller or interrupted code.
func IsReturn(op Op) bool {
	switch op {
	case RTS, RTL, RTI:
		return true
	default:
		return false
	}
}

// IsInterrupt reports whether op enters an interrupt or break handler.
func IsInterrupt(op Op) bool {
	return op == BRK || op == COP
}

// IsSepRep reports whether op is one of the two processor-status modifiers
// that can change the M/X width bits.
func IsSepRep(op Op) bool {
	return op == SEP || op == REP
}

// IsControl reports whether op is any kind of control-flow transfer.
func IsControl(op Op) bool {
	return IsBranch(op) || IsCall(op) || IsJump(op) || IsReturn(op) || IsInterrupt(op)
}
