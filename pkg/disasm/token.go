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

// Package disasm implements the textual projection of a subroutine's
// instructions and the token-level round trip that lets a user edit that
// text and have the edits fed back as comments, renames and assertions.
package disasm

// TokenType enumerates every kind of token the renderer emits and the
// parser must recognize on the way back in.
type TokenType int

const (
	NEWLINE TokenType = iota
	LABEL
	OPERATION
	OPERAND
	OPERAND_LABEL
	PC
	COMMENT
	STACK_MANIPULATION
	ASSERTED_STATE
	KNOWN_STATE
	UNKNOWN_STATE
	JUMP_TABLE
	SEPARATOR_LINE
	LAST_KNOWN_STATE
	ASSERTION_TYPE
	ASSERTION
	JUMP_TABLE_ENTRY
)

func (t TokenType) String() string {
	switch t {
	case NEWLINE:
		return "NEWLINE"
	case LABEL:
		return "LABEL"
	case OPERATION:
		return "OPERATION"
	case OPERAND:
		return "OPERAND"
	case OPERAND_LABEL:
		return "OPERAND_LABEL"
	case PC:
		return "PC"
	case COMMENT:
		return "COMMENT"
	case STACK_MANIPULATION:
		return "STACK_MANIPULATION"
	case ASSERTED_STATE:
		return "ASSERTED_STATE"
	case KNOWN_STATE:
		return "KNOWN_STATE"
	case UNKNOWN_STATE:
		return "UNKNOWN_STATE"
	case JUMP_TABLE:
		return "JUMP_TABLE"
	case SEPARATOR_LINE:
		return "SEPARATOR_LINE"
	case LAST_KNOWN_STATE:
		return "LAST_KNOWN_STATE"
	case ASSERTION_TYPE:
		return "ASSERTION_TYPE"
	case ASSERTION:
		return "ASSERTION"
	case JUMP_TABLE_ENTRY:
		return "JUMP_TABLE_ENTRY"
	default:
		return "UNKNOWN"
	}
}

// Token is one lexical unit of a rendered disassembly: its type, its
// literal text, and the pc it is attached to (0 for lines with no
// natural pc, such as a ROM-level separator).
type Token struct {
	Type TokenType
	Val  string
	PC   uint32
	Line int
}
