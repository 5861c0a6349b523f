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
	"strings"

	"github.com/mg6502/gilgamesh/pkg/errgm"
)

// Parse tokenizes a previously rendered (and possibly hand-edited) text
// back into one []Token per source line. It recognizes exactly the
// syntax RenderSubroutine/RenderROM produce; anything else is a
// *errgm.ParserError naming the offending line.
func Parse(text string) ([][]Token, error) {
	var lines [][]Token
	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if trimmed == separatorLine {
			lines = append(lines, []Token{
				{Type: SEPARATOR_LINE, Val: trimmed, Line: lineNo},
				{Type: NEWLINE, Val: "\n", Line: lineNo},
			})
			continue
		}
		toks, err := parseLine(trimmed, lineNo)
		if err != nil {
			return nil, err
		}
		lines = append(lines, toks)
	}
	return lines, nil
}

func parseLine(text string, lineNo int) ([]Token, error) {
	switch {
	case strings.HasPrefix(text, "; state:"):
		return parseStateLine(text, lineNo)
	case text == "; stack manipulation":
		return withNewline(lineNo, Token{Type: STACK_MANIPULATION, Val: text, Line: lineNo}), nil
	case text == "; jump table":
		return withNewline(lineNo, Token{Type: JUMP_TABLE, Val: text, Line: lineNo}), nil
	case strings.HasPrefix(text, "; ->"):
		return withNewline(lineNo, Token{Type: JUMP_TABLE_ENTRY, Val: text, Line: lineNo}), nil
	case strings.HasPrefix(text, "; assert"):
		return parseAssertLine(text, lineNo)
	case strings.HasSuffix(text, ":") && !strings.HasPrefix(text, "$"):
		return withNewline(lineNo, Token{Type: LABEL, Val: text, Line: lineNo}), nil
	case strings.HasPrefix(text, "$"):
		return parseInstructionLine(text, lineNo)
	default:
		return nil, errgm.NewParserError("unrecognized line syntax", lineNo)
	}
}

func parseStateLine(text string, lineNo int) ([]Token, error) {
	fields := strings.Fields(strings.TrimPrefix(text, "; state:"))
	if len(fields) < 2 {
		return nil, errgm.NewParserError("malformed state header", lineNo)
	}
	return withNewline(lineNo,
		Token{Type: ASSERTION_TYPE, Val: fields[0], Line: lineNo},
		Token{Type: ASSERTION, Val: strings.Join(fields[1:], " "), Line: lineNo},
	), nil
}

func parseAssertLine(text string, lineNo int) ([]Token, error) {
	fields := strings.Fields(strings.TrimPrefix(text, "; assert"))
	if len(fields) < 1 {
		return nil, errgm.NewParserError("malformed instruction assertion", lineNo)
	}
	return withNewline(lineNo,
		Token{Type: ASSERTION_TYPE, Val: "instruction", Line: lineNo},
		Token{Type: ASSERTION, Val: strings.Join(fields, " "), Line: lineNo},
	), nil
}

// parseInstructionLine splits "$PC OPERATION [OPERAND] [; stack manipulation] [; comment]".
func parseInstructionLine(text string, lineNo int) ([]Token, error) {
	commentIdx := strings.Index(text, ";")
	body := text
	var trailer string
	if commentIdx >= 0 {
		body = strings.TrimSpace(text[:commentIdx])
		trailer = strings.TrimSpace(text[commentIdx:])
	}

	fields := strings.Fields(body)
	if len(fields) < 2 {
		return nil, errgm.NewParserError("malformed instruction line", lineNo)
	}

	toks := []Token{
		{Type: PC, Val: fields[0], Line: lineNo},
		{Type: OPERATION, Val: fields[1], Line: lineNo},
	}
	if len(fields) >= 3 {
		operand := fields[2]
		typ := OPERAND
		if isLabelOperand(operand) {
			typ = OPERAND_LABEL
		}
		toks = append(toks, Token{Type: typ, Val: operand, Line: lineNo})
	}

	if trailer != "" {
		const stackTag = "; stack manipulation"
		if trailer == stackTag || strings.HasPrefix(trailer, stackTag+" ;") {
			toks = append(toks, Token{Type: STACK_MANIPULATION, Val: stackTag, Line: lineNo})
			trailer = strings.TrimSpace(strings.TrimPrefix(trailer, stackTag))
		}
		if trailer != "" {
			toks = append(toks, Token{Type: COMMENT, Val: trailer, Line: lineNo})
		}
	}

	toks = append(toks, Token{Type: NEWLINE, Val: "\n", Line: lineNo})
	return toks, nil
}

// isLabelOperand reports whether operand text names a label rather than a
// literal: literals start with one of the addressing-mode sigils, or are
// the accumulator operand "a", a reserved name no label can take.
func isLabelOperand(operand string) bool {
	if operand == "" || operand == "a" {
		return false
	}
	switch operand[0] {
	case '$', '#', '(', '[':
		return false
	default:
		return true
	}
}

func withNewline(lineNo int, toks ...Token) []Token {
	return append(toks, Token{Type: NEWLINE, Val: "\n", Line: lineNo})
}
