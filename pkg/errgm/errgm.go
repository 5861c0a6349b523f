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

// Package errgm carries the error taxonomy shared across the analysis
// engine: sentinel values callers dispatch on with errors.Is/errors.As,
// plus the one structured variant (ParserError) that needs a line number.
package errgm

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching. An incomplete analysis (recursion depth
// exceeded, an unresolved indirect jump, stack manipulation, ...) is never
// one of these -- those paths simply stop and record a state.Unknown
// reason in the Log rather than returning an error to a caller.
var (
	ErrInvalidAddress   = errors.New("gilgamesh: invalid address")
	ErrInvalidLabel     = errors.New("gilgamesh: invalid label")
	ErrAmbiguousRename  = errors.New("gilgamesh: ambiguous rename")
	ErrInvalidAssertion = errors.New("gilgamesh: invalid assertion")
)

// ParserError reports a disassembly edit that failed to round-trip:
// a type mismatch, an edit to a read-only token, a missing comment
// separator, or an added/removed instruction, each pinned to a line.
type ParserError struct {
	Message string
	Line    int
	HasLine bool
}

func (e *ParserError) Error() string {
	if !e.HasLine {
		return e.Message
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func (e *ParserError) Unwrap() error { return errParserSentinel }

var errParserSentinel = errors.New("gilgamesh: parser error")

// NewParserError builds a ParserError pinned to line.
func NewParserError(message string, line int) error {
	return &ParserError{Message: message, Line: line, HasLine: true}
}

// NewParserErrorNoLine builds a ParserError with no associated line.
func NewParserErrorNoLine(message string) error {
	return &ParserError{Message: message}
}
