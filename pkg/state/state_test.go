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

package state

import "testing"

func TestState_ASizeXSize(t *testing.T) {
	s := NewMX(true, false)
	if got := s.ASize(); got != 1 {
		t.Errorf("ASize() = %v, want 1", got)
	}
	if got := s.XSize(); got != 2 {
		t.Errorf("XSize() = %v, want 2", got)
	}
}

func TestStateChange_RenderParseRoundTrip(t *testing.T) {
	cases := []string{"none", "m=0", "x=1", "m=0,x=1"}
	for _, expr := range cases {
		c, err := Parse(expr, false)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", expr, err)
		}
		if got := c.Render(); got != expr {
			t.Errorf("Render() after Parse(%q) = %q, want %q", expr, got, expr)
		}
	}
}

func TestParse_RejectsUnknownUnlessAllowed(t *testing.T) {
	if _, err := Parse("unknown", false); err == nil {
		t.Errorf("Parse(\"unknown\", false) = nil error, want error")
	}
	c, err := Parse("unknown", true)
	if err != nil {
		t.Fatalf("Parse(\"unknown\", true) error: %v", err)
	}
	if !c.IsUnknown || c.Reason != ReasonUnknown {
		t.Errorf("Parse(\"unknown\", true) = %v, want IsUnknown with ReasonUnknown", c)
	}
}

func TestStateChange_Equal(t *testing.T) {
	a := Known(True, nil)
	b := Known(True, nil)
	if !a.Equal(b) {
		t.Errorf("Equal() = false, want true for identical knowns")
	}
	u1 := Unknown(ReasonRecursion)
	u2 := Unknown(ReasonIndirectJump)
	if u1.Equal(u2) {
		t.Errorf("Equal() = true, want false for unknowns with different reasons")
	}
}

func TestStateChange_Simplify(t *testing.T) {
	s := NewMX(true, false)
	c := Known(True, True)
	out := c.Simplify(s)
	if out.M != nil {
		t.Errorf("Simplify() left M set, want nil since state already has M=1")
	}
	if out.X == nil || *out.X != true {
		t.Errorf("Simplify() dropped X, want it kept since state has X=0 but change asserts X=1")
	}
}

func TestStateChange_ApplyInference(t *testing.T) {
	c := Known(True, True)
	out := c.ApplyInference(True, nil)
	if out.M != nil {
		t.Errorf("ApplyInference() left M set, want nil since inference already guarantees M=1")
	}
	if out.X == nil || *out.X != true {
		t.Errorf("ApplyInference() dropped X unexpectedly")
	}
}
