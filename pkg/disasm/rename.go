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
	"strings"

	"github.com/mg6502/gilgamesh/pkg/errgm"
	"github.com/mg6502/gilgamesh/pkg/log"
)

// ApplyRenames runs renames through the two-phase bulk pipeline the spec
// requires: every rename is dry-run first to surface conflicts (two
// distinct new names proposed for the same old label is an
// AmbiguousRename), then each old name is renamed to a fresh unique
// placeholder, then every placeholder is renamed to its final name. The
// placeholder hop is what lets a batch swap two labels' names without a
// transient collision.
func ApplyRenames(l *log.Log, renames []Rename) error {
	if len(renames) == 0 {
		return nil
	}

	seen := map[string]string{}
	var unique []Rename
	for _, r := range renames {
		if strings.HasPrefix(r.Old, ".") && strings.HasPrefix(r.New, ".") {
			r.Old, r.New = r.Old[1:], r.New[1:]
		}
		key := fmt.Sprintf("%d:%s", r.SubroutinePC, r.Old)
		if existing, ok := seen[key]; ok {
			if existing != r.New {
				return fmt.Errorf("rename %q to both %q and %q: %w", r.Old, existing, r.New, errgm.ErrAmbiguousRename)
			}
			continue
		}
		seen[key] = r.New
		unique = append(unique, r)
	}
	renames = unique

	placeholders := make([]string, len(renames))
	for i, r := range renames {
		placeholder := uniquePlaceholder(l, r.Old, i)
		if err := l.RenameLabel(r.Old, placeholder, r.SubroutinePC); err != nil {
			return err
		}
		placeholders[i] = placeholder
	}

	for i, r := range renames {
		if err := l.RenameLabel(placeholders[i], r.New, r.SubroutinePC); err != nil {
			return err
		}
	}
	return nil
}

// uniquePlaceholder derives a name that is not already a subroutine label
// in l. Local labels are not consulted; RenameLabel rejects a placeholder
// that clashes with one in the same subroutine.
func uniquePlaceholder(l *log.Log, old string, index int) string {
	for n := 0; ; n++ {
		candidate := fmt.Sprintf("__rename_%s_%d_%d", old, index, n)
		if _, ok := l.GetLabelValue(candidate, 0, false); !ok {
			return candidate
		}
	}
}
