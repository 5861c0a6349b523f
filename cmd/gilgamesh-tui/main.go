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

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/mg6502/gilgamesh/pkg/analysis"
	"github.com/mg6502/gilgamesh/pkg/disasm"
	"github.com/mg6502/gilgamesh/pkg/ir"
	gmlog "github.com/mg6502/gilgamesh/pkg/log"
	"github.com/mg6502/gilgamesh/pkg/rom"
)

var (
	theLog       *gmlog.Log
	subroutines  []*ir.Subroutine
	selected     int

	paragraphROM  *widgets.Paragraph
	listSubs      *widgets.List
	paragraphCode *widgets.Paragraph
	paragraphTips *widgets.Paragraph
)

func renderROM(p *widgets.Paragraph, r *rom.File) {
	sb := &strings.Builder{}
	title, _ := r.Title()
	reset, _ := r.ResetVector()
	nmi, _ := r.NMIVector()
	sb.WriteString(fmt.Sprintf("FILE: %s\n", r.Path))
	sb.WriteString(fmt.Sprintf("TYPE: %s\n", r.Type))
	sb.WriteString(fmt.Sprintf("TITLE: %s\n", title))
	sb.WriteString(fmt.Sprintf("RESET: $%06X  NMI: $%06X\n", reset, nmi))
	p.Text = sb.String()
}

func renderSubroutineList(l *widgets.List) {
	rows := make([]string, len(subroutines))
	for i, sub := range subroutines {
		rows[i] = fmt.Sprintf("$%06X  %s", sub.PC, sub.Label)
	}
	l.Rows = rows
	l.SelectedRow = selected
}

func renderCode(p *widgets.Paragraph) {
	if len(subroutines) == 0 {
		p.Text = "(no subroutines -- press A to analyze)"
		return
	}
	sub := subroutines[selected]
	p.Title = sub.Label
	p.Text = disasm.RenderSubroutine(sub, theLog)
}

func renderTips(p *widgets.Paragraph) {
	p.Text = "UP/DOWN = select subroutine    A = analyze    Q = quit"
}

func draw() {
	renderSubroutineList(listSubs)
	renderCode(paragraphCode)
	renderTips(paragraphTips)
	ui.Render(paragraphROM, listSubs, paragraphCode, paragraphTips)
}

func refreshSubroutines() {
	subroutines = theLog.Subroutines()
	if selected >= len(subroutines) {
		selected = 0
	}
}

func initLayout(r *rom.File) {
	paragraphROM = widgets.NewParagraph()
	paragraphROM.Title = "ROM"
	paragraphROM.SetRect(0, 0, 60, 6)
	renderROM(paragraphROM, r)

	listSubs = widgets.NewList()
	listSubs.Title = "Subroutines"
	listSubs.SetRect(0, 6, 30, 36)

	paragraphCode = widgets.NewParagraph()
	paragraphCode.Title = "Disassembly"
	paragraphCode.SetRect(30, 6, 90, 36)

	paragraphTips = widgets.NewParagraph()
	paragraphTips.Title = "Tips"
	paragraphTips.SetRect(0, 36, 90, 39)
}

func main() {
	flag.Parse()
	path := flag.Arg(0)
	if path == "" {
		log.Fatal("usage: gilgamesh-tui <rom-path>")
	}

	r, err := rom.Open(path)
	if err != nil {
		log.Fatalf("gilgamesh-tui: %v", err)
	}
	theLog, err = gmlog.NewFromVectors(r)
	if err != nil {
		log.Fatalf("gilgamesh-tui: %v", err)
	}
	analysis.Analyze(theLog, true)
	refreshSubroutines()

	if err := ui.Init(); err != nil {
		log.Fatalf("failed to initialize termui: %v", err)
	}
	defer ui.Close()

	initLayout(r)
	draw()

	for e := range ui.PollEvents() {
		if e.Type != ui.KeyboardEvent {
			continue
		}
		switch e.ID {
		case "q", "Q", "<C-c>":
			os.Exit(0)
		case "<Down>":
			if selected < len(subroutines)-1 {
				selected++
			}
		case "<Up>":
			if selected > 0 {
				selected--
			}
		case "a", "A":
			analysis.Analyze(theLog, true)
			refreshSubroutines()
		}
		draw()
	}
}
