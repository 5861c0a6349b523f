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
	"os"
	"strconv"

	"github.com/golang/glog"
	cli "gopkg.in/urfave/cli.v2"

	"github.com/mg6502/gilgamesh/pkg/analysis"
	"github.com/mg6502/gilgamesh/pkg/disasm"
	gmlog "github.com/mg6502/gilgamesh/pkg/log"
	"github.com/mg6502/gilgamesh/pkg/project"
	"github.com/mg6502/gilgamesh/pkg/rom"
	"github.com/mg6502/gilgamesh/pkg/state"
)

func main() {
	flag.Parse()
	defer glog.Flush()

	app := &cli.App{
		Name:  "gilgamesh",
		Usage: "interactive static analyzer for 65C816 SNES ROMs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "rom", Aliases: []string{"r"}, Required: true, Usage: "path to the SNES ROM image"},
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "path to a saved project snapshot"},
		},
		Commands: []*cli.Command{
			analyzeCommand(),
			resetCommand(),
			entryPointCommand(),
			assertInstructionCommand(),
			deassertInstructionCommand(),
			assertSubroutineCommand(),
			assertJumpCommand(),
			renameCommand(),
			disassembleCommand(),
			saveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		glog.Errorf("gilgamesh: %v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openLog opens the ROM and, if --project was given, loads the saved
// snapshot over it. It never runs analysis itself.
func openLog(c *cli.Context) (*gmlog.Log, error) {
	r, err := rom.Open(c.String("rom"))
	if err != nil {
		return nil, err
	}
	l, err := gmlog.NewFromVectors(r)
	if err != nil {
		return nil, err
	}
	if path := c.String("project"); path != "" {
		if err := project.LoadFile(l, path); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func saveTo(c *cli.Context, l *gmlog.Log) error {
	path := c.String("project")
	if path == "" {
		return fmt.Errorf("gilgamesh: --project is required to save")
	}
	return project.SaveFile(l, path)
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "run the symbolic CPU from every entry point",
		Action: func(c *cli.Context) error {
			l, err := openLog(c)
			if err != nil {
				return err
			}
			analysis.Analyze(l, true)
			return saveTo(c, l)
		},
	}
}

func resetCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "clear derived analysis state, keeping assertions and labels",
		Action: func(c *cli.Context) error {
			l, err := openLog(c)
			if err != nil {
				return err
			}
			analysis.Reset(l)
			return saveTo(c, l)
		},
	}
}

func entryPointCommand() *cli.Command {
	return &cli.Command{
		Name:      "add-entry-point",
		Usage:     "register a new subroutine entry point",
		ArgsUsage: "<pc-hex> <name>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "8-bit", Usage: "start with 8-bit accumulator and index registers"},
		},
		Action: func(c *cli.Context) error {
			l, err := openLog(c)
			if err != nil {
				return err
			}
			pc, err := parseHex(c.Args().Get(0))
			if err != nil {
				return err
			}
			name := c.Args().Get(1)
			p := uint8(0b0011_0000)
			if !c.Bool("8-bit") {
				p = 0
			}
			l.AddEntryPoint(pc, name, p)
			return saveTo(c, l)
		},
	}
}

func assertInstructionCommand() *cli.Command {
	return &cli.Command{
		Name:      "assert-instruction",
		Usage:     "assert a StateChange at an instruction pc",
		ArgsUsage: "<pc-hex> <expr>",
		Action: func(c *cli.Context) error {
			l, err := openLog(c)
			if err != nil {
				return err
			}
			pc, err := parseHex(c.Args().Get(0))
			if err != nil {
				return err
			}
			change, err := state.Parse(c.Args().Get(1), false)
			if err != nil {
				return err
			}
			change.Asserted = true
			l.AssertInstructionStateChange(pc, change)
			return saveTo(c, l)
		},
	}
}

func deassertInstructionCommand() *cli.Command {
	return &cli.Command{
		Name:      "deassert-instruction",
		Usage:     "remove an instruction-level assertion",
		ArgsUsage: "<pc-hex>",
		Action: func(c *cli.Context) error {
			l, err := openLog(c)
			if err != nil {
				return err
			}
			pc, err := parseHex(c.Args().Get(0))
			if err != nil {
				return err
			}
			l.DeassertInstructionStateChange(pc)
			return saveTo(c, l)
		},
	}
}

func assertSubroutineCommand() *cli.Command {
	return &cli.Command{
		Name:      "assert-subroutine",
		Usage:     "assert a StateChange for one return site of a subroutine",
		ArgsUsage: "<subroutine-pc-hex> <return-pc-hex> <expr>",
		Action: func(c *cli.Context) error {
			l, err := openLog(c)
			if err != nil {
				return err
			}
			subroutinePC, err := parseHex(c.Args().Get(0))
			if err != nil {
				return err
			}
			returnPC, err := parseHex(c.Args().Get(1))
			if err != nil {
				return err
			}
			change, err := state.Parse(c.Args().Get(2), false)
			if err != nil {
				return err
			}
			change.Asserted = true
			l.AssertSubroutineStateChange(subroutinePC, returnPC, change)
			return saveTo(c, l)
		},
	}
}

func assertJumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "assert-jump",
		Usage:     "resolve an indirect jump/call to a concrete target",
		ArgsUsage: "<caller-pc-hex> <target-pc-hex>",
		Action: func(c *cli.Context) error {
			l, err := openLog(c)
			if err != nil {
				return err
			}
			callerPC, err := parseHex(c.Args().Get(0))
			if err != nil {
				return err
			}
			targetPC, err := parseHex(c.Args().Get(1))
			if err != nil {
				return err
			}
			l.AssertJump(callerPC, targetPC, 0, false)
			return saveTo(c, l)
		},
	}
}

func renameCommand() *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "rename a subroutine or local label",
		ArgsUsage: "<old> <new> [subroutine-pc-hex]",
		Action: func(c *cli.Context) error {
			l, err := openLog(c)
			if err != nil {
				return err
			}
			var subroutinePC uint32
			if c.Args().Get(2) != "" {
				subroutinePC, err = parseHex(c.Args().Get(2))
				if err != nil {
					return err
				}
			}
			if err := l.RenameLabel(c.Args().Get(0), c.Args().Get(1), subroutinePC); err != nil {
				return err
			}
			return saveTo(c, l)
		},
	}
}

func disassembleCommand() *cli.Command {
	return &cli.Command{
		Name:  "disassemble",
		Usage: "print the full ROM disassembly",
		Action: func(c *cli.Context) error {
			l, err := openLog(c)
			if err != nil {
				return err
			}
			analysis.Analyze(l, true)
			fmt.Print(disasm.RenderROM(l))
			return nil
		},
	}
}

func saveCommand() *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "persist the current project snapshot",
		Action: func(c *cli.Context) error {
			l, err := openLog(c)
			if err != nil {
				return err
			}
			return saveTo(c, l)
		},
	}
}

func parseHex(s string) (uint32, error) {
	if len(s) > 1 && s[0] == '$' {
		s = s[1:]
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("gilgamesh: invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}
