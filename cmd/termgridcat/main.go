// Command termgridcat drives a termgrid.Terminal from a small scripted
// input format and dumps the resulting screen. It exists to exercise
// the core end to end without a real VT parser: lines starting with
// "\" are commands, anything else is printed rune by rune.
//
// Commands: \CR \LF \TAB \MARGIN top bottom \HOME
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	termgrid "github.com/danielgatis/go-termgrid"
)

func main() {
	cols := flag.Int("cols", 80, "terminal width")
	rows := flag.Int("rows", 24, "terminal height")
	scrollback := flag.Int("scrollback", 1000, "scrollback rows (primary buffer)")
	flag.Parse()

	term := termgrid.New(*cols, *rows, termgrid.WithMaxScrollback(*scrollback))

	if err := run(term, os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, "termgridcat:", err)
		os.Exit(1)
	}

	fmt.Println(term.PlainString())
}

func run(term *termgrid.Terminal, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, `\`) {
			if err := runCommand(term, line[1:]); err != nil {
				return err
			}
			continue
		}
		for _, c := range line {
			term.Print(c)
		}
		term.CarriageReturn()
		term.LineFeed()
	}
	return scanner.Err()
}

func runCommand(term *termgrid.Terminal, cmd string) error {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil
	}
	switch strings.ToUpper(fields[0]) {
	case "CR":
		term.CarriageReturn()
	case "LF":
		term.LineFeed()
	case "TAB":
		term.HorizontalTab()
	case "HOME":
		term.SetCursorPos(0, 0)
	case "MARGIN":
		if len(fields) != 3 {
			return fmt.Errorf(`\MARGIN requires top and bottom`)
		}
		top, err := strconv.Atoi(fields[1])
		if err != nil {
			return err
		}
		bottom, err := strconv.Atoi(fields[2])
		if err != nil {
			return err
		}
		return term.SetTopAndBottomMargin(top, bottom)
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
	return nil
}
