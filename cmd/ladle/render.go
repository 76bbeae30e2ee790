package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ladle/internal/ingest"
)

var statusCaser = cases.Title(language.AmericanEnglish)

// displayStatus renders a raw status value for table output,
// e.g. "llm_refining" becomes "Llm Refining".
func displayStatus(status ingest.Status) string {
	return statusCaser.String(strings.ReplaceAll(string(status), "_", " "))
}

func isTTY(file *os.File) bool {
	if file == nil {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// progressRenderer draws ingest progress. On a terminal it rewrites a
// single line in place; otherwise it emits one line per step change.
type progressRenderer struct {
	out      io.Writer
	tty      bool
	lastLine string
	lastStep int
	active   bool
}

func newProgressRenderer(out *os.File) *progressRenderer {
	return &progressRenderer{out: out, tty: isTTY(out), lastStep: -1}
}

func (r *progressRenderer) update(state ingest.SessionState) {
	if state.IsSubmitting {
		r.draw("Submitting…")
		return
	}
	if state.Job == nil {
		return
	}
	if state.CurrentStep == r.lastStep && !state.HasError {
		return
	}
	r.lastStep = state.CurrentStep
	line := fmt.Sprintf("[%d/%d] %s — %s", state.CurrentStep, state.TotalSteps, state.StepTitle, state.StepDescription)
	r.draw(line)
}

func (r *progressRenderer) note(message string) {
	r.finish()
	fmt.Fprintln(r.out, message)
	r.lastStep = -1
}

func (r *progressRenderer) draw(line string) {
	if line == r.lastLine {
		return
	}
	r.lastLine = line
	if r.tty {
		fmt.Fprintf(r.out, "\r\033[K%s", line)
		r.active = true
		return
	}
	fmt.Fprintln(r.out, line)
}

// finish terminates an in-place progress line so following output starts
// on a fresh one.
func (r *progressRenderer) finish() {
	if r.tty && r.active {
		fmt.Fprintln(r.out)
		r.active = false
	}
	r.lastLine = ""
}
