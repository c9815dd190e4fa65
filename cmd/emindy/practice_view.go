package main

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"emindy/internal/player"
)

// terminalView prints step changes and announcements. On a terminal it also
// redraws the countdown in place.
type terminalView struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	caser    cases.Caser

	lastIndex int
	lastState player.State
	inline    bool
	completed bool

	done     chan struct{}
	doneOnce sync.Once
}

func newTerminalView(out io.Writer, colorize bool) *terminalView {
	return &terminalView{
		out:       out,
		colorize:  colorize,
		caser:     cases.Title(language.English),
		lastIndex: -1,
		done:      make(chan struct{}),
	}
}

func (v *terminalView) Render(s player.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s.Index != v.lastIndex || s.State != v.lastState {
		v.endInlineLocked()
		fmt.Fprintf(v.out, "[%d/%d] %s  %s  (%s, %.0f%%)\n",
			s.Index+1, s.StepCount, s.Step.Label, s.Clock, v.caser.String(s.State.String()), s.Progress)
		if s.Step.Tip != "" && s.Index != v.lastIndex {
			fmt.Fprintf(v.out, "      %s\n", s.Step.Tip)
		}
		v.lastIndex = s.Index
		v.lastState = s.State
	} else if v.colorize && s.Playing() {
		fmt.Fprintf(v.out, "\r\x1b[K      %s", s.Clock)
		v.inline = true
	}

	if s.State == player.Completed {
		v.completed = true
	}
}

func (v *terminalView) Announce(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.endInlineLocked()
	fmt.Fprintln(v.out, highlight("» "+message, v.colorize))
	// The completion announcement follows the final render.
	if v.completed {
		v.doneOnce.Do(func() { close(v.done) })
	}
}

func (v *terminalView) endInlineLocked() {
	if v.inline {
		fmt.Fprintln(v.out)
		v.inline = false
	}
}

// Done is closed once the practice completes.
func (v *terminalView) Done() <-chan struct{} {
	return v.done
}
