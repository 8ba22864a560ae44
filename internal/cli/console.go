package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/prepmate/interview-client/internal/interview"
)

const consoleHelp = `Commands:
  :rec     start or stop voice recording
  :next    save the answer and go to the next question
  :skip    skip this question
  :end     end the interview and submit
  :status  show the timer and progress
  :help    show this help
Any other line replaces the current answer with what you typed.`

type inputAction int

const (
	actionSend inputAction = iota
	actionStatus
	actionHelp
	actionIgnore
	actionUnknown
)

// parseInput maps one line typed during an interview to a loop command
func parseInput(line string) (interview.Command, inputAction) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return interview.Command{}, actionIgnore
	}
	if !strings.HasPrefix(trimmed, ":") {
		return interview.Command{Kind: interview.CommandType, Text: trimmed}, actionSend
	}

	switch strings.ToLower(trimmed) {
	case ":rec", ":r":
		return interview.Command{Kind: interview.CommandRecord}, actionSend
	case ":next", ":n":
		return interview.Command{Kind: interview.CommandNext}, actionSend
	case ":skip", ":s":
		return interview.Command{Kind: interview.CommandSkip}, actionSend
	case ":end", ":e", ":q":
		return interview.Command{Kind: interview.CommandEnd}, actionSend
	case ":status":
		return interview.Command{}, actionStatus
	case ":help", ":h", ":?":
		return interview.Command{}, actionHelp
	default:
		return interview.Command{}, actionUnknown
	}
}

// console renders loop snapshots and notices as terminal lines.
// The loop goroutine and the input goroutine both write through it.
type console struct {
	mu    sync.Mutex
	out   io.Writer
	last  interview.Snapshot
	shown bool
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

func (c *console) Notify(n interview.Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	marker := "ℹ"
	switch n.Level {
	case interview.NoticeSuccess:
		marker = "✓"
	case interview.NoticeError:
		marker = "✗"
	}
	fmt.Fprintf(c.out, "%s %s\n", marker, n.Message)
}

// Update prints what changed since the previous snapshot
func (c *console) Update(s interview.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, first := c.last, !c.shown
	c.last, c.shown = s, true

	if s.Phase != interview.PhaseRunning {
		if first || prev.Phase == interview.PhaseRunning {
			fmt.Fprintln(c.out, "\nSubmitting interview...")
		}
		return
	}

	if first || s.Index != prev.Index {
		fmt.Fprintf(c.out, "\nQuestion %d of %d\n%s\n", s.Index+1, s.Total, s.Question)
		fmt.Fprintln(c.out, statusLine(s))
	}
	if !first && s.Recording != prev.Recording {
		if s.Recording {
			fmt.Fprintln(c.out, "● Recording... type :rec to stop")
		} else {
			fmt.Fprintln(c.out, "■ Recording stopped")
		}
	}
	if s.Display != prev.Display && s.Display != "" && s.Index == prev.Index {
		fmt.Fprintf(c.out, "Answer: %s\n", s.Display)
	}
	if !first && s.Remaining == 60 && prev.Remaining != 60 {
		fmt.Fprintln(c.out, "01:00 remaining")
	}
}

func (c *console) PrintStatus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, statusLine(c.last))
}

func (c *console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, a...)
}

func statusLine(s interview.Snapshot) string {
	line := fmt.Sprintf("[%s left | %s elapsed | %d of %d]",
		interview.FormatClock(s.Remaining), interview.FormatClock(s.Elapsed), s.Index+1, s.Total)
	switch {
	case s.Connecting:
		line += " connecting"
	case s.Recording && s.Speaking:
		line += " recording, speaking"
	case s.Recording:
		line += " recording"
	}
	return line
}

// readCommands feeds typed lines to the loop until input ends or the loop exits.
// End of input ends the interview.
func readCommands(in io.Reader, loop *interview.Loop, con *console) {
	// A closable source is closed once the loop exits so the blocked Scan returns
	if c, ok := in.(io.Closer); ok {
		go func() {
			<-loop.Done()
			c.Close()
		}()
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		cmd, action := parseInput(line)
		switch action {
		case actionSend:
			if !loop.Send(cmd) {
				return
			}
		case actionStatus:
			con.PrintStatus()
		case actionHelp:
			con.Println(consoleHelp)
		case actionUnknown:
			con.Println(fmt.Sprintf("Unknown command %q. Type :help for commands.", strings.TrimSpace(line)))
		}
	}
	loop.Send(interview.Command{Kind: interview.CommandEnd})
}
