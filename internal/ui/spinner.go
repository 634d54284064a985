package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// textSpinner animates a bubbles spinner on the current line until stopped.
type textSpinner struct {
	message  string
	frames   []string
	interval time.Duration
	done     chan struct{}
	stopped  bool
}

func startSpinner(message string, sp spinner.Spinner, interval time.Duration) func() {
	s := &textSpinner{
		message:  message,
		frames:   sp.Frames,
		interval: interval,
		done:     make(chan struct{}),
	}
	go s.run()
	return s.stop
}

func (s *textSpinner) run() {
	i := 0
	for {
		select {
		case <-s.done:
			return
		default:
			frame := SpinnerStyle.Render(s.frames[i%len(s.frames)])
			fmt.Printf("\r%s %s", frame, s.message)
			i++
			time.Sleep(s.interval)
		}
	}
}

// stop clears the spinner line. Safe to call more than once.
func (s *textSpinner) stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.done)
	fmt.Print("\r\033[K")
}

// RunConnectionSpinner shows a spinner while connecting to the coordinator
// and returns its stop function.
func RunConnectionSpinner(message string) func() {
	return startSpinner(message, spinner.Globe, 180*time.Millisecond)
}

// RunWaitingSpinner shows a spinner while waiting on another peer and
// returns its stop function.
func RunWaitingSpinner(message string) func() {
	return startSpinner(message, spinner.Points, 100*time.Millisecond)
}
