package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/uvmigrate/pkg/observability"
)

// Spinner provides a simple progress indicator with context cancellation support.
type Spinner struct {
	message string
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	frames  []string
	mu      sync.Mutex
}

// newSpinner creates a new spinner with the given message.
func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

// newSpinnerWithContext creates a spinner that will stop when the context is cancelled.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		message: message,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				frame := s.frames[i%len(s.frames)]
				s.mu.Lock()
				fmt.Fprintf(os.Stderr, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
				s.mu.Unlock()
				i++
			}
		}
	}()
}

// Stop stops the spinner and clears the line.
func (s *Spinner) Stop() {
	s.cancel()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}

// StopWithSuccess stops the spinner and shows a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled returns true if the spinner was stopped due to context cancellation.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}

// =============================================================================
// Tool Hook Bridge
// =============================================================================

// toolSpinner shows a spinner for the duration of each uv invocation.
// It implements observability.ToolHooks; the migrate command registers it
// when stderr is a terminal so long resolver runs stay visibly alive.
type toolSpinner struct {
	mu      sync.Mutex
	spinner *Spinner
}

func (t *toolSpinner) OnCommandStart(ctx context.Context, args []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spinner != nil {
		t.spinner.Stop()
	}
	t.spinner = newSpinnerWithContext(ctx, spinnerMessage(args))
	t.spinner.Start()
}

func (t *toolSpinner) OnCommandComplete(ctx context.Context, args []string, duration time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spinner == nil {
		return
	}
	t.spinner.Stop()
	t.spinner = nil
}

// spinnerMessage renders a uv invocation as a short spinner label.
func spinnerMessage(args []string) string {
	msg := "uv " + strings.Join(args, " ")
	if len(msg) > 60 {
		msg = msg[:57] + "..."
	}
	return msg
}

// installSpinnerHooks registers the tool spinner when stderr is a terminal.
// It returns a function restoring the no-op hooks, or nil when stderr is
// not a terminal and nothing was registered.
func installSpinnerHooks() func() {
	if !isTerminal(os.Stderr) {
		return nil
	}
	observability.SetToolHooks(&toolSpinner{})
	return func() { observability.SetToolHooks(observability.NoopToolHooks{}) }
}

// isTerminal reports whether f is attached to a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
