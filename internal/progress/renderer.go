package progress

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

// BarRenderer shows one status row per language under a run-wide bar on a
// TTY, and timestamped single lines otherwise. Handle is safe to call from
// concurrent language jobs.
type BarRenderer struct {
	out   io.Writer
	start time.Time
	isTTY bool
	width int

	mu     sync.Mutex
	drawn  int // rows on screen to overwrite on the next redraw
	run    Event
	langs  map[string]Event
	failed map[string]error
}

// NewBarRenderer creates a renderer for out, detecting TTY mode and width.
func NewBarRenderer(out *os.File) *BarRenderer {
	tty := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())

	width := 80
	if tty {
		if w, _, err := term.GetSize(out.Fd()); err == nil && w > 0 {
			width = w
		}
	}
	return newRenderer(out, tty, width)
}

func newRenderer(out io.Writer, tty bool, width int) *BarRenderer {
	return &BarRenderer{
		out:    out,
		start:  time.Now(),
		isTTY:  tty,
		width:  width,
		langs:  make(map[string]Event),
		failed: make(map[string]error),
	}
}

// Handle records an event and redraws. It satisfies Callback.
func (r *BarRenderer) Handle(e Event) {
	e.Elapsed = time.Since(r.start)
	if e.Stage == StageComplete {
		e.Percent = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case e.Language == "":
		r.run = e
	case e.Error != nil:
		r.failed[e.Language] = e.Error
		r.langs[e.Language] = e
	default:
		r.langs[e.Language] = e
	}

	if r.isTTY {
		r.redraw()
	} else {
		fmt.Fprintf(r.out, "[%s] %s\n", formatElapsed(e.Elapsed), label(e))
	}
}

// Finish clears the live display and prints the outcome of the run.
func (r *BarRenderer) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isTTY {
		r.clear()
	}

	e := r.run
	if e.Error != nil {
		fmt.Fprintf(r.out, "\n  Error: %v\n", e.Error)
		return
	}
	if e.Stage != StageComplete {
		return
	}

	fmt.Fprintf(r.out, "\n  %s (%s)\n", e.Message, formatElapsed(e.Elapsed))
	for _, lang := range sortedKeys(e.Outputs) {
		fmt.Fprintf(r.out, "  %-10s %s\n", lang, e.Outputs[lang])
	}
	for _, lang := range sortedKeys(r.failed) {
		fmt.Fprintf(r.out, "  %-10s failed: %v\n", lang, r.failed[lang])
	}
	if e.Dropped > 0 {
		fmt.Fprintf(r.out, "  %d utterance(s) dropped\n", e.Dropped)
	}
}

// overall averages the language percentages; before any language starts it
// falls back to the run-wide event.
func (r *BarRenderer) overall() float64 {
	if r.run.Stage == StageComplete || len(r.langs) == 0 {
		return r.run.Percent
	}
	var sum float64
	for lang, e := range r.langs {
		if _, ok := r.failed[lang]; ok {
			sum++
			continue
		}
		sum += e.Percent
	}
	return sum / float64(len(r.langs))
}

func (r *BarRenderer) redraw() {
	r.clear()

	var rows []string
	if r.run.Message != "" {
		rows = append(rows, "  "+r.run.Message)
	}
	for _, lang := range sortedKeys(r.langs) {
		e := r.langs[lang]
		status := e.Message
		if err, ok := r.failed[lang]; ok {
			status = "failed: " + err.Error()
		}
		rows = append(rows, fmt.Sprintf("  %-10s %s", lang, truncate(status, r.width-14)))
	}
	pct := r.overall()
	rows = append(rows, fmt.Sprintf("  %s %3d%%  %s",
		renderBar(pct, r.barWidth()), int(pct*100), formatElapsed(time.Since(r.start))))

	fmt.Fprint(r.out, strings.Join(rows, "\n"))
	r.drawn = len(rows)
}

func (r *BarRenderer) clear() {
	if r.drawn == 0 {
		return
	}
	fmt.Fprint(r.out, "\r\033[2K")
	for i := 1; i < r.drawn; i++ {
		fmt.Fprint(r.out, "\033[A\033[2K")
	}
	fmt.Fprint(r.out, "\r")
	r.drawn = 0
}

func label(e Event) string {
	msg := e.Message
	if e.Error != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Error)
	}
	if e.Language == "" {
		return msg
	}
	return e.Language + ": " + msg
}

// barWidth leaves room for the percent and elapsed columns.
func (r *BarRenderer) barWidth() int {
	return min(max(r.width-16, 20), 60)
}

// renderBar draws a [####....] bar of the given inner width.
func renderBar(pct float64, width int) string {
	pct = min(max(pct, 0), 1)
	filled := min(int(pct*float64(width)), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func truncate(s string, n int) string {
	if n < 4 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// formatElapsed formats a duration as M:SS.
func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
