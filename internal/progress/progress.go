// Package progress draws a single-line progress bar for repeated exchanges.
package progress

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const barWidth = 40

// Bar tracks completed and failed steps against a known total. A total of
// zero means open-ended: the bar shows counts without a percentage.
type Bar struct {
	out         io.Writer
	description string
	total       int64
	done        int64
	failed      int64
	startTime   time.Time
	lastUpdate  time.Time
	throttle    time.Duration
	enabled     bool
}

// New creates a bar writing to out.
func New(out io.Writer, total int64, description string) *Bar {
	now := time.Now()
	return &Bar{
		out:         out,
		description: description,
		total:       total,
		startTime:   now,
		lastUpdate:  now,
		throttle:    100 * time.Millisecond,
		enabled:     out != nil,
	}
}

// Step records one finished step.
func (b *Bar) Step(ok bool) {
	if b == nil {
		return
	}
	b.done++
	if !ok {
		b.failed++
	}
	b.render(false)
}

// Finish draws the final state and ends the line.
func (b *Bar) Finish() {
	if b == nil || !b.enabled {
		return
	}
	b.render(true)
	fmt.Fprint(b.out, "\n")
}

// Counts returns completed and failed steps.
func (b *Bar) Counts() (done, failed int64) {
	return b.done, b.failed
}

func (b *Bar) render(force bool) {
	if !b.enabled {
		return
	}
	now := time.Now()
	if !force && now.Sub(b.lastUpdate) < b.throttle && (b.total == 0 || b.done < b.total) {
		return
	}
	b.lastUpdate = now
	elapsed := now.Sub(b.startTime)

	var line strings.Builder
	line.WriteString("\r")
	if b.description != "" {
		line.WriteString(b.description + " ")
	}
	if b.total > 0 {
		percent := float64(b.done) / float64(b.total) * 100
		filled := int(float64(barWidth) * percent / 100)
		if filled > barWidth {
			filled = barWidth
		}
		line.WriteString("[" + strings.Repeat("=", filled))
		if filled < barWidth {
			line.WriteString(">" + strings.Repeat("-", barWidth-filled-1))
		}
		fmt.Fprintf(&line, "] %d/%d (%.1f%%)", b.done, b.total, percent)
	} else {
		fmt.Fprintf(&line, "%d done", b.done)
	}
	if b.failed > 0 {
		fmt.Fprintf(&line, " | %d failed", b.failed)
	}
	fmt.Fprintf(&line, " | Elapsed: %s", formatDuration(elapsed))

	if b.total > 0 && b.done > 0 && b.done < b.total {
		rate := float64(b.done) / elapsed.Seconds()
		if rate > 0 {
			eta := time.Duration(float64(b.total-b.done) / rate * float64(time.Second))
			fmt.Fprintf(&line, " | ETA: %s", formatDuration(eta))
		}
	}
	fmt.Fprint(b.out, line.String())
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}
