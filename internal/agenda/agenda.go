// Package agenda prints day and week layouts to a terminal.
package agenda

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"calgrid/internal/layout"
)

type Styles struct {
	Header   lipgloss.Style
	Time     lipgloss.Style
	Title    lipgloss.Style
	Desc     lipgloss.Style
	Overlap  lipgloss.Style
	Now      lipgloss.Style
	Empty    lipgloss.Style
	renderer *lipgloss.Renderer
}

// NewStyles builds styles for w; colors are dropped when w is not a
// terminal.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Header: r.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true).
			Underline(true),
		Time: r.NewStyle().
			Foreground(lipgloss.Color("252")),
		Title: r.NewStyle().
			Bold(true),
		Desc: r.NewStyle().
			Foreground(lipgloss.Color("245")),
		Overlap: r.NewStyle().
			Foreground(lipgloss.Color("241")),
		Now: r.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		Empty: r.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true),
		renderer: r,
	}
}

// Printer writes layouts as a plain list, one line per event.
type Printer struct {
	w      io.Writer
	styles Styles
	width  int
	now    time.Time
}

// NewPrinter wraps descriptions at width columns (minimum 40). now places
// the current-time marker.
func NewPrinter(w io.Writer, width int, now time.Time) *Printer {
	if width < 40 {
		width = 40
	}
	return &Printer{w: w, styles: NewStyles(w), width: width, now: now}
}

const timeColumn = 14

// Day prints one day layout.
func (p *Printer) Day(d layout.DayLayout) error {
	var b strings.Builder
	b.WriteString(p.styles.Header.Render(d.Day.Start.Format("Monday, 2 January 2006")))
	b.WriteString("\n")

	_, showNow := layout.LocateDay(p.now, d.Day.Start)
	if len(d.Blocks) == 0 {
		b.WriteString(p.styles.Empty.Render("  no events"))
		b.WriteString("\n")
	}

	for _, blk := range d.Blocks {
		if showNow && !blk.Event.Start.Before(p.now) {
			p.nowLine(&b)
			showNow = false
		}
		p.block(&b, d, blk)
	}
	if showNow {
		p.nowLine(&b)
	}

	_, err := io.WriteString(p.w, b.String()+"\n")
	return err
}

// Week prints each day of a week layout in order.
func (p *Printer) Week(wk layout.WeekLayout) error {
	for _, d := range wk.Days {
		if err := p.Day(d); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) block(b *strings.Builder, d layout.DayLayout, blk layout.Block) {
	start, end := blk.Event.Start, blk.Event.End
	from, to := start.Format("15:04"), end.Format("15:04")
	if start.Before(d.Day.Start) {
		from = "..."
	}
	if end.After(d.Day.End) {
		to = "..."
	}
	span := fmt.Sprintf("%s-%s", from, to)

	swatch := p.styles.renderer.NewStyle().
		Foreground(lipgloss.Color(blk.Category.Color)).
		Render("▌")
	line := p.styles.Time.Width(timeColumn).Render(span) + swatch + " " +
		p.styles.Title.Render(blk.Event.Title) + " " +
		p.styles.Overlap.Render("["+blk.Category.Name+"]")
	if blk.Columns > 1 {
		line += p.styles.Overlap.Render(fmt.Sprintf(" (%d/%d)", blk.Column+1, blk.Columns))
	}
	b.WriteString(line)
	b.WriteString("\n")

	if blk.Event.Description == "" {
		return
	}
	indent := strings.Repeat(" ", timeColumn+2)
	wrapped := wordwrap.String(blk.Event.Description, p.width-timeColumn-2)
	for _, l := range strings.Split(wrapped, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		b.WriteString(indent + p.styles.Desc.Render(l) + "\n")
	}
}

func (p *Printer) nowLine(b *strings.Builder) {
	b.WriteString(p.styles.Now.Render(fmt.Sprintf("%-*s── now", timeColumn, p.now.Format("15:04"))))
	b.WriteString("\n")
}
