package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"memoscribe/memo"
	"memoscribe/telemetry"
	"memoscribe/transcriber"
)

type reporter struct {
	w     io.Writer
	json  bool
	width int

	title   lipgloss.Style
	text    lipgloss.Style
	warn    lipgloss.Style
	caption lipgloss.Style
	metrics lipgloss.Style
	ok      lipgloss.Style
}

func newReporter(w io.Writer, jsonOut bool) *reporter {
	width := 80
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 20 {
			width = cols
		}
	}
	re := lipgloss.NewRenderer(w)
	return &reporter{
		w:       w,
		json:    jsonOut,
		width:   width,
		title:   re.NewStyle().Foreground(lipgloss.Color("246")).Bold(true),
		text:    re.NewStyle().Foreground(lipgloss.Color("4")),
		warn:    re.NewStyle().Foreground(lipgloss.Color("208")),
		caption: re.NewStyle().Foreground(lipgloss.Color("245")),
		metrics: re.NewStyle().Foreground(lipgloss.Color("243")),
		ok:      re.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

func (r *reporter) memo(rec *memo.Record, oc memo.Outcome, pass, runs int) error {
	if r.json {
		return memo.Encode(r.w, rec)
	}

	header := rec.Title
	if runs > 1 {
		header += fmt.Sprintf(" (run %d/%d)", pass, runs)
	}
	fmt.Fprintln(r.w, r.title.Render(header))

	if oc.Err != nil {
		for _, line := range wrapText(rec.Transcript, r.width-2) {
			fmt.Fprintln(r.w, r.warn.Render(line))
		}
		fmt.Fprintln(r.w)
		return nil
	}

	out := oc.Output
	textStyle := r.text
	if out.NoSpeech {
		textStyle = r.warn
		fmt.Fprintln(r.w, r.warn.Render("(no speech detected)"))
	}
	for _, line := range wrapText(out.TranscriptText, r.width-2) {
		fmt.Fprintln(r.w, textStyle.Render(line))
	}

	if len(out.SentenceTimestamps) > 1 || (len(out.SentenceTimestamps) == 1 && out.Result.Tokens != nil) {
		fmt.Fprintln(r.w)
		for _, s := range out.SentenceTimestamps {
			fmt.Fprintln(r.w, r.caption.Render(fmt.Sprintf("%8s  %s", formatOffset(s.Start), s.Sentence)))
		}
	}

	fmt.Fprintln(r.w)
	for _, line := range statLines(out.Stats) {
		fmt.Fprintln(r.w, r.metrics.Render(line))
	}
	for _, line := range transcriber.MetricLines(out.Result) {
		fmt.Fprintln(r.w, r.metrics.Render(line))
	}
	fmt.Fprintln(r.w)
	return nil
}

func (r *reporter) copied() {
	if r.json {
		return
	}
	fmt.Fprintln(r.w, r.ok.Render("[✓ copied]"))
}

// summary prints a percentile table over every successful transcription.
func (r *reporter) summary(samples []telemetry.Stats) {
	if r.json || len(samples) == 0 {
		return
	}
	fmt.Fprintln(r.w, r.title.Render(fmt.Sprintf("Summary (%d transcriptions)", len(samples))))
	for _, line := range strings.Split(percentileTable(samples), "\n") {
		fmt.Fprintln(r.w, r.metrics.Render(line))
	}
}

func statLines(s telemetry.Stats) []string {
	lines := []string{
		fmt.Sprintf("engine:     %s", s.Engine),
		fmt.Sprintf("audio:      %.1fs", s.AudioSeconds),
		fmt.Sprintf("processing: %.2fs (wall %.2fs, rtf %.1fx)", s.TranscriptionSeconds, s.WallSeconds, s.RealTimeFactor),
		fmt.Sprintf("tokens:     %d (%.1f/s)", s.TokenCount, s.TokensPerSecond),
		fmt.Sprintf("cpu:        %.2fs user, %.2fs sys", s.CPUUserSeconds, s.CPUSystemSeconds),
		fmt.Sprintf("rss:        %.1f MB (+%.1f MB)", mb(s.RSSAfterBytes), mb(s.RSSDeltaBytes)),
	}
	if s.ModelLoadSeconds > 0 || s.InitSeconds > 0 {
		lines = append(lines, fmt.Sprintf("init:       %.2fs model load, %.2fs engine", s.ModelLoadSeconds, s.InitSeconds))
	}
	return lines
}

func percentileTable(samples []telemetry.Stats) string {
	extract := func(fn func(telemetry.Stats) float64) []float64 {
		vals := make([]float64, len(samples))
		for i, s := range samples {
			vals[i] = fn(s)
		}
		sort.Float64s(vals)
		return vals
	}

	percentile := func(sorted []float64, p float64) float64 {
		idx := int(float64(len(sorted)-1) * p)
		return sorted[idx]
	}

	calcStats := func(sorted []float64) [5]float64 {
		return [5]float64{
			sorted[0],
			percentile(sorted, 0.50),
			percentile(sorted, 0.90),
			percentile(sorted, 0.95),
			sorted[len(sorted)-1],
		}
	}

	ps := calcStats(extract(func(s telemetry.Stats) float64 { return s.TranscriptionSeconds * 1000 }))
	ws := calcStats(extract(func(s telemetry.Stats) float64 { return s.WallSeconds * 1000 }))
	rs := calcStats(extract(func(s telemetry.Stats) float64 { return s.RealTimeFactor }))
	cs := calcStats(extract(func(s telemetry.Stats) float64 { return s.CPUTotalSeconds * 1000 }))

	return fmt.Sprintf(
		"           %7s %7s %7s %7s %7s\n"+
			"proc ms    %7.0f %7.0f %7.0f %7.0f %7.0f\n"+
			"wall ms    %7.0f %7.0f %7.0f %7.0f %7.0f\n"+
			"rtf        %7.1f %7.1f %7.1f %7.1f %7.1f\n"+
			"cpu ms     %7.0f %7.0f %7.0f %7.0f %7.0f",
		"min", "p50", "p90", "p95", "max",
		ps[0], ps[1], ps[2], ps[3], ps[4],
		ws[0], ws[1], ws[2], ws[3], ws[4],
		rs[0], rs[1], rs[2], rs[3], rs[4],
		cs[0], cs[1], cs[2], cs[3], cs[4],
	)
}

// formatOffset renders seconds as m:ss.cc.
func formatOffset(sec float64) string {
	cs := int(sec*100 + 0.5)
	return fmt.Sprintf("%d:%02d.%02d", cs/6000, cs/100%60, cs%100)
}

// wrapText breaks text on spaces so no line exceeds width runes unless a
// single word does.
func wrapText(text string, width int) []string {
	width = max(width, 10)
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if utf8.RuneCountInString(line)+1+utf8.RuneCountInString(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}

func mb(b uint64) float64 { return float64(b) / (1 << 20) }
