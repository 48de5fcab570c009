package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/imamik/solk8s/internal/config"
	"github.com/imamik/solk8s/internal/orchestration"
	"github.com/imamik/solk8s/internal/report"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// writeFile writes data to a file (for testing injection).
var writeFile = os.WriteFile

// isInteractiveTTY decides whether text output is coloured.
var isInteractiveTTY = func() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	readyStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	failedStyle  = lipgloss.NewStyle().Foreground(colorRed)
	warningStyle = lipgloss.NewStyle().Foreground(colorYellow)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	spinner   = "[..]"
	pending   = "[  ]"
	skipMark  = "[--]"
)

func validateOutput(format string) error {
	switch format {
	case "", OutputText, OutputJSON:
		return nil
	default:
		return &config.Error{Field: "output", Value: format, Reason: "must be text or json"}
	}
}

// printer renders styled text, or plain text when colour is off.
type printer struct {
	b     strings.Builder
	color bool
}

func (p *printer) paint(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(&p.b, format+"\n", args...)
}

func (p *printer) section(title string) {
	p.line("")
	p.line("  %s", p.paint(sectionStyle, title))
	p.line("  %s", p.paint(dimStyle, strings.Repeat("─", 40)))
}

func printReport(w io.Writer, rep *report.Report, format string) error {
	if format == OutputJSON {
		return printJSON(w, rep)
	}
	_, err := io.WriteString(w, renderReport(rep, isInteractiveTTY()))
	return err
}

func printVerification(w io.Writer, rep *report.Report, format string) error {
	if format == OutputJSON {
		return printJSON(w, rep.Verification)
	}
	p := &printer{color: isInteractiveTTY()}
	renderVerification(p, rep.Verification)
	_, err := io.WriteString(w, p.b.String())
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderReport produces the text summary of a deploy run.
func renderReport(rep *report.Report, color bool) string {
	p := &printer{color: color}

	title := "solk8s deploy: " + rep.Namespace
	p.line("")
	p.line("  %s", p.paint(titleStyle, title))
	p.line("  %s", p.paint(dimStyle, strings.Repeat("═", len(title))))
	p.line("  %-10s %s", "Run:", rep.RunID)
	if rep.GenesisHash != "" {
		p.line("  %-10s %s (shred version %d)", "Genesis:", rep.GenesisHash, rep.ShredVersion)
	}
	p.line("  %-10s %s", "Duration:", rep.Duration().Round(time.Millisecond))

	if st := rep.Status; st != nil {
		p.line("  %-10s %s", "Outcome:", paintOutcome(p, st))

		p.section("Nodes")
		for _, n := range st.Nodes {
			p.line("  %s %-22s %-10s %s", phaseMark(p, n.Phase), n.Name, n.Phase, nodeDetail(n))
		}
	}
	if rep.Error != "" {
		p.line("")
		p.line("  %s", p.paint(failedStyle, rep.Error))
	}

	renderVerification(p, rep.Verification)
	p.line("")
	return p.b.String()
}

func renderVerification(p *printer, v *report.Verification) {
	if v == nil {
		return
	}
	p.section("Verification")
	switch {
	case v.Skipped:
		p.line("  %s %s", p.paint(dimStyle, skipMark), "skipped")
	case v.Passed:
		r := v.Result
		p.line("  %s %d/%d gossip peers, %d voting, %d pods ready", p.paint(readyStyle, checkMark),
			r.ObservedNodes, r.ExpectedNodes, r.ObservedValidators, r.ReadyPods)
	default:
		p.line("  %s %s", p.paint(failedStyle, crossMark), v.Error)
	}
}

func paintOutcome(p *printer, st *orchestration.ClusterStatus) string {
	switch st.Outcome {
	case orchestration.OutcomeConverged:
		return p.paint(readyStyle, st.String())
	case orchestration.OutcomePartiallyConverged:
		return p.paint(warningStyle, st.String())
	default:
		return p.paint(failedStyle, st.String())
	}
}

func phaseMark(p *printer, phase orchestration.Phase) string {
	switch phase {
	case orchestration.PhaseReady:
		return p.paint(readyStyle, checkMark)
	case orchestration.PhaseFailed:
		return p.paint(failedStyle, crossMark)
	case orchestration.PhaseSubmitted:
		return p.paint(warningStyle, spinner)
	default:
		return p.paint(dimStyle, pending)
	}
}

func nodeDetail(n orchestration.NodeState) string {
	if n.Reason != "" {
		return n.Reason
	}
	return n.Identity
}
