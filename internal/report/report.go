// Package report renders training results as plain-text tables for the CLI.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"maru/internal/domain"
	"maru/internal/forecast"
	"maru/internal/rl"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) > 3 {
		var b strings.Builder
		start := len(s) % 3
		if start > 0 {
			b.WriteString(s[:start])
		}
		for i := start; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatPrice formats a price in 만원, rounded to the nearest whole unit.
func FormatPrice(v float64) string {
	if v == 0 {
		return "-"
	}
	return FormatInt(int64(v + 0.5))
}

// FormatPct formats a fractional change as a signed percentage.
func FormatPct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v*100)
}

// FormatDirection renders a direction with an arrow marker.
func FormatDirection(d domain.Direction) string {
	switch d {
	case domain.DirectionUp:
		return "▲ " + d.Label()
	case domain.DirectionDown:
		return "▼ " + d.Label()
	default:
		return "− " + d.Label()
	}
}

// WriteSummary writes a one-run summary block.
func WriteSummary(w io.Writer, run domain.RunSummary) {
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  selection:  %s / %s / %.1f㎡\n",
		run.Selection.Region, run.Selection.Complex, run.Selection.Area)
	fmt.Fprintf(w, "  episodes:   %d\n", run.Episodes)
	fmt.Fprintf(w, "  eval:       %d steps, %d correct, %d wrong (%.1f%%)\n",
		run.Steps, run.Correct, run.Wrong, run.Accuracy*100)
	fmt.Fprintf(w, "  reward:     %.0f\n", run.TotalReward)
	fmt.Fprintf(w, "  prediction: %s for %s (last data %s)\n",
		FormatDirection(run.PredictedDirection), run.NextPeriod, run.LastPeriod)
}

// WriteTrace writes the greedy evaluation trace as a table.
func WriteTrace(w io.Writer, trace []rl.StepRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tFROM\tTO\tPREDICTED\tACTUAL\tREWARD")
	for _, rec := range trace {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%+.0f\n",
			rec.Step, rec.FromPeriod, rec.ToPeriod,
			rec.Action.Label(), rec.TrueDirection.Label(), rec.Reward)
	}
	tw.Flush()
}

// WriteScenario writes the forward price scenario as a table.
func WriteScenario(w io.Writer, steps []forecast.ScenarioStep) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MONTH\tPERIOD\tDIRECTION\tRETURN\tPRICE")
	for _, st := range steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			st.Step, st.Period, FormatDirection(st.Direction),
			FormatPct(st.AppliedReturn), FormatPrice(st.Price))
	}
	tw.Flush()
}
