package report

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"
)

// LearningCurve reduces a per-episode reward trace to windowed means. The
// final window may be shorter than the rest.
func LearningCurve(rewards []float64, window int) []float64 {
	if window <= 0 || len(rewards) == 0 {
		return nil
	}
	var out []float64
	for start := 0; start < len(rewards); start += window {
		end := start + window
		if end > len(rewards) {
			end = len(rewards)
		}
		out = append(out, stat.Mean(rewards[start:end], nil))
	}
	return out
}

// WriteCurve writes the windowed learning curve, one window per line, with a
// crude reward bar for scanning trends in a terminal.
func WriteCurve(w io.Writer, rewards []float64, window int) {
	means := LearningCurve(rewards, window)
	if len(means) == 0 {
		return
	}

	lo, hi := means[0], means[0]
	for _, m := range means[1:] {
		if m < lo {
			lo = m
		}
		if m > hi {
			hi = m
		}
	}

	for i, m := range means {
		bar := ""
		if hi > lo {
			n := int(20 * (m - lo) / (hi - lo))
			for j := 0; j < n; j++ {
				bar += "#"
			}
		}
		fmt.Fprintf(w, "ep %4d-%4d  %+7.2f  %s\n", i*window+1, min((i+1)*window, len(rewards)), m, bar)
	}
}
