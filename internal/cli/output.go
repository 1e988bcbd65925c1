// Package cli formats query results for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/diachron/internal/drift"
	"github.com/hyperjump/diachron/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// maxWordWidth bounds the word column of text tables.
const maxWordWidth = 32

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSynonyms writes the neighbors of a word per period.
func WriteSynonyms(w io.Writer, resp *models.SynonymsResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\nNearest neighbors of %q (%dms)\n", resp.Word, resp.QueryTime)
	for _, pn := range resp.Results {
		fmt.Fprintf(w, "\n[%s]\n", pn.Period)
		for i, nb := range pn.Neighbors {
			fmt.Fprintf(w, "  %2d. %-*s %.4f\n", i+1, maxWordWidth, Truncate(nb.Word, maxWordWidth), nb.Score)
		}
	}
	fmt.Fprintln(w)
	return nil
}

// WriteSimilarities writes the similarity of two words per period.
func WriteSimilarities(w io.Writer, resp *models.SimilarityResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\nSimilarity of %q and %q (%dms)\n\n", resp.WordA, resp.WordB, resp.QueryTime)
	for _, ps := range resp.Results {
		fmt.Fprintf(w, "  %-16s %7.4f  %s\n", ps.Period, ps.Score, bar(ps.Score, 30))
	}
	fmt.Fprintln(w)
	return nil
}

// bar draws |score| as a row of blocks, width characters for 1.0.
func bar(score float64, width int) string {
	if score < 0 {
		score = -score
	}
	n := int(score*float64(width) + 0.5)
	return strings.Repeat("█", min(n, width))
}

// WriteFrame writes the coordinates of a drift frame.
func WriteFrame(w io.Writer, frame *drift.Frame, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, frame)
	}
	fmt.Fprintf(w, "\nDrift of %q, reference %s (explained variance %.1f%% / %.1f%%)\n",
		frame.Baseword, frame.ReferenceID, 100*frame.ExplainedVariance[0], 100*frame.ExplainedVariance[1])
	if len(frame.SkippedPeriods) > 0 {
		fmt.Fprintf(w, "Not in vocabulary: %s\n", strings.Join(frame.SkippedPeriods, ", "))
	}
	fmt.Fprintln(w, "\nTrajectory:")
	for _, p := range frame.Trajectory {
		fmt.Fprintf(w, "  %-*s % .4f % .4f\n", maxWordWidth, Truncate(p.Label, maxWordWidth), p.X, p.Y)
	}
	fmt.Fprintln(w, "\nContext:")
	for _, p := range frame.Context {
		fmt.Fprintf(w, "  %-*s % .4f % .4f\n", maxWordWidth, Truncate(p.Label, maxWordWidth), p.X, p.Y)
	}
	fmt.Fprintln(w)
	return nil
}

// WritePeriods writes the available periods.
func WritePeriods(w io.Writer, periods []models.PeriodInfo, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"periods": periods})
	}
	if len(periods) == 0 {
		fmt.Fprintln(w, "No period models found.")
		return nil
	}
	for _, p := range periods {
		line := fmt.Sprintf("%-16s %s", p.Period, p.Path)
		if p.Cached {
			line += fmt.Sprintf("  (cached: %d words, dim %d)", p.Words, p.Dimension)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// WriteStatus writes a status summary.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Models directory:   %s\n", st.ModelsDir)
	fmt.Fprintf(w, "Periods:            %d (%s)\n", len(st.Periods), strings.Join(st.Periods, ", "))
	fmt.Fprintf(w, "Model files:        %d\n", st.ModelFiles)
	fmt.Fprintf(w, "Disk usage:         %s\n", FormatBytes(st.DiskUsageBytes))
	fmt.Fprintf(w, "Stored frames:      %d\n", st.StoredFrames)
	fmt.Fprintf(w, "Cached transforms:  %d\n", st.CachedTransforms)
	return nil
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
