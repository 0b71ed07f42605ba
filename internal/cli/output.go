package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mijnschoolkeuze/opendagen-sync/internal/pipeline"
)

// OutputFormat specifies the summary output format.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// WriteSummary writes a run summary in the specified format.
func WriteSummary(w io.Writer, s *pipeline.Summary, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, s)
	case FormatText:
		return writeText(w, s)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, s *pipeline.Summary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

func writeText(w io.Writer, s *pipeline.Summary) error {
	fmt.Fprintf(w, "Sync %s at %s\n", s.SchoolYearLabel, s.FetchedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "  Parsed:      %d events\n", s.Parsed)
	fmt.Fprintf(w, "  Matched:     %d\n", s.Matched)
	fmt.Fprintf(w, "  Deactivated: %d\n", s.Deactivated)
	fmt.Fprintf(w, "  Reactivated: %d\n", s.Reactivated)

	if len(s.SampleMatched) > 0 {
		fmt.Fprintln(w, "\nMatched (sample):")
		for _, name := range s.SampleMatched {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	if len(s.SampleUnmatched) > 0 {
		fmt.Fprintln(w, "\nUnmatched (sample, review for aliases):")
		for _, name := range s.SampleUnmatched {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	return nil
}
