// Package scanner slices normalized listing text into per-event blocks.
//
// The listing interleaves standalone date lines with "### " heading lines;
// every heading under a date is one event. Scan is a pure function: the
// "current date" the source implies by ordering is threaded through an
// explicit accumulator, so the scanner can be exercised directly on any line
// slice.
package scanner

import (
	"strings"

	"github.com/mijnschoolkeuze/opendagen-sync/internal/htmltext"
	"github.com/mijnschoolkeuze/opendagen-sync/internal/openday"
)

// maxBlockLines bounds how far past a heading the scanner collects lines,
// so one event can never swallow an unbounded run of page text.
const maxBlockLines = 12

// boilerplate lines are navigation/filter chrome from the listing page that
// carries no event information.
var boilerplate = []string{
	"deze school van mijn lijst verwijderen",
	"toon filters",
	"verberg filters",
}

// Block is one detected event: the date in force where its heading appeared,
// the school name recovered from the heading, and the descriptive lines that
// followed, with the fields the parser cares about already located.
type Block struct {
	Date       openday.Date
	SchoolName string
	Lines      []string

	// TimeRange is the first parseable time range in the block. Blocks
	// without one are never emitted.
	TimeRange openday.TimeRange
	// TimeLine is the raw line TimeRange came from, so other field
	// extraction can skip it.
	TimeLine string
}

// SkipStats counts blocks the scanner dropped, by reason. Skips are
// data-quality outcomes of the source formatting, surfaced for debugging
// rather than reported as errors.
type SkipStats struct {
	// NoDate counts headings seen before any date line. Without a date in
	// force the event cannot be scheduled, so it is skipped. The source
	// always leads with a date line; hitting this means the page layout
	// changed.
	NoDate int
	// NoTitle counts headings whose title could not be recovered from the
	// heading line or the two lines after it.
	NoTitle int
	// NoTime counts blocks that contained no recognizable time range.
	NoTime int
}

// scanState is the accumulator threaded through the line fold.
type scanState struct {
	date    openday.Date
	hasDate bool
}

// Scan walks the lines once and returns the event blocks in source order.
// Input lines must be trimmed and non-empty (htmltext.Lines output).
func Scan(lines []string) ([]Block, SkipStats) {
	var (
		blocks []Block
		stats  SkipStats
		state  scanState
	)

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if d, ok := openday.ParseDateLine(line); ok {
			state.date = d
			state.hasDate = true
			continue
		}

		if !isHeading(line) {
			continue
		}
		if !state.hasDate {
			stats.NoDate++
			continue
		}

		name := headingTitle(lines, i)
		if name == "" {
			stats.NoTitle++
			continue
		}

		block := collect(lines, i)

		tr, timeLine, ok := findTimeRange(block)
		if !ok {
			stats.NoTime++
			continue
		}

		blocks = append(blocks, Block{
			Date:       state.date,
			SchoolName: name,
			Lines:      block,
			TimeRange:  tr,
			TimeLine:   timeLine,
		})
	}

	return blocks, stats
}

// LocationLine picks the line most likely to carry a venue: the first line
// with a parenthesized segment (addresses often carry an entrance hint),
// else the first line left over once the time and description lines are
// excluded.
func (b Block) LocationLine() string {
	desc := b.DescriptionLine()
	for _, l := range b.Lines {
		if l == b.TimeLine || l == desc {
			continue
		}
		if strings.Contains(l, "(") && strings.Contains(l, ")") {
			return l
		}
	}
	for _, l := range b.Lines {
		if l == b.TimeLine || l == desc {
			continue
		}
		return l
	}
	return ""
}

// descriptionCues mark a line as describing the activity rather than the
// venue or time.
var descriptionCues = []string{
	"open", "lesjes", "proef", "meeloop",
	"informatie", "voorlichting", "rondleiding", "inloop",
}

// DescriptionLine picks the line describing what kind of event this is, for
// classification. Empty when no line carries a recognizable cue.
func (b Block) DescriptionLine() string {
	for _, l := range b.Lines {
		if l == b.TimeLine {
			continue
		}
		ll := strings.ToLower(l)
		for _, cue := range descriptionCues {
			if strings.Contains(ll, cue) {
				return l
			}
		}
	}
	return ""
}

func isHeading(line string) bool {
	return strings.HasPrefix(line, htmltext.HeadingMarker)
}

// headingTitle recovers the event title from the heading line, falling back
// to the next one or two lines. The source sometimes emits the heading
// marker and its text on separate lines, a quirk of how its markup strips.
func headingTitle(lines []string, i int) string {
	title := strings.TrimSpace(strings.TrimPrefix(lines[i], htmltext.HeadingMarker))
	if title != "" {
		return title
	}
	for _, j := range []int{i + 1, i + 2} {
		if j >= len(lines) || isHeading(lines[j]) {
			break
		}
		if t := strings.TrimSpace(lines[j]); t != "" {
			return t
		}
	}
	return ""
}

// collect gathers the block lines after the heading at i, stopping at the
// next date line, the next heading, or the window cap. Boilerplate is
// dropped; bullet markers are stripped.
func collect(lines []string, i int) []string {
	var block []string
	for j := i + 1; j < len(lines) && j <= i+maxBlockLines; j++ {
		line := lines[j]
		if _, ok := openday.ParseDateLine(line); ok {
			break
		}
		if isHeading(line) {
			break
		}
		if isBoilerplate(line) {
			continue
		}
		block = append(block, strings.TrimSpace(strings.TrimPrefix(line, htmltext.BulletMarker)))
	}
	return block
}

func isBoilerplate(line string) bool {
	ll := strings.ToLower(line)
	if ll == "filteren" {
		return true
	}
	for _, b := range boilerplate {
		if strings.Contains(ll, b) {
			return true
		}
	}
	return false
}

func findTimeRange(block []string) (openday.TimeRange, string, bool) {
	for _, l := range block {
		if tr, ok := openday.ParseTimeRange(l); ok {
			return tr, l, true
		}
	}
	return openday.TimeRange{}, "", false
}
