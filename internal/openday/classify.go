package openday

import "strings"

// Type is the coarse event category recovered from the description line.
type Type string

const (
	TypeOpenDay            Type = "open_day"
	TypeOpenEvening        Type = "open_evening"
	TypeInformationEvening Type = "information_evening"
	TypeTrialLesson        Type = "trial_lesson"
	TypeOther              Type = "other"
)

// typeCue pairs a category with the substrings that signal it. Checks run in
// order and the first hit wins, so more specific cues come first.
type typeCue struct {
	typ  Type
	cues []string
}

// classifierCues is the default keyword table. It is data, not logic, so
// coverage can be extended without touching the classifier.
var classifierCues = []typeCue{
	{TypeTrialLesson, []string{"lesjes", "proef", "meeloop"}},
	{TypeInformationEvening, []string{"informatie", "voorlichting"}},
	{TypeOpenEvening, []string{"open avond"}},
	{TypeOpenDay, []string{"open dag", "open middag"}},
}

// Classify assigns a best-effort category from keyword cues in the
// description line. The label is advisory: absence of any recognizable cue
// yields TypeOther rather than an error.
func Classify(desc string) Type {
	d := strings.ToLower(desc)
	for _, c := range classifierCues {
		for _, cue := range c.cues {
			if strings.Contains(d, cue) {
				return c.typ
			}
		}
	}
	return TypeOther
}
