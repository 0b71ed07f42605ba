package openday

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		desc string
		want Type
	}{
		{"open dag", "Open dag voor groep 8", TypeOpenDay},
		{"open middag", "open middag met rondleiding", TypeOpenDay},
		{"open avond", "Open avond van 19:00", TypeOpenEvening},
		{"informatieavond", "Informatieavond voor ouders", TypeInformationEvening},
		{"voorlichting", "Voorlichting over het vmbo", TypeInformationEvening},
		{"proeflesjes", "Kom proeflesjes volgen", TypeTrialLesson},
		{"meeloopdag", "Meeloopdag voor leerlingen", TypeTrialLesson},
		{"no cue", "Kom gezellig langs", TypeOther},
		{"empty", "", TypeOther},
		// Order matters: a trial cue wins over an open-day cue in the
		// same line, because the checks run most-specific first.
		{"trial beats open dag", "proeflesjes tijdens de open dag", TypeTrialLesson},
		{"information beats open avond", "informatie op de open avond", TypeInformationEvening},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.desc); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.desc, got, tt.want)
			}
		})
	}
}
