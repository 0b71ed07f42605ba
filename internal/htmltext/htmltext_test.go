package htmltext

import (
	"os"
	"strings"
	"testing"
)

func TestNormalizeFixture(t *testing.T) {
	data, err := os.ReadFile("testdata/listing.html")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}

	text := Normalize(string(data))

	wantLines := []string{
		"15 januari 2026",
		"### Voorbeeld College (https://voorbeeldcollege.nl/open-dag)",
		"• open dag, kom langs",
		"• 10:00 - 14:00",
		"• Hoofdstraat 1",
		"### Tweede Lyceum & Mavo",
		"Informatieavond voor ouders",
		"19.00 – 21.00 uur",
		"Schoolstraat 2 (ingang achterzijde)",
		"16 januari 2026",
		"Derde Praktijkschool",
		"### Vierde College",
	}
	for _, want := range wantLines {
		if !strings.Contains(text, want) {
			t.Errorf("normalized text missing line %q\ngot:\n%s", want, text)
		}
	}

	for _, absent := range []string{"<", ">", "dataLayer", ".agenda"} {
		if strings.Contains(text, absent) {
			t.Errorf("normalized text should not contain %q", absent)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			name:   "anchor keeps destination",
			markup: `<p>Zie <a href="https://example.nl/info">de website</a> voor meer.</p>`,
			want:   "Zie de website (https://example.nl/info) voor meer.",
		},
		{
			name:   "anchor without href renders label only",
			markup: `<p><a>alleen tekst</a></p>`,
			want:   "alleen tekst",
		},
		{
			name:   "heading becomes marker line",
			markup: `<h2>Open dagen</h2>`,
			want:   "### Open dagen",
		},
		{
			name:   "line breaks become newlines",
			markup: `<p>eerste<br>tweede</p>`,
			want:   "eerste\ntweede",
		},
		{
			name:   "list items become bullets",
			markup: `<ul><li>een</li><li>twee</li></ul>`,
			want:   "• een\n• twee",
		},
		{
			name:   "entities decoded",
			markup: `<p>Lyceum &amp; Mavo &#39;t Hart</p>`,
			want:   "Lyceum & Mavo 't Hart",
		},
		{
			name:   "script and style removed",
			markup: `<style>b{}</style><script>var x;</script><p>tekst</p>`,
			want:   "tekst",
		},
		{
			name:   "blank lines collapsed",
			markup: "<div>a</div><p></p><p></p><p></p><div>b</div>",
			want:   "a\n\nb",
		},
		{
			name:   "not markup at all",
			markup: "15 januari 2026\n### Kop\n10:00 - 14:00",
			want:   "15 januari 2026\n### Kop\n10:00 - 14:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.markup); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.markup, got, tt.want)
			}
		})
	}
}

func TestLines(t *testing.T) {
	got := Lines("  eerste  \n\n\ntweede\n   \nderde\n")
	want := []string{"eerste", "tweede", "derde"}

	if len(got) != len(want) {
		t.Fatalf("Lines returned %d lines, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFirstURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain url", "zie https://example.nl/open-dag hier", "https://example.nl/open-dag", true},
		{"url stops at paren", "naam (https://example.nl/x) rest", "https://example.nl/x", true},
		{"url stops at quote", `href="https://example.nl/y" meer`, "https://example.nl/y", true},
		{"no url", "geen link hier", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstURL(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("FirstURL(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFirstURLNear(t *testing.T) {
	markup := `<a href="https://voorbeeldcollege.nl/open-dag">Voorbeeld College</a>`

	idx := strings.Index(markup, "Voorbeeld College")
	got, ok := FirstURLNear(markup, idx)
	if !ok || got != "https://voorbeeldcollege.nl/open-dag" {
		t.Errorf("FirstURLNear = %q, %v; want the anchor href", got, ok)
	}

	// Out-of-window URLs are not picked up.
	far := strings.Repeat("x", 2000) + " https://ver.example.nl " + strings.Repeat("y", 2000)
	if u, ok := FirstURLNear(far, 0); ok {
		t.Errorf("FirstURLNear should not reach a URL 2000 bytes away, got %q", u)
	}
}
