package report

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/patrickprogramme/ecoute/internal/captions"
	"github.com/patrickprogramme/ecoute/internal/lesson"
	"github.com/patrickprogramme/ecoute/internal/quiz"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

func sampleLesson() *lesson.Lesson {
	q := model.Question{
		Type:        model.ModeComprehension,
		Question:    "Où va-t-il ?",
		Options:     []string{"Au marché", "À la gare"},
		Correct:     0,
		Explanation: "Il dit « je vais au marché ».",
	}
	return &lesson.Lesson{
		ID:  "demo",
		Ref: model.LessonRef{Title: "le marché"},
		Segments: []model.Segment{
			{Start: 65, End: 68, Text: "Je vais au marché.", Questions: []model.Question{q}},
			{Start: 68, End: 70, Text: "Il fait beau."},
		},
		Warnings: []captions.Warning{{Line: 3, Kind: captions.WarnTiming, Detail: "x"}},
	}
}

func sampleHistory(l *lesson.Lesson) (model.Scoreboard, []quiz.Result) {
	q := l.Segments[0].Questions[0]
	sb := model.NewScoreboard()
	sb.Record(model.ModeComprehension, false)
	sb.Record(model.ModeGrammar, true)
	return sb, []quiz.Result{
		{Segment: 0, Mode: model.ModeComprehension, Question: q, Selected: 1, Correct: false},
		{Segment: 1, Mode: model.ModeGrammar, Question: model.Question{Options: []string{"a", "b"}}, Selected: 0, Correct: true},
	}
}

func TestNewReportData(t *testing.T) {
	l := sampleLesson()
	sb, hist := sampleHistory(l)
	d := NewReportData(l, sb, hist, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	if d.Title != "Le marché" || d.Filename != "Le marché 2026-03-01" {
		t.Fatalf("title=%q filename=%q", d.Title, d.Filename)
	}
	if len(d.Modes) != 2 || d.Modes[0].Mode != model.ModeComprehension || d.Modes[1].Mode != model.ModeGrammar {
		t.Fatalf("modes = %+v", d.Modes)
	}
	if len(d.Missed) != 1 {
		t.Fatalf("missed = %+v", d.Missed)
	}
	m := d.Missed[0]
	if m.Clock != "1:05" || m.Given != "À la gare" || m.Expected != "Au marché" {
		t.Fatalf("missed[0] = %+v", m)
	}
	if d.WarningCount != 1 || d.SegmentCount != 2 {
		t.Fatalf("warnings=%d segments=%d", d.WarningCount, d.SegmentCount)
	}
	if s := d.Summary(); !strings.Contains(s, "1/2") || !strings.Contains(s, "1 erreur") {
		t.Fatalf("summary = %q", s)
	}
}

func TestRenderAndSave(t *testing.T) {
	r, err := EmbeddedRenderer()
	if err != nil {
		t.Fatalf("EmbeddedRenderer: %v", err)
	}
	l := sampleLesson()
	sb, hist := sampleHistory(l)
	d := NewReportData(l, sb, hist, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	out, err := r.Render(TemplateName, d)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	note := string(out)
	for _, want := range []string{
		`lesson: "demo"`,
		`modes: ["comprehension", "grammar"]`,
		"Score global : **1/2** (50 %)",
		"> [!QUOTE] 1:05",
		"> \"Je vais au marché.\"",
		"Bonne réponse : **Au marché**",
		"> [!WARNING] Sous-titres",
	} {
		if !strings.Contains(note, want) {
			t.Errorf("note misses %q:\n%s", want, note)
		}
	}

	dir := t.TempDir()
	path, err := r.Save(dir, d)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if b, err := os.ReadFile(path); err != nil || string(b) != note {
		t.Fatalf("saved note differs (%v)", err)
	}
}

func TestRenderWithoutAnswers(t *testing.T) {
	r, err := EmbeddedRenderer()
	if err != nil {
		t.Fatal(err)
	}
	out, err := r.Render(TemplateName, NewReportData(&lesson.Lesson{ID: "vide"}, model.NewScoreboard(), nil, time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "Aucune réponse enregistrée.") || !strings.Contains(string(out), "Aucune erreur.") {
		t.Fatalf("unexpected note:\n%s", out)
	}
	if strings.Contains(string(out), "[!WARNING]") {
		t.Fatalf("no warning callout expected")
	}
}

func TestCallouts(t *testing.T) {
	got := callout("warning", false)("Titre", "l1\nl2")
	if got != "> [!WARNING] Titre\n> l1\n> l2\n" {
		t.Fatalf("warning = %q", got)
	}
	if got := callout("quote", true)("« déjà »"); got != "> [!QUOTE]\n> « déjà »\n" {
		t.Fatalf("quote = %q", got)
	}
	if yamlListBlock(nil) != " []" || yamlListInline([]string{"a"}) != `["a"]` {
		t.Fatalf("yaml helpers")
	}
}
