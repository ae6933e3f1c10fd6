// Package report produit la note Markdown de fin de leçon : score, détail
// par mode, questions manquées.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickprogramme/ecoute/internal/fsutil"
	"github.com/patrickprogramme/ecoute/internal/lesson"
	"github.com/patrickprogramme/ecoute/internal/quiz"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

var baseTags = []string{"ecoute", "lesson"}

// ModeScore : une ligne du détail par mode.
type ModeScore struct {
	Mode  model.Mode
	Score model.Score
}

// Missed décrit une question à laquelle l'apprenant a mal répondu.
type Missed struct {
	Clock       string // début du segment, M:SS
	Text        string
	Question    string
	Given       string
	Expected    string
	Explanation string
}

// ReportData contient les données exposées au template.
type ReportData struct {
	LessonID     string
	Title        string
	DateStr      string
	SegmentCount int
	Score        model.Scoreboard
	Modes        []ModeScore
	ModeNames    []string
	Missed       []Missed
	WarningCount int
	Tags         []string
	Filename     string
}

// NewReportData construit ReportData à partir de la leçon jouée et de l'historique
// des réponses.
func NewReportData(l *lesson.Lesson, score model.Scoreboard, history []quiz.Result, now time.Time) ReportData {
	d := ReportData{
		DateStr: now.Format("2006-01-02"),
		Score:   score.Clone(),
		Tags:    baseTags,
	}
	if l != nil {
		d.LessonID = l.ID
		d.Title = l.Ref.Title
		d.SegmentCount = len(l.Segments)
		d.WarningCount = len(l.Warnings)
	}
	if d.Title == "" {
		d.Title = d.LessonID
	}
	d.Title = fsutil.CapitalizeFirst(d.Title)

	// ordre d'affichage des modes
	for _, m := range model.Modes {
		if s, ok := d.Score.ByMode[m]; ok && s.Total > 0 {
			d.Modes = append(d.Modes, ModeScore{Mode: m, Score: s})
			d.ModeNames = append(d.ModeNames, string(m))
		}
	}

	for _, r := range history {
		if r.Correct {
			continue
		}
		m := Missed{
			Question:    r.Question.Question,
			Given:       option(r.Question, r.Selected),
			Expected:    option(r.Question, r.Question.Correct),
			Explanation: r.Question.Explanation,
		}
		if l != nil && r.Segment >= 0 && r.Segment < len(l.Segments) {
			seg := l.Segments[r.Segment]
			m.Clock = seg.Start.Clock()
			m.Text = seg.Text
		}
		d.Missed = append(d.Missed, m)
	}

	d.Filename = fmt.Sprintf("%s %s", fsutil.SanitizeFilename(d.Title), d.DateStr)
	return d
}

func option(q model.Question, i int) string {
	if i < 0 || i >= len(q.Options) {
		return "?"
	}
	return q.Options[i]
}

// Summary retourne un résumé d'une ligne, pour le terminal.
func (d ReportData) Summary() string {
	parts := make([]string, 0, len(d.Modes))
	for _, m := range d.Modes {
		parts = append(parts, fmt.Sprintf("%s %s", m.Mode, m.Score))
	}
	s := fmt.Sprintf("Score %s (%d %%)", d.Score.Overall, d.Score.Overall.Percent())
	if len(parts) > 0 {
		s += " | " + strings.Join(parts, ", ")
	}
	if n := len(d.Missed); n > 0 {
		s += fmt.Sprintf(" | %d erreur(s)", n)
	}
	return s
}
