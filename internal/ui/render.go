package ui

import (
	"fmt"
	"strings"

	"github.com/patrickprogramme/ecoute/internal/lesson"
	"github.com/patrickprogramme/ecoute/internal/quiz"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

var optionLetters = []string{"1", "2", "3", "4"}

// FormatSegment affiche l'en-tête d'un segment.
func FormatSegment(index, count int, seg model.Segment) string {
	return fmt.Sprintf("── Segment %d/%d  [%s - %s]\n%s",
		index+1, count, seg.Start.Clock(), seg.End.Clock(), seg.Text)
}

// FormatQuestion affiche la question courante et ses options ; la sélection
// est marquée d'une flèche.
func FormatQuestion(st lesson.State) string {
	if st.Question == nil {
		return ""
	}
	q := st.Question
	var b strings.Builder
	fmt.Fprintf(&b, "Question %d/%d (%s) : %s\n", st.Bounds.Index+1, st.Bounds.Count, q.Type, q.Question)
	for i, opt := range q.Options {
		mark := " "
		if i == st.Selected {
			mark = ">"
		}
		fmt.Fprintf(&b, " %s %s. %s\n", mark, optionLetters[i], opt)
	}
	if st.Bounds.Answered {
		b.WriteString("   (déjà répondu)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatResult affiche le retour après validation d'une réponse.
func FormatResult(r quiz.Result) string {
	q := r.Question
	var s string
	if r.Correct {
		s = "✅ Correct !"
	} else {
		s = fmt.Sprintf("❌ Non : la bonne réponse était %s. %s", optionLetters[q.Correct], q.Options[q.Correct])
	}
	if q.Explanation != "" {
		s += "\n   " + q.Explanation
	}
	return s
}

// FormatScore affiche le score global et par mode.
func FormatScore(sb model.Scoreboard) string {
	parts := []string{fmt.Sprintf("Score %s (%d %%)", sb.Overall, sb.Overall.Percent())}
	for _, m := range model.Modes {
		if s, ok := sb.ByMode[m]; ok && s.Total > 0 {
			parts = append(parts, fmt.Sprintf("%s %s", m, s))
		}
	}
	return strings.Join(parts, " | ")
}

// FormatStatus résume l'état de la session (commande "i").
func FormatStatus(st lesson.State) string {
	if !st.Loaded {
		return "Aucune leçon chargée."
	}
	pos := model.Seconds(st.Position).Clock()
	dur := "?"
	if st.Duration > 0 {
		dur = model.Seconds(st.Duration).Clock()
	}
	state := "lecture"
	if st.Paused {
		state = "pause"
	}
	s := fmt.Sprintf("Leçon %s | mode %s | segment %d/%d | %s/%s (%s, x%g)\n%s",
		st.LessonID, st.Mode, st.SegmentIndex+1, st.SegmentCount, pos, dur, state, st.Speed, FormatScore(st.Score))
	if st.Warnings > 0 {
		s += fmt.Sprintf("\n%d avertissement(s) lors de l'analyse des sous-titres", st.Warnings)
	}
	return s
}
