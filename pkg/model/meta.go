package model

import (
	"fmt"
	"sort"
	"strings"
)

const (
	MinOptions = 2
	MaxOptions = 4
)

// Question est une question à choix multiple rattachée à un seul Segment.
type Question struct {
	Type        Mode     `json:"type"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
}

// Validate vérifie les invariants d'une question décodée.
func (q Question) Validate() error {
	if !q.Type.Valid() {
		return fmt.Errorf("type de question inconnu: %q", q.Type)
	}
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("question vide")
	}
	if n := len(q.Options); n < MinOptions || n > MaxOptions {
		return fmt.Errorf("%d options, attendu entre %d et %d", n, MinOptions, MaxOptions)
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return fmt.Errorf("index correct %d hors limites (%d options)", q.Correct, len(q.Options))
	}
	return nil
}

// IsCorrect indique si l'option choisie est la bonne réponse.
func (q Question) IsCorrect(option int) bool {
	return option == q.Correct
}

// Segment représente une phrase prononcée : fenêtre temporelle + transcription + questions.
// Produit une fois au chargement de la leçon, jamais modifié ensuite.
type Segment struct {
	Start     Seconds    `json:"start"`
	End       Seconds    `json:"end"`
	Text      string     `json:"text"`
	Questions []Question `json:"questions"`
}

func (s Segment) Duration() Seconds {
	return s.End - s.Start
}

// QuestionsFor retourne les questions du segment dont le type correspond au mode,
// dans l'ordre d'origine.
func (s Segment) QuestionsFor(mode Mode) []Question {
	var out []Question
	for _, q := range s.Questions {
		if q.Type == mode {
			out = append(out, q)
		}
	}
	return out
}

func (s Segment) String() string {
	return fmt.Sprintf("Segment[%s-%s, %q, questions=%d]", s.Start.Clock(), s.End.Clock(), s.Text, len(s.Questions))
}

// LessonRef contient les deux ressources d'une leçon : captions et audio.
type LessonRef struct {
	Title    string `json:"title,omitempty"`
	VTTURL   string `json:"vtt"`
	AudioURL string `json:"audio"`
}

// LessonIndex associe un identifiant de leçon à ses ressources.
type LessonIndex map[string]LessonRef

// IDs retourne les identifiants triés.
func (li LessonIndex) IDs() []string {
	out := make([]string, 0, len(li))
	for id := range li {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Pretty retourne une liste multi-lignes simple des leçons disponibles.
func (li LessonIndex) Pretty() string {
	if len(li) == 0 {
		return "Leçons : (aucune)\n"
	}
	var b strings.Builder
	b.WriteString("Leçons :\n")
	for _, id := range li.IDs() {
		ref := li[id]
		title := ref.Title
		if title == "" {
			title = id
		}
		fmt.Fprintf(&b, "  %-16s %s\n", id, title)
	}
	return b.String()
}

// Score est un compteur {correct, total}.
type Score struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Percent retourne le pourcentage de bonnes réponses (0 si total == 0).
func (s Score) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Correct * 100 / s.Total
}

func (s Score) String() string {
	return fmt.Sprintf("%d/%d", s.Correct, s.Total)
}

// Scoreboard cumule le score global et le détail par mode.
type Scoreboard struct {
	Overall Score          `json:"overall"`
	ByMode  map[Mode]Score `json:"by_mode"`
}

func NewScoreboard() Scoreboard {
	return Scoreboard{ByMode: make(map[Mode]Score)}
}

// Record ajoute une réponse au tableau.
func (sb *Scoreboard) Record(mode Mode, correct bool) {
	if sb.ByMode == nil {
		sb.ByMode = make(map[Mode]Score)
	}
	m := sb.ByMode[mode]
	m.Total++
	sb.Overall.Total++
	if correct {
		m.Correct++
		sb.Overall.Correct++
	}
	sb.ByMode[mode] = m
}

// Clone retourne une copie indépendante (la map n'est pas partagée).
func (sb Scoreboard) Clone() Scoreboard {
	out := Scoreboard{Overall: sb.Overall, ByMode: make(map[Mode]Score, len(sb.ByMode))}
	for k, v := range sb.ByMode {
		out.ByMode[k] = v
	}
	return out
}
