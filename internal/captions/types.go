package captions

import (
	"fmt"

	"github.com/patrickprogramme/ecoute/pkg/model"
)

// WarningKind classe les problèmes non fatals rencontrés pendant le parsing.
type WarningKind string

const (
	// WarnTiming : ligne marqueur illisible ou plage vide/inversée -> segment rejeté.
	WarnTiming WarningKind = "timing"
	// WarnEmptyText : aucune transcription après le marqueur -> segment rejeté.
	WarnEmptyText WarningKind = "empty-text"
	// WarnQuestions : bloc de questions non décodable ou non terminé -> questions vides.
	WarnQuestions WarningKind = "questions"
	// WarnInvalidQuestion : une question décodée viole ses invariants -> question ignorée.
	WarnInvalidQuestion WarningKind = "invalid-question"
	// WarnTrailingText : texte après la fin du bloc de questions -> ignoré.
	WarnTrailingText WarningKind = "trailing-text"
)

// Warning décrit un problème non fatal. Line est numérotée à partir de 1.
type Warning struct {
	Line   int         `json:"line"`
	Kind   WarningKind `json:"kind"`
	Detail string      `json:"detail"`
}

func (w Warning) String() string {
	return fmt.Sprintf("ligne %d: %s: %s", w.Line, w.Kind, w.Detail)
}

// Result est le résultat structuré d'un parsing : segments acceptés + avertissements.
// Un fichier sans aucun segment valide donne un Result vide, pas une erreur.
type Result struct {
	Segments []model.Segment `json:"segments"`
	Warnings []Warning       `json:"warnings,omitempty"`
}

// Count retourne le nombre d'avertissements du type donné.
func (r Result) Count(kind WarningKind) int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// QuestionCount retourne le nombre total de questions, tous segments confondus.
func (r Result) QuestionCount() int {
	n := 0
	for _, s := range r.Segments {
		n += len(s.Questions)
	}
	return n
}

func (r *Result) warn(line int, kind WarningKind, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{
		Line:   line,
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
	})
}
