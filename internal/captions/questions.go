package captions

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/patrickprogramme/ecoute/pkg/model"
)

// QuestionsSentinel marque le début d'un bloc de questions embarqué.
const QuestionsSentinel = `{"questions"`

// braceScanner compte les accolades ouvrantes/fermantes d'un bloc JSON
// découpé sur plusieurs lignes. Les accolades dans les chaines JSON sont ignorées.
type braceScanner struct {
	depth    int
	inString bool
	escaped  bool
}

// feed consomme s et retourne la position (octet) de l'accolade qui
// équilibre le bloc, ou -1 si le bloc n'est pas encore fermé.
func (b *braceScanner) feed(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if b.inString {
			switch {
			case b.escaped:
				b.escaped = false
			case c == '\\':
				b.escaped = true
			case c == '"':
				b.inString = false
			}
			continue
		}
		switch c {
		case '"':
			b.inString = true
		case '{':
			b.depth++
		case '}':
			b.depth--
			if b.depth == 0 {
				return i
			}
		}
	}
	return -1
}

// questionBlock est la forme JSON du bloc embarqué.
type questionBlock struct {
	Questions []model.Question `json:"questions"`
}

// DecodeQuestions décode un bloc `{"questions":[...]}`.
// Erreur si le JSON est invalide ; la validation question par question est faite par l'appelant.
func DecodeQuestions(block []byte) ([]model.Question, error) {
	var qb questionBlock
	dec := json.NewDecoder(bytes.NewReader(block))
	// champs inconnus tolérés (ex: "hint", "difficulty") : on les ignore proprement
	if err := dec.Decode(&qb); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return qb.Questions, nil
}

// keepValidQuestions filtre les questions qui respectent leurs invariants
// et ajoute un avertissement par question rejetée.
func keepValidQuestions(res *Result, line int, qs []model.Question) []model.Question {
	out := make([]model.Question, 0, len(qs))
	for i, q := range qs {
		if err := q.Validate(); err != nil {
			res.warn(line, WarnInvalidQuestion, "question %d ignorée: %v", i, err)
			continue
		}
		// forme canonique ("gap_fill" -> "gap-fill") pour le filtrage par mode
		q.Type, _ = model.ParseMode(string(q.Type))
		out = append(out, q)
	}
	return out
}
