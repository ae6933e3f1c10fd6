package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Seconds représente une position dans l'audio, en secondes (fractionnaire).
type Seconds float64

// Whole retourne la partie entière (secondes pleines), jamais négative.
func (s Seconds) Whole() int64 {
	if s <= 0 || math.IsNaN(float64(s)) {
		return 0
	}
	return int64(math.Floor(float64(s)))
}

// Clock formate Seconds en "M:SS" (minutes non bornées).
// Exemple : 65.4 -> "1:05", 3661 -> "61:01".
func (s Seconds) Clock() string {
	total := s.Whole()
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// TimestampHHMMSS formate Seconds en "HH:MM:SS" (toujours 2 chiffres par composant).
// Exemple : 65 -> "00:01:05", 3661 -> "01:01:01".
func (s Seconds) TimestampHHMMSS() string {
	total := s.Whole()
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// Mode est le type d'exercice associé à une question.
type Mode string

const (
	ModeComprehension   Mode = "comprehension"
	ModeVerbRecognition Mode = "verb-recognition"
	ModeGrammar         Mode = "grammar"
	ModePhonetic        Mode = "phonetic"
	ModeInference       Mode = "inference"
	ModeContext         Mode = "context"
	ModeSequencing      Mode = "sequencing"
	ModeGapFill         Mode = "gap-fill"
)

// Modes liste les modes dans l'ordre d'affichage.
var Modes = []Mode{
	ModeComprehension,
	ModeVerbRecognition,
	ModeGrammar,
	ModePhonetic,
	ModeInference,
	ModeContext,
	ModeSequencing,
	ModeGapFill,
}

// ParseMode convertit une chaine en Mode, retourne une erreur si mode inconnu.
// Accepte aussi "_" à la place de "-" (gap_fill, verb_recognition).
func ParseMode(s string) (Mode, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, m := range Modes {
		if string(m) == norm {
			return m, nil
		}
	}
	return "", fmt.Errorf("mode d'exercice inconnu: %q", s)
}

func (m Mode) Valid() bool {
	_, err := ParseMode(string(m))
	return err == nil
}

func (m Mode) String() string {
	return string(m)
}
