package clipboard

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrEmpty : rien à copier.
var ErrEmpty = errors.New("le texte à copier ne peut pas être vide")

// ErrUnsupported : aucun presse-papier système (xclip/xsel/wl-copy absents).
var ErrUnsupported = errors.New("presse-papier non disponible sur ce système")

// Writer écrit du texte dans un presse-papier.
type Writer interface {
	WriteAll(text string) error
}

// System est le presse-papier du système d'exploitation.
type System struct{}

// WriteAll écrit une chaîne de caractères dans le presse-papier.
func (System) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

// CopySentence copie la phrase d'un segment, sans les espaces superflus.
func CopySentence(w Writer, text string) error {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ErrEmpty
	}
	return w.WriteAll(text)
}
