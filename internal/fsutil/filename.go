package fsutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameRunes borne la longueur d'un nom produit par SanitizeFilename.
const MaxNameRunes = 120

// DefaultName remplace un titre vide après nettoyage.
const DefaultName = "lecon"

// SanitizeFilename transforme un titre de leçon en nom de fichier portable :
// ":" devient "-", les caractères interdits et de contrôle deviennent des
// espaces, les blancs sont fusionnés et les points finaux retirés.
// La casse est laissée à l'appelant.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, ":", "-")
	name = strings.Map(func(r rune) rune {
		if r == utf8.RuneError || unicode.IsControl(r) || strings.ContainsRune(`<>"/\|?*`, r) {
			return ' '
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")
	name = truncateRunes(name, MaxNameRunes)
	name = strings.TrimRight(name, ". ")
	if name == "" {
		return DefaultName
	}
	return name
}

// truncateRunes coupe s après n runes sans casser de caractère multi-octet.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// CapitalizeFirst met en majuscule la première rune de s.
func CapitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
