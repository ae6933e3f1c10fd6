package report

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// yamlListInline transforme: {"a", "b"} -> ["a", "b"]
func yamlListInline(xs []string) string {
	if len(xs) == 0 {
		return "[]"
	}
	quoted := make([]string, 0, len(xs))
	for _, s := range xs {
		quoted = append(quoted, strconv.Quote(s))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// yamlListBlock retourne une liste YAML en bloc, à placer juste après "tags:".
func yamlListBlock(xs []string) string {
	if len(xs) == 0 {
		return " []"
	}
	var b strings.Builder
	for _, s := range xs {
		b.WriteString("\n  - ")
		b.WriteString(strconv.Quote(s))
	}
	return b.String()
}

// quoteBlockPure : préfixe chaque ligne par "> " pour un blockquote Markdown.
func quoteBlockPure(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := range lines {
		lines[i] = "> " + lines[i]
	}
	return strings.Join(lines, "\n")
}

// buildCalloutBase construit l'en-tête du callout : [!KIND] titre
func buildCalloutBase(kind, title string) string {
	k := strings.ToUpper(strings.TrimSpace(kind))
	if k == "" {
		k = "NOTE"
	}
	var cleanKind []rune
	for _, r := range k {
		if unicode.IsLetter(r) || r == '-' || r == '_' {
			cleanKind = append(cleanKind, r)
		}
	}
	header := fmt.Sprintf("> [!%s]", string(cleanKind))
	if t := strings.TrimSpace(title); t != "" {
		header = header + " " + t
	}
	return header + "\n"
}

// prefixLinesWithQuote ajoute "> " au début de chaque ligne (corps du callout).
func prefixLinesWithQuote(content string) string {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return "> \n"
	}
	var b strings.Builder
	for _, l := range strings.Split(content, "\n") {
		b.WriteString("> ")
		b.WriteString(strings.TrimRight(l, " \t"))
		b.WriteString("\n")
	}
	return b.String()
}

// ensureQuoted entoure s de guillemets s'il n'en a pas déjà.
func ensureQuoted(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return `""`
	}
	switch []rune(s)[0] {
	case '"', '\'', '«', '“':
		return s
	}
	return `"` + s + `"`
}

// callout construit une fonction de template pour le type kind.
//   - {{ warning .Texte }}
//   - {{ warning "Titre" .Texte }}
func callout(kind string, quoted bool) func(args ...interface{}) string {
	return func(args ...interface{}) string {
		var title, content string
		switch len(args) {
		case 0:
		case 1:
			content = fmt.Sprint(args[0])
		default:
			title = fmt.Sprint(args[0])
			content = fmt.Sprint(args[1])
		}
		if quoted {
			content = ensureQuoted(content)
		}
		return buildCalloutBase(kind, title) + prefixLinesWithQuote(content)
	}
}
