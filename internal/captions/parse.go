package captions

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/patrickprogramme/ecoute/pkg/model"
)

// Parse découpe un fichier de captions (WebVTT + blocs de questions embarqués)
// en segments ordonnés. Le parsing est "best effort" : un segment invalide est
// rejeté avec un avertissement et la lecture continue au marqueur suivant.
//
// Format attendu :
//
//	<en-tête optionnel>
//
//	1
//	00:00:01.000 --> 00:00:04.500
//	Bonjour à tous.{"questions":[{"type":"comprehension",...}]}
//
// Le bloc de questions peut suivre le texte sur la même ligne ou s'étendre
// sur plusieurs lignes ; sa fin est détectée par l'équilibre des accolades.
func Parse(raw string) Result {
	lines := splitLines(raw)
	res := Result{Segments: []model.Segment{}}

	// en-tête : tout ce qui précède la première ligne marqueur
	i := 0
	for i < len(lines) && !IsMarkerLine(lines[i]) {
		i++
	}

	for i < len(lines) {
		if !IsMarkerLine(lines[i]) {
			// identifiant de cue, ligne orpheline entre deux cues
			i++
			continue
		}
		markerLine := i + 1
		start, end, timingErr := ParseMarker(lines[i])

		// on consomme le corps même si le marqueur est invalide,
		// sinon son texte serait rattaché au segment suivant
		c, next := readCue(&res, lines, i+1)
		i = next

		if timingErr != nil {
			res.warn(markerLine, WarnTiming, "segment rejeté: %v", timingErr)
			continue
		}
		text := normalizeWhitespace(strings.Join(c.text, " "))
		if text == "" {
			res.warn(markerLine, WarnEmptyText, "segment rejeté: transcription vide")
			continue
		}
		res.Segments = append(res.Segments, model.Segment{
			Start:     start,
			End:       end,
			Text:      text,
			Questions: c.questions,
		})
	}
	return res
}

// ParseBytes : même chose que Parse, depuis des octets déjà en mémoire.
func ParseBytes(b []byte) Result {
	return Parse(string(b))
}

// ParseReader lit tout r puis parse. Erreur uniquement si la lecture échoue.
func ParseReader(r io.Reader) (Result, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("ParseReader: read: %w", err)
	}
	return ParseBytes(b), nil
}

type cue struct {
	text      []string
	questions []model.Question
}

// readCue collecte les lignes de transcription qui suivent un marqueur,
// jusqu'à une ligne vide, le marqueur suivant ou un bloc de questions.
// Retourne le cue et l'index de la première ligne non consommée.
func readCue(res *Result, lines []string, i int) (cue, int) {
	c := cue{questions: []model.Question{}}
	for i < len(lines) {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			return c, i
		}
		idx := strings.Index(line, QuestionsSentinel)
		if idx < 0 {
			if IsMarkerLine(line) {
				return c, i
			}
			c.text = append(c.text, line)
			i++
			continue
		}

		// bloc de questions : le texte qui le précède sur la ligne appartient à la transcription
		if before := strings.TrimSpace(line[:idx]); before != "" {
			c.text = append(c.text, before)
		}
		blockLine := i + 1
		block, next, ok := readBlock(res, lines, i, idx)
		i = next
		if ok {
			qs, err := DecodeQuestions(block)
			if err != nil {
				res.warn(blockLine, WarnQuestions, "questions ignorées: %v", err)
			} else {
				c.questions = keepValidQuestions(res, blockLine, qs)
			}
		}

		// segment complet : les lignes restantes du cue sont ignorées
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" && !IsMarkerLine(lines[i]) {
			res.warn(i+1, WarnTrailingText, "texte après le bloc de questions ignoré")
			i++
		}
		return c, i
	}
	return c, i
}

// readBlock accumule le bloc commençant à lines[i][idx:] jusqu'à équilibre des accolades.
// Un marqueur valide rencontré avant l'équilibre abandonne le bloc (non consommé),
// pour ne pas avaler les segments suivants.
func readBlock(res *Result, lines []string, i, idx int) ([]byte, int, bool) {
	var sc braceScanner
	var buf strings.Builder

	first := lines[i][idx:]
	if end := sc.feed(first); end >= 0 {
		warnTrailing(res, i+1, first[end+1:])
		return []byte(first[:end+1]), i + 1, true
	}
	buf.WriteString(first)

	for j := i + 1; j < len(lines); j++ {
		line := lines[j]
		if IsMarkerLine(line) {
			if _, _, err := ParseMarker(line); err == nil {
				res.warn(i+1, WarnQuestions, "bloc de questions non terminé avant la ligne %d", j+1)
				return nil, j, false
			}
		}
		buf.WriteByte('\n')
		if end := sc.feed(line); end >= 0 {
			buf.WriteString(line[:end+1])
			warnTrailing(res, j+1, line[end+1:])
			return []byte(buf.String()), j + 1, true
		}
		buf.WriteString(line)
	}
	res.warn(i+1, WarnQuestions, "bloc de questions non terminé en fin de fichier")
	return nil, len(lines), false
}

func warnTrailing(res *Result, line int, rest string) {
	if strings.TrimSpace(rest) != "" {
		res.warn(line, WarnTrailingText, "texte après le bloc de questions ignoré: %q", strings.TrimSpace(rest))
	}
}

// splitLines normalise les fins de ligne (CRLF, CR), retire le BOM
// et les espaces de fin de ligne.
func splitLines(raw string) []string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRightFunc(l, unicode.IsSpace)
	}
	return lines
}

// normalizeWhitespace nettoie les espace : un seul espace entre mots, aucun en début/fin
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
