package captions

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/patrickprogramme/ecoute/pkg/model"
)

// MarkerArrow sépare le début et la fin sur une ligne marqueur.
const MarkerArrow = "-->"

var (
	ErrBadTimestamp  = errors.New("timestamp invalide")
	ErrInvertedRange = errors.New("fin avant ou égale au début")
)

var (
	reSecondsField = regexp.MustCompile(`^\d+(\.\d+)?$`)
	reIntField     = regexp.MustCompile(`^\d+$`)
)

// ParseTimestamp lit "HH:MM:SS.mmm", "MM:SS.mmm" ou "SS.mmm".
// Les champs heure/minute absents valent 0 ; la fraction est séparée par "." ou ",".
func ParseTimestamp(s string) (model.Seconds, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: vide", ErrBadTimestamp)
	}
	fields := strings.Split(s, ":")
	if len(fields) > 3 {
		return 0, fmt.Errorf("%w: %q (trop de champs)", ErrBadTimestamp, s)
	}

	secField := strings.Replace(fields[len(fields)-1], ",", ".", 1)
	if !reSecondsField.MatchString(secField) {
		return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
	}
	sec, err := strconv.ParseFloat(secField, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrBadTimestamp, s, err)
	}

	// champs entiers restants, du plus fin (minutes) au plus grossier (heures)
	total := sec
	mult := 60.0
	for i := len(fields) - 2; i >= 0; i-- {
		f := fields[i]
		if !reIntField.MatchString(f) {
			return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrBadTimestamp, s, err)
		}
		total += float64(v) * mult
		mult *= 60
	}
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
	}
	return model.Seconds(total), nil
}

// IsMarkerLine indique si la ligne contient la flèche d'une plage temporelle.
func IsMarkerLine(line string) bool {
	return strings.Contains(line, MarkerArrow)
}

// ParseMarker lit une ligne "début --> fin [réglages]".
// Les réglages de cue (align:start, position:10%...) après la fin sont ignorés.
// La plage doit être strictement positive : end > start.
func ParseMarker(line string) (start, end model.Seconds, err error) {
	idx := strings.Index(line, MarkerArrow)
	if idx < 0 {
		return 0, 0, fmt.Errorf("%w: pas de %q", ErrBadTimestamp, MarkerArrow)
	}
	right := strings.Fields(line[idx+len(MarkerArrow):])
	if len(right) == 0 {
		return 0, 0, fmt.Errorf("%w: fin absente", ErrBadTimestamp)
	}

	start, err = ParseTimestamp(line[:idx])
	if err != nil {
		return 0, 0, fmt.Errorf("début: %w", err)
	}
	end, err = ParseTimestamp(right[0])
	if err != nil {
		return 0, 0, fmt.Errorf("fin: %w", err)
	}
	if end <= start {
		return 0, 0, fmt.Errorf("%w: %s --> %s", ErrInvertedRange, start.Clock(), end.Clock())
	}
	return start, end, nil
}
