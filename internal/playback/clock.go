package playback

import (
	"sort"

	"github.com/patrickprogramme/ecoute/internal/event"
	"github.com/patrickprogramme/ecoute/internal/logger"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

// SegmentEnded est émis quand la lecture atteint la fin du segment courant.
type SegmentEnded struct {
	Index   int
	Segment model.Segment
	At      float64 // position de lecture au moment de la détection
}

// SegmentEntered est émis quand la position, pendant la lecture, saute dans un
// autre segment (curseur déplacé dans le lecteur).
type SegmentEntered struct {
	From    int
	Index   int
	Segment model.Segment
	At      float64
}

// ScrubTolerance : au-delà de la fin du segment courant, une position à moins
// de ScrubTolerance secondes reste une fin de lecture normale (ticks espacés).
// Plus loin, ou avant le début du segment, c'est un déplacement du curseur.
const ScrubTolerance = 1.0

// écart toléré avant le début du segment (arrondis du lecteur après un seek)
const seekSlack = 0.05

// Clock convertit la position de lecture en index de segment et met la lecture
// en pause à la fin de chaque segment. Non thread-safe : le propriétaire sérialise les appels.
type Clock struct {
	src      TimeSource
	segments []model.Segment
	index    int
	ended    bool // verrou "fin déjà signalée" pour le segment courant

	speeds   []float64
	speedIdx int

	log       *logger.Logger
	onEnded   event.Bus[SegmentEnded]
	onEntered event.Bus[SegmentEntered]
}

// NewClock construit une horloge sur une liste de segments figée.
// speeds vide -> DefaultSpeeds. La première vitesse est appliquée immédiatement.
func NewClock(src TimeSource, segments []model.Segment, speeds []float64, log *logger.Logger) *Clock {
	if len(speeds) == 0 {
		speeds = DefaultSpeeds
	}
	c := &Clock{
		src:      src,
		segments: segments,
		speeds:   append([]float64(nil), speeds...),
		log:      logger.OrNop(log).With("component", "playback"),
	}
	src.SetRate(c.speeds[0])
	return c
}

// OnSegmentEnded abonne fn ; retourne la fonction de désabonnement.
func (c *Clock) OnSegmentEnded(fn func(SegmentEnded)) func() {
	return c.onEnded.Subscribe(fn)
}

// OnSegmentEntered abonne fn aux déplacements de curseur vers un autre segment.
func (c *Clock) OnSegmentEntered(fn func(SegmentEntered)) func() {
	return c.onEntered.Subscribe(fn)
}

func (c *Clock) Index() int {
	return c.index
}

func (c *Clock) Len() int {
	return len(c.segments)
}

// SegmentForTime retourne le plus grand i tel que segments[i].Start <= t,
// borné à [0, N-1]. ok == false si la liste est vide.
// Recherche binaire : les segments sont dans l'ordre du fichier, supposé chronologique.
func (c *Clock) SegmentForTime(t float64) (int, bool) {
	n := len(c.segments)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool {
		return float64(c.segments[i].Start) > t
	}) - 1
	if i < 0 {
		i = 0
	}
	if i > n-1 {
		i = n - 1
	}
	return i, true
}

// Cue positionne la lecture au début du segment i, sans lancer la lecture.
func (c *Clock) Cue(i int) bool {
	if i < 0 || i >= len(c.segments) {
		return false
	}
	c.index = i
	c.ended = false
	c.src.Pause()
	if err := c.src.Seek(float64(c.segments[i].Start)); err != nil {
		// média pas prêt : la position sera appliquée au prochain PlaySegment
		c.log.Debug("cue: seek ignored", "index", i, "error", err)
	}
	return true
}

// PlaySegment se place au début du segment i et lance la lecture.
// Un refus du lecteur (média pas prêt, autoplay bloqué) est journalisé,
// la lecture reste en pause et PlaySegment retourne false.
func (c *Clock) PlaySegment(i int) bool {
	if i < 0 || i >= len(c.segments) {
		c.log.Debug("playSegment: index out of range", "index", i, "segments", len(c.segments))
		return false
	}
	c.index = i
	c.ended = false
	if err := c.src.Seek(float64(c.segments[i].Start)); err != nil {
		c.log.Warn("playSegment: seek failed", "index", i, "error", err)
		return false
	}
	if err := c.src.Play(); err != nil {
		c.log.Warn("playSegment: play rejected", "index", i, "error", err)
		c.src.Pause()
		return false
	}
	return true
}

// Pause met la lecture en pause sans toucher à l'index.
func (c *Clock) Pause() {
	c.src.Pause()
}

// HandleTimeUpdate traite une notification "la position a avancé".
// Appelée à fréquence élevée et irrégulière : O(log N), idempotente.
// Si la fin du segment courant est atteinte pendant la lecture, met en pause
// et émet SegmentEnded une seule fois par franchissement. Si la position a
// sauté dans un autre segment, l'index suit et SegmentEntered est émis à la
// place, sans pause.
func (c *Clock) HandleTimeUpdate() {
	if c.index < 0 || c.index >= len(c.segments) {
		return
	}
	seg := c.segments[c.index]
	t := c.src.CurrentTime()
	if !c.src.IsPaused() && outside(seg, t) {
		if i, ok := c.SegmentForTime(t); ok && i != c.index {
			from := c.index
			c.index = i
			c.ended = false
			c.log.Debug("position moved to another segment", "from", from, "to", i, "at", t)
			c.onEntered.Emit(SegmentEntered{From: from, Index: i, Segment: c.segments[i], At: t})
			return
		}
	}
	if t < float64(seg.End) {
		// retour en arrière dans le segment : un nouveau franchissement est possible
		c.ended = false
		return
	}
	if c.ended || c.src.IsPaused() {
		return
	}
	c.ended = true
	c.src.Pause()
	c.onEnded.Emit(SegmentEnded{Index: c.index, Segment: seg, At: t})
}

func outside(seg model.Segment, t float64) bool {
	return t < float64(seg.Start)-seekSlack || t >= float64(seg.End)+ScrubTolerance
}

// Speed retourne la vitesse courante.
func (c *Clock) Speed() float64 {
	return c.speeds[c.speedIdx]
}

// ToggleSpeed passe à la vitesse suivante (retour à la première après la dernière)
// et l'applique immédiatement.
func (c *Clock) ToggleSpeed() float64 {
	c.speedIdx = (c.speedIdx + 1) % len(c.speeds)
	rate := c.speeds[c.speedIdx]
	c.src.SetRate(rate)
	return rate
}

// Progress retourne la position courante et la durée totale du média.
func (c *Clock) Progress() (position, duration float64) {
	return c.src.CurrentTime(), c.src.Duration()
}
