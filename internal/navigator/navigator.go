// Package navigator possède l'index du segment courant sur une liste figée.
package navigator

import (
	"github.com/patrickprogramme/ecoute/internal/event"
	"github.com/patrickprogramme/ecoute/internal/logger"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

// Cuer repositionne la lecture au début d'un segment, sans la lancer.
// Satisfait par *playback.Clock.
type Cuer interface {
	Cue(i int) bool
}

// Changed est émis à chaque changement de segment courant.
type Changed struct {
	Index    int
	Previous int
	Segment  model.Segment
}

// Complete est émis quand on tente d'avancer au-delà du dernier segment.
type Complete struct {
	Segments int
}

// Navigator : next/previous/seek bornés, garde optionnelle sur Next.
//
// En fin de leçon l'index reste sur le dernier segment ; Completed() devient vrai
// et Complete n'est émis qu'une fois, jusqu'à Previous, SeekTo ou Reset.
type Navigator struct {
	segments  []model.Segment
	index     int
	completed bool

	cue   Cuer
	guard func() bool

	log        *logger.Logger
	onChanged  event.Bus[Changed]
	onComplete event.Bus[Complete]
}

// New construit un navigateur positionné sur le segment 0. cue peut être nil.
func New(segments []model.Segment, cue Cuer, log *logger.Logger) *Navigator {
	return &Navigator{
		segments: segments,
		cue:      cue,
		log:      logger.OrNop(log).With("component", "navigator"),
	}
}

// SetGuard installe une garde consultée par Next. nil retire la garde.
func (n *Navigator) SetGuard(fn func() bool) {
	n.guard = fn
}

func (n *Navigator) OnSegmentChanged(fn func(Changed)) func() {
	return n.onChanged.Subscribe(fn)
}

func (n *Navigator) OnLessonComplete(fn func(Complete)) func() {
	return n.onComplete.Subscribe(fn)
}

func (n *Navigator) Index() int      { return n.index }
func (n *Navigator) Len() int        { return len(n.segments) }
func (n *Navigator) Completed() bool { return n.completed }

func (n *Navigator) HasNext() bool {
	return n.index < len(n.segments)-1
}

func (n *Navigator) HasPrevious() bool {
	return n.index > 0 && len(n.segments) > 0
}

// Current retourne le segment courant ; ok == false si la liste est vide.
func (n *Navigator) Current() (model.Segment, bool) {
	if n.index < 0 || n.index >= len(n.segments) {
		return model.Segment{}, false
	}
	return n.segments[n.index], true
}

// Next avance d'un segment si la garde l'autorise.
// Utilisé par les commandes utilisateur (clavier, bouton).
func (n *Navigator) Next() bool {
	if n.guard != nil && !n.guard() {
		n.log.Debug("next: vetoed by guard", "index", n.index)
		return false
	}
	return n.Advance()
}

// Advance avance d'un segment sans consulter la garde (fin naturelle de lecture).
// Au dernier segment : l'index ne bouge pas et Complete est émis.
func (n *Navigator) Advance() bool {
	if len(n.segments) == 0 {
		return false
	}
	if n.index >= len(n.segments)-1 {
		if !n.completed {
			n.completed = true
			n.log.Debug("lesson complete", "segments", len(n.segments))
			n.onComplete.Emit(Complete{Segments: len(n.segments)})
		}
		return false
	}
	n.moveTo(n.index + 1)
	return true
}

// Previous recule d'un segment ; no-op au segment 0.
func (n *Navigator) Previous() bool {
	if n.index <= 0 || len(n.segments) == 0 {
		return false
	}
	n.moveTo(n.index - 1)
	return true
}

// SeekTo saute au segment i (sans garde). Rester sur le segment courant
// repositionne seulement la lecture.
func (n *Navigator) SeekTo(i int) bool {
	if i < 0 || i >= len(n.segments) {
		n.log.Debug("seekTo: index out of range", "index", i, "segments", len(n.segments))
		return false
	}
	if i == n.index {
		n.completed = false
		n.cueAt(i)
		return true
	}
	n.moveTo(i)
	return true
}

// Follow aligne l'index sur i quand la lecture s'y trouve déjà (curseur
// déplacé par l'utilisateur) : pas de garde, pas de repositionnement.
func (n *Navigator) Follow(i int) bool {
	if i < 0 || i >= len(n.segments) || i == n.index {
		return false
	}
	prev := n.index
	n.index = i
	n.completed = false
	n.onChanged.Emit(Changed{Index: i, Previous: prev, Segment: n.segments[i]})
	return true
}

// Reset revient au segment 0 et émet Changed, même si l'index était déjà 0.
func (n *Navigator) Reset() {
	if len(n.segments) == 0 {
		return
	}
	prev := n.index
	n.index = 0
	n.completed = false
	n.cueAt(0)
	n.onChanged.Emit(Changed{Index: 0, Previous: prev, Segment: n.segments[0]})
}

func (n *Navigator) moveTo(i int) {
	prev := n.index
	n.index = i
	n.completed = false
	n.cueAt(i)
	n.onChanged.Emit(Changed{Index: i, Previous: prev, Segment: n.segments[i]})
}

func (n *Navigator) cueAt(i int) {
	if n.cue != nil {
		n.cue.Cue(i)
	}
}
