package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patrickprogramme/ecoute/internal/lesson"
	"github.com/patrickprogramme/ecoute/internal/media"
	"github.com/patrickprogramme/ecoute/internal/navigator"
	"github.com/patrickprogramme/ecoute/internal/playback"
	"github.com/patrickprogramme/ecoute/internal/quiz"
)

// Noms des évènements transmis au navigateur.
const (
	EventSegmentChanged   = "segment_changed"
	EventLessonComplete   = "lesson_complete"
	EventSegmentEnded     = "segment_ended"
	EventAnswered         = "answered"
	EventNoQuestions      = "no_questions"
	EventBoundsUpdated    = "bounds_updated"
	EventSegmentExhausted = "segment_exhausted"
)

// Event est un évènement de session en attente de livraison.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Session associe un Controller à un lecteur de navigateur. Les évènements
// levés entre deux requêtes (y compris par les transitions différées) sont
// mis de côté et livrés dans la réponse suivante.
type Session struct {
	ID      uuid.UUID
	Created time.Time

	ctrl *lesson.Controller
	src  *media.RemoteSource

	mu       sync.Mutex
	events   []Event
	lastSeen time.Time
}

func newSession(ctrl *lesson.Controller, src *media.RemoteSource, now time.Time) *Session {
	s := &Session{
		ID:       uuid.New(),
		Created:  now,
		ctrl:     ctrl,
		src:      src,
		lastSeen: now,
	}
	ctrl.OnSegmentChanged(func(e navigator.Changed) { s.push(EventSegmentChanged, e) })
	ctrl.OnLessonComplete(func(e navigator.Complete) { s.push(EventLessonComplete, e) })
	ctrl.OnSegmentEnded(func(e playback.SegmentEnded) { s.push(EventSegmentEnded, e) })
	ctrl.OnAnswered(func(r quiz.Result) { s.push(EventAnswered, r) })
	ctrl.OnNoQuestions(func(e quiz.NoQuestions) { s.push(EventNoQuestions, e) })
	ctrl.OnBoundsUpdated(func(b quiz.Bounds) { s.push(EventBoundsUpdated, b) })
	ctrl.OnSegmentExhausted(func(e quiz.Exhausted) { s.push(EventSegmentExhausted, e) })
	return s
}

func (s *Session) push(typ string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Type: typ, Data: data})
}

// Controller retourne la session d'écoute.
func (s *Session) Controller() *lesson.Controller { return s.ctrl }

// Source retourne le miroir du lecteur du navigateur.
func (s *Session) Source() *media.RemoteSource { return s.src }

// touch note une activité du navigateur.
func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Payload est la réponse commune des routes de session.
type Payload struct {
	ID     string          `json:"id"`
	OK     bool            `json:"ok"`
	State  lesson.State    `json:"state"`
	Events []Event         `json:"events"`
	Media  []media.Command `json:"media"`
	Result *quiz.Result    `json:"result,omitempty"`
}

// Drain construit la réponse : état courant, évènements et commandes média
// en attente (vidés).
func (s *Session) Drain(ok bool) Payload {
	st := s.ctrl.State()
	s.mu.Lock()
	events := s.events
	s.events = nil
	s.mu.Unlock()
	if events == nil {
		events = []Event{}
	}
	cmds := s.src.Drain()
	if cmds == nil {
		cmds = []media.Command{}
	}
	return Payload{
		ID:     s.ID.String(),
		OK:     ok,
		State:  st,
		Events: events,
		Media:  cmds,
	}
}

func (s *Session) close() {
	s.ctrl.Close()
}
