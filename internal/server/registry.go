package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patrickprogramme/ecoute/internal/lesson"
	"github.com/patrickprogramme/ecoute/internal/logger"
	"github.com/patrickprogramme/ecoute/internal/media"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

const (
	DefaultSessionTTL  = 2 * time.Hour
	DefaultMaxSessions = 256
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// OptionsFunc construit les options d'une session pour un mode.
type OptionsFunc func(mode model.Mode) lesson.Options

// Registry garde les sessions actives, indexées par uuid.
type Registry struct {
	loader      *lesson.Loader
	options     OptionsFunc
	sched       lesson.Scheduler
	log         *logger.Logger
	TTL         time.Duration
	MaxSessions int
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	creating int // créations en cours, comptées dans MaxSessions
}

func NewRegistry(loader *lesson.Loader, options OptionsFunc, log *logger.Logger) *Registry {
	if options == nil {
		options = func(m model.Mode) lesson.Options { return lesson.Options{Mode: m} }
	}
	return &Registry{
		loader:      loader,
		options:     options,
		sched:       lesson.TimerScheduler{},
		log:         logger.OrNop(log).With("component", "sessions"),
		TTL:         DefaultSessionTTL,
		MaxSessions: DefaultMaxSessions,
		now:         time.Now,
		sessions:    make(map[uuid.UUID]*Session),
	}
}

// Loader retourne le chargeur partagé par les sessions.
func (r *Registry) Loader() *lesson.Loader { return r.loader }

// Create charge la leçon id dans une nouvelle session. La place est réservée
// avant le chargement ; la session n'est enregistrée qu'après un chargement réussi.
func (r *Registry) Create(ctx context.Context, id string, mode model.Mode) (*Session, error) {
	r.mu.Lock()
	if r.MaxSessions > 0 && len(r.sessions)+r.creating >= r.MaxSessions {
		r.mu.Unlock()
		return nil, ErrTooManySessions
	}
	r.creating++
	r.mu.Unlock()

	src := media.NewRemoteSource()
	ctrl := lesson.New(r.options(mode), r.loader, src, r.sched, r.log)
	s := newSession(ctrl, src, r.now())
	err := ctrl.LoadLesson(ctx, id)

	r.mu.Lock()
	r.creating--
	if err == nil {
		r.sessions[s.ID] = s
	}
	r.mu.Unlock()
	if err != nil {
		ctrl.Close()
		return nil, fmt.Errorf("create session: %w", err)
	}
	r.log.Info("session created", "session", s.ID, "lesson", id, "mode", mode)
	return s, nil
}

// Get retourne la session id et note l'activité.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(r.now())
	return s, nil
}

func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	r.log.Info("session deleted", "session", id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep ferme les sessions inactives depuis plus de TTL ; retourne leur nombre.
func (r *Registry) Sweep() int {
	now := r.now()
	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince(now) > r.TTL {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range expired {
		s.close()
		r.log.Info("session expired", "session", s.ID)
	}
	return len(expired)
}

// Run balaye les sessions inactives à intervalle régulier jusqu'à l'annulation
// de ctx, puis ferme toutes les sessions.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[uuid.UUID]*Session)
	r.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}
