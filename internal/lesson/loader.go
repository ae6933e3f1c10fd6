// Package lesson charge une leçon (index + captions) et expose le Controller,
// l'objet de session unique que les hôtes (terminal, HTTP) pilotent.
package lesson

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/patrickprogramme/ecoute/internal/captions"
	"github.com/patrickprogramme/ecoute/internal/fetch"
	"github.com/patrickprogramme/ecoute/internal/logger"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

// Erreurs exportées
var (
	ErrUnknownLesson = errors.New("unknown lesson")
	ErrNoSegments    = errors.New("lesson has no valid segment")
)

// Stage identifie l'étape du chargement qui a échoué.
type Stage string

const (
	StageIndex    Stage = "index"
	StageCaptions Stage = "captions"
	StageParse    Stage = "parse"
)

// LoadError : échec fatal du chargement d'une leçon.
type LoadError struct {
	Stage    Stage
	LessonID string
	Err      error
}

func (e *LoadError) Error() string {
	if e.LessonID == "" {
		return fmt.Sprintf("load lesson: %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("load lesson %q: %s: %v", e.LessonID, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Lesson est le résultat d'un chargement réussi. Immuable.
type Lesson struct {
	ID       string
	Ref      model.LessonRef // URLs résolues
	Segments []model.Segment
	Warnings []captions.Warning
}

// QuestionCount retourne le nombre total de questions, tous modes confondus.
func (l *Lesson) QuestionCount() int {
	n := 0
	for _, s := range l.Segments {
		n += len(s.Questions)
	}
	return n
}

// Loader récupère l'index des leçons une seule fois puis les captions à la demande.
// Sûr pour un usage concurrent (plusieurs sessions HTTP).
type Loader struct {
	IndexURL string
	Fetcher  *fetch.Fetcher

	log   *logger.Logger
	group singleflight.Group

	mu    sync.Mutex
	index model.LessonIndex
}

func NewLoader(indexURL string, f *fetch.Fetcher, log *logger.Logger) *Loader {
	if f == nil {
		f = fetch.New(0, 0)
	}
	return &Loader{
		IndexURL: indexURL,
		Fetcher:  f,
		log:      logger.OrNop(log).With("component", "lesson-loader"),
	}
}

// Index retourne l'index des leçons, téléchargé au premier appel.
// Les appels concurrents partagent la même requête ; un échec n'est pas mis en cache.
func (l *Loader) Index(ctx context.Context) (model.LessonIndex, error) {
	l.mu.Lock()
	idx := l.index
	l.mu.Unlock()
	if idx != nil {
		return idx, nil
	}

	v, err, _ := l.group.Do("index", func() (interface{}, error) {
		idx, err := fetch.JSON[model.LessonIndex](ctx, l.Fetcher, l.IndexURL)
		if err != nil {
			return nil, &LoadError{Stage: StageIndex, Err: err}
		}
		if idx == nil {
			idx = model.LessonIndex{}
		}
		l.mu.Lock()
		l.index = idx
		l.mu.Unlock()
		l.log.Info("lesson index loaded", "url", l.IndexURL, "lessons", len(idx))
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(model.LessonIndex), nil
}

// Ref retourne les ressources résolues d'une leçon.
func (l *Loader) Ref(ctx context.Context, id string) (model.LessonRef, error) {
	idx, err := l.Index(ctx)
	if err != nil {
		return model.LessonRef{}, err
	}
	ref, ok := idx[id]
	if !ok {
		return model.LessonRef{}, &LoadError{Stage: StageIndex, LessonID: id, Err: ErrUnknownLesson}
	}
	// les chemins relatifs sont résolus par rapport à l'emplacement de l'index
	if ref.VTTURL, err = fetch.Resolve(l.IndexURL, ref.VTTURL); err != nil {
		return model.LessonRef{}, &LoadError{Stage: StageIndex, LessonID: id, Err: fmt.Errorf("vtt: %w", err)}
	}
	if strings.TrimSpace(ref.AudioURL) != "" {
		if ref.AudioURL, err = fetch.Resolve(l.IndexURL, ref.AudioURL); err != nil {
			return model.LessonRef{}, &LoadError{Stage: StageIndex, LessonID: id, Err: fmt.Errorf("audio: %w", err)}
		}
	}
	return ref, nil
}

// Load télécharge et parse les captions de la leçon id.
// Zéro segment valide -> ErrNoSegments (les avertissements restent journalisés).
func (l *Loader) Load(ctx context.Context, id string) (*Lesson, error) {
	ref, err := l.Ref(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := l.Fetcher.Bytes(ctx, ref.VTTURL)
	if err != nil {
		return nil, &LoadError{Stage: StageCaptions, LessonID: id, Err: err}
	}
	res := captions.ParseBytes(raw)
	for _, w := range res.Warnings {
		l.log.Warn("caption warning", "lesson", id, "line", w.Line, "kind", w.Kind, "detail", w.Detail)
	}
	if len(res.Segments) == 0 {
		return nil, &LoadError{Stage: StageParse, LessonID: id, Err: ErrNoSegments}
	}
	l.log.Info("lesson loaded", "lesson", id, "segments", len(res.Segments), "questions", res.QuestionCount(), "warnings", len(res.Warnings))
	return &Lesson{ID: id, Ref: ref, Segments: res.Segments, Warnings: res.Warnings}, nil
}

// FromCaptions construit une leçon à partir d'un texte de captions déjà en mémoire.
func FromCaptions(id string, ref model.LessonRef, raw string) (*Lesson, error) {
	res := captions.Parse(raw)
	if len(res.Segments) == 0 {
		return nil, &LoadError{Stage: StageParse, LessonID: id, Err: ErrNoSegments}
	}
	return &Lesson{ID: id, Ref: ref, Segments: res.Segments, Warnings: res.Warnings}, nil
}
