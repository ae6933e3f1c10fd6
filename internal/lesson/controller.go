package lesson

import (
	"context"
	"sync"
	"time"

	"github.com/patrickprogramme/ecoute/internal/captions"
	"github.com/patrickprogramme/ecoute/internal/event"
	"github.com/patrickprogramme/ecoute/internal/logger"
	"github.com/patrickprogramme/ecoute/internal/navigator"
	"github.com/patrickprogramme/ecoute/internal/playback"
	"github.com/patrickprogramme/ecoute/internal/quiz"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

const (
	DefaultFeedbackDelay    = 1500 * time.Millisecond
	DefaultAutoAdvanceDelay = 800 * time.Millisecond
)

// Options règle le comportement de la session.
type Options struct {
	Mode             model.Mode
	Speeds           []float64
	FeedbackDelay    time.Duration // délai d'affichage du résultat avant transition
	AutoAdvanceDelay time.Duration // fin de segment sans question -> segment suivant
	AutoPlay         bool          // lance la lecture après une avance automatique
}

func (o *Options) normalize() {
	if !o.Mode.Valid() {
		o.Mode = model.ModeComprehension
	}
	if o.FeedbackDelay <= 0 {
		o.FeedbackDelay = DefaultFeedbackDelay
	}
	if o.AutoAdvanceDelay <= 0 {
		o.AutoAdvanceDelay = DefaultAutoAdvanceDelay
	}
}

// Controller est la session d'écoute : il possède l'horloge de lecture, le
// navigateur et les questions, et sérialise toutes les opérations.
//
// Les évènements levés pendant une opération sont mis en file et diffusés
// après libération du verrou, dans l'ordre : un abonné peut rappeler le Controller.
// Toutes les opérations publiques sont sans danger hors de leur état valide
// (no-op, retour false).
type Controller struct {
	mu    sync.Mutex
	opts  Options
	mode  model.Mode
	src   playback.TimeSource
	sched Scheduler
	load  *Loader
	log   *logger.Logger

	lesson *Lesson
	clock  *playback.Clock
	nav    *navigator.Navigator
	quiz   *quiz.Session
	unsubs []func()

	// génération : incrémentée à chaque changement de contexte (segment,
	// mode, restart) ; un rappel différé d'une autre génération est ignoré
	gen     uint64
	pending func() bool

	queue       []func()
	dispatching bool

	onSegmentChanged   event.Bus[navigator.Changed]
	onLessonComplete   event.Bus[navigator.Complete]
	onSegmentEnded     event.Bus[playback.SegmentEnded]
	onAnswered         event.Bus[quiz.Result]
	onNoQuestions      event.Bus[quiz.NoQuestions]
	onBoundsUpdated    event.Bus[quiz.Bounds]
	onSegmentExhausted event.Bus[quiz.Exhausted]
}

// New construit un Controller sans leçon. loader peut être nil si les leçons
// sont installées via Start ; sched nil -> TimerScheduler.
func New(opts Options, loader *Loader, src playback.TimeSource, sched Scheduler, log *logger.Logger) *Controller {
	opts.normalize()
	if sched == nil {
		sched = TimerScheduler{}
	}
	return &Controller{
		opts:  opts,
		mode:  opts.Mode,
		src:   src,
		sched: sched,
		load:  loader,
		log:   logger.OrNop(log).With("component", "controller"),
	}
}

// ---- évènements ----

func (c *Controller) OnSegmentChanged(fn func(navigator.Changed)) func() {
	return subscribe(c, &c.onSegmentChanged, fn)
}

func (c *Controller) OnLessonComplete(fn func(navigator.Complete)) func() {
	return subscribe(c, &c.onLessonComplete, fn)
}

func (c *Controller) OnSegmentEnded(fn func(playback.SegmentEnded)) func() {
	return subscribe(c, &c.onSegmentEnded, fn)
}

func (c *Controller) OnAnswered(fn func(quiz.Result)) func() {
	return subscribe(c, &c.onAnswered, fn)
}

func (c *Controller) OnNoQuestions(fn func(quiz.NoQuestions)) func() {
	return subscribe(c, &c.onNoQuestions, fn)
}

func (c *Controller) OnBoundsUpdated(fn func(quiz.Bounds)) func() {
	return subscribe(c, &c.onBoundsUpdated, fn)
}

func (c *Controller) OnSegmentExhausted(fn func(quiz.Exhausted)) func() {
	return subscribe(c, &c.onSegmentExhausted, fn)
}

func subscribe[T any](c *Controller, b *event.Bus[T], fn func(T)) func() {
	c.mu.Lock()
	unsub := b.Subscribe(fn)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		unsub()
		c.mu.Unlock()
	}
}

// raise met v en file pour les abonnés actuels de b. Appelé verrou tenu.
func raise[T any](c *Controller, b *event.Bus[T], v T) {
	hs := b.Handlers()
	if len(hs) == 0 {
		return
	}
	c.queue = append(c.queue, func() {
		for _, h := range hs {
			h(v)
		}
	})
}

// lock prend le verrou ; à appeler avec defer c.unlock().
func (c *Controller) lock() {
	c.mu.Lock()
}

// unlock libère le verrou puis diffuse la file d'évènements.
// Un seul appelant diffuse à la fois ; les évènements levés par un abonné
// qui rappelle le Controller sont diffusés par la même boucle.
func (c *Controller) unlock() {
	if c.dispatching {
		c.mu.Unlock()
		return
	}
	c.dispatching = true
	for len(c.queue) > 0 {
		fn := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}
	c.dispatching = false
	c.mu.Unlock()
}

// ---- chargement ----

// LoadLesson télécharge la leçon id puis l'installe. Le téléchargement se fait
// hors verrou ; un échec laisse la session précédente intacte.
func (c *Controller) LoadLesson(ctx context.Context, id string) error {
	if c.load == nil {
		return &LoadError{Stage: StageIndex, LessonID: id, Err: ErrUnknownLesson}
	}
	l, err := c.load.Load(ctx, id)
	if err != nil {
		c.log.Error("lesson load failed", "lesson", id, "error", err)
		return err
	}
	if ml, ok := c.src.(playback.MediaLoader); ok && l.Ref.AudioURL != "" {
		if err := ml.Load(ctx, l.Ref.AudioURL); err != nil {
			// lecture impossible pour l'instant : la leçon reste utilisable
			c.log.Warn("audio load failed", "lesson", id, "url", l.Ref.AudioURL, "error", err)
		}
	}
	return c.Start(l)
}

// Start installe une leçon déjà chargée et se place sur le segment 0.
func (c *Controller) Start(l *Lesson) error {
	if l == nil || len(l.Segments) == 0 {
		return ErrNoSegments
	}
	c.lock()
	defer c.unlock()

	c.teardown()
	c.lesson = l
	c.clock = playback.NewClock(c.src, l.Segments, c.opts.Speeds, c.log)
	c.nav = navigator.New(l.Segments, c.clock, c.log)
	c.quiz = quiz.New(c.log)
	c.nav.SetGuard(c.quiz.AllAnswered)

	c.unsubs = append(c.unsubs,
		c.nav.OnSegmentChanged(c.segmentChanged),
		c.nav.OnLessonComplete(func(e navigator.Complete) { raise(c, &c.onLessonComplete, e) }),
		c.clock.OnSegmentEnded(c.segmentEnded),
		c.clock.OnSegmentEntered(func(e playback.SegmentEntered) { c.nav.Follow(e.Index) }),
		c.quiz.OnAnswered(c.answered),
		c.quiz.OnNoQuestions(func(e quiz.NoQuestions) { raise(c, &c.onNoQuestions, e) }),
		c.quiz.OnBoundsUpdated(func(e quiz.Bounds) { raise(c, &c.onBoundsUpdated, e) }),
		c.quiz.OnSegmentExhausted(c.exhausted),
	)
	c.nav.Reset()
	c.log.Info("lesson started", "lesson", l.ID, "segments", len(l.Segments), "mode", c.mode)
	return nil
}

// Close annule les transitions en attente et détache la leçon.
func (c *Controller) Close() {
	c.lock()
	defer c.unlock()
	c.teardown()
	c.lesson, c.clock, c.nav, c.quiz = nil, nil, nil, nil
}

func (c *Controller) teardown() {
	c.cancelPending()
	for _, u := range c.unsubs {
		u()
	}
	c.unsubs = nil
	if c.clock != nil {
		c.clock.Pause()
	}
}

func (c *Controller) loaded() bool {
	return c.lesson != nil && c.nav != nil
}

// ---- réactions internes (verrou tenu) ----

func (c *Controller) segmentChanged(e navigator.Changed) {
	c.cancelPending()
	raise(c, &c.onSegmentChanged, e)
	// segment-changed précède toujours le chargement des questions
	c.quiz.LoadForSegment(e.Index, e.Segment, c.mode)
}

func (c *Controller) segmentEnded(e playback.SegmentEnded) {
	raise(c, &c.onSegmentEnded, e)
	if c.quiz.Count() == 0 {
		// aucune question : fin naturelle, on avance sans garde
		c.schedule(c.opts.AutoAdvanceDelay, "auto-advance", c.advance)
	}
}

func (c *Controller) answered(r quiz.Result) {
	raise(c, &c.onAnswered, r)
	if !r.Last {
		c.schedule(c.opts.FeedbackDelay, "next-question", func() { c.quiz.NextQuestion() })
	}
}

func (c *Controller) exhausted(e quiz.Exhausted) {
	raise(c, &c.onSegmentExhausted, e)
	if !e.AllAnswered {
		// la garde refuserait Next : on reste sur le segment
		return
	}
	c.schedule(c.opts.FeedbackDelay, "next-segment", func() {
		if c.nav.Next() {
			c.autoPlay()
		}
	})
}

func (c *Controller) advance() {
	if c.nav.Advance() {
		c.autoPlay()
	}
}

func (c *Controller) autoPlay() {
	if c.opts.AutoPlay {
		c.clock.PlaySegment(c.nav.Index())
	}
}

// schedule remplace la transition en attente. Le rappel ne s'exécute que si
// la génération et le segment sont toujours ceux de la programmation.
func (c *Controller) schedule(d time.Duration, name string, action func()) {
	c.cancelPending()
	gen, seg := c.gen, c.nav.Index()
	c.pending = c.sched.AfterFunc(d, func() {
		c.lock()
		defer c.unlock()
		if !c.loaded() || c.gen != gen || c.nav.Index() != seg {
			c.log.Debug("stale transition ignored", "transition", name, "segment", seg)
			return
		}
		c.pending = nil
		action()
	})
}

func (c *Controller) cancelPending() {
	c.gen++
	if c.pending != nil {
		c.pending()
		c.pending = nil
	}
}

// ---- navigation ----

// Next passe au segment suivant si toutes les questions du segment sont validées.
// Au dernier segment : lesson-complete.
func (c *Controller) Next() bool {
	c.lock()
	defer c.unlock()
	if !c.loaded() {
		return false
	}
	c.cancelPending()
	return c.nav.Next()
}

func (c *Controller) Previous() bool {
	c.lock()
	defer c.unlock()
	if !c.loaded() {
		return false
	}
	c.cancelPending()
	return c.nav.Previous()
}

// SeekTo saute directement au segment i.
func (c *Controller) SeekTo(i int) bool {
	c.lock()
	defer c.unlock()
	if !c.loaded() {
		return false
	}
	c.cancelPending()
	return c.nav.SeekTo(i)
}

// Restart remet le score à zéro et revient au segment 0, sans re-parser.
func (c *Controller) Restart() bool {
	c.lock()
	defer c.unlock()
	if !c.loaded() {
		return false
	}
	c.cancelPending()
	c.quiz.ResetScore()
	c.nav.Reset()
	c.log.Info("lesson restarted", "lesson", c.lesson.ID)
	return true
}

// SetMode change le filtre de questions et recharge le segment courant.
func (c *Controller) SetMode(m model.Mode) bool {
	c.lock()
	defer c.unlock()
	if !m.Valid() {
		c.log.Debug("setMode: invalid mode", "mode", m)
		return false
	}
	c.mode = m
	if !c.loaded() {
		return true
	}
	c.cancelPending()
	if seg, ok := c.nav.Current(); ok {
		c.quiz.LoadForSegment(c.nav.Index(), seg, m)
	}
	return true
}

// ---- questions ----

func (c *Controller) SelectAnswer(option int) bool {
	c.lock()
	defer c.unlock()
	if !c.loaded() {
		return false
	}
	return c.quiz.SelectAnswer(option)
}

func (c *Controller) SubmitAnswer() (quiz.Result, bool) {
	c.lock()
	defer c.unlock()
	if !c.loaded() {
		return quiz.Result{}, false
	}
	return c.quiz.SubmitAnswer()
}

func (c *Controller) NextQuestion() bool {
	c.lock()
	defer c.unlock()
	if !c.loaded() {
		return false
	}
	c.cancelPending()
	return c.quiz.NextQuestion()
}

func (c *Controller) PreviousQuestion() bool {
	c.lock()
	defer c.unlock()
	if !c.loaded() {
		return false
	}
	c.cancelPending()
	return c.quiz.PreviousQuestion()
}

// ---- lecture ----

// Play (re)lit le segment courant depuis son début.
func (c *Controller) Play() bool {
	c.lock()
	defer c.unlock()
	if !c.loaded() {
		return false
	}
	return c.clock.PlaySegment(c.nav.Index())
}

func (c *Controller) Pause() {
	c.lock()
	defer c.unlock()
	if c.clock != nil {
		c.clock.Pause()
	}
}

// ToggleSpeed passe à la vitesse suivante ; false si aucune leçon.
func (c *Controller) ToggleSpeed() (float64, bool) {
	c.lock()
	defer c.unlock()
	if !c.loaded() {
		return 0, false
	}
	return c.clock.ToggleSpeed(), true
}

// HandleTimeUpdate doit être appelé à chaque avancée de la position de lecture.
func (c *Controller) HandleTimeUpdate() {
	c.lock()
	defer c.unlock()
	if c.clock != nil {
		c.clock.HandleTimeUpdate()
	}
}

// ---- lecture seule ----

// State est un instantané de la session, sans référence partagée.
type State struct {
	Loaded       bool             `json:"loaded"`
	LessonID     string           `json:"lesson_id,omitempty"`
	AudioURL     string           `json:"audio_url,omitempty"`
	Mode         model.Mode       `json:"mode"`
	SegmentIndex int              `json:"segment_index"`
	SegmentCount int              `json:"segment_count"`
	Segment      *model.Segment   `json:"segment,omitempty"`
	HasNext      bool             `json:"has_next"`
	HasPrevious  bool             `json:"has_previous"`
	Completed    bool             `json:"completed"`
	Question     *model.Question  `json:"question,omitempty"`
	Bounds       quiz.Bounds      `json:"question_bounds"`
	Selected     int              `json:"selected"`
	Score        model.Scoreboard `json:"score"`
	Speed        float64          `json:"speed"`
	Position     float64          `json:"position"`
	Duration     float64          `json:"duration"`
	Paused       bool             `json:"paused"`
	Warnings     int              `json:"warnings"`
}

func (c *Controller) State() State {
	c.lock()
	defer c.unlock()
	st := State{Mode: c.mode, Selected: -1, Score: model.NewScoreboard(), Bounds: quiz.Bounds{Index: -1}}
	if !c.loaded() {
		return st
	}
	st.Loaded = true
	st.LessonID = c.lesson.ID
	st.AudioURL = c.lesson.Ref.AudioURL
	st.SegmentIndex = c.nav.Index()
	st.SegmentCount = c.nav.Len()
	if seg, ok := c.nav.Current(); ok {
		st.Segment = &seg
	}
	st.HasNext = c.nav.HasNext()
	st.HasPrevious = c.nav.HasPrevious()
	st.Completed = c.nav.Completed()
	if q, ok := c.quiz.CurrentQuestion(); ok {
		st.Question = &q
	}
	st.Bounds = c.quiz.Bounds()
	if sel, ok := c.quiz.Selected(); ok {
		st.Selected = sel
	}
	st.Score = c.quiz.Score()
	st.Speed = c.clock.Speed()
	st.Position, st.Duration = c.clock.Progress()
	st.Paused = c.src.IsPaused()
	st.Warnings = len(c.lesson.Warnings)
	return st
}

// Lesson retourne la leçon installée, nil sinon.
func (c *Controller) Lesson() *Lesson {
	c.lock()
	defer c.unlock()
	return c.lesson
}

// Warnings retourne les avertissements du parsing des captions.
func (c *Controller) Warnings() []captions.Warning {
	c.lock()
	defer c.unlock()
	if c.lesson == nil {
		return nil
	}
	return append([]captions.Warning(nil), c.lesson.Warnings...)
}

// History retourne les réponses validées depuis le dernier restart.
func (c *Controller) History() []quiz.Result {
	c.lock()
	defer c.unlock()
	if c.quiz == nil {
		return nil
	}
	return c.quiz.History()
}
