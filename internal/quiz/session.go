// Package quiz gère les questions d'un segment filtrées par mode : sélection,
// validation, navigation question par question et score cumulé.
package quiz

import (
	"github.com/patrickprogramme/ecoute/internal/event"
	"github.com/patrickprogramme/ecoute/internal/logger"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

// Result décrit une réponse validée.
type Result struct {
	Segment  int            `json:"segment"`
	Index    int            `json:"index"` // position dans les questions filtrées
	Mode     model.Mode     `json:"mode"`
	Question model.Question `json:"question"`
	Selected int            `json:"selected"`
	Correct  bool           `json:"correct"`
	Last     bool           `json:"last"`
}

// NoQuestions : le segment n'a aucune question pour le mode actif (pas une erreur).
type NoQuestions struct {
	Segment int        `json:"segment"`
	Mode    model.Mode `json:"mode"`
}

// Bounds permet à l'hôte d'activer/désactiver les contrôles de navigation.
type Bounds struct {
	Index       int  `json:"index"`
	Count       int  `json:"count"`
	HasPrevious bool `json:"has_previous"`
	HasNext     bool `json:"has_next"`
	Answered    bool `json:"answered"`
}

// Exhausted : la dernière question filtrée du segment vient d'être validée,
// ou la dernière réponse manquante quand l'ordre n'a pas été suivi.
// AllAnswered indique si la garde de segment est levée.
type Exhausted struct {
	Segment     int        `json:"segment"`
	Mode        model.Mode `json:"mode"`
	AllAnswered bool       `json:"all_answered"`
}

type answer struct {
	selected int
	correct  bool
}

// Session : état des questions du segment courant + score de la leçon.
// Non thread-safe.
type Session struct {
	segment   int
	mode      model.Mode
	questions []model.Question
	index     int // -1 si aucune question
	selected  int // -1 si aucune sélection

	// réponses validées du segment chargé, par position filtrée
	answers map[int]answer

	score   model.Scoreboard
	history []Result

	log           *logger.Logger
	onAnswered    event.Bus[Result]
	onNoQuestions event.Bus[NoQuestions]
	onBounds      event.Bus[Bounds]
	onExhausted   event.Bus[Exhausted]
}

func New(log *logger.Logger) *Session {
	return &Session{
		segment:  -1,
		index:    -1,
		selected: -1,
		answers:  map[int]answer{},
		score:    model.NewScoreboard(),
		log:      logger.OrNop(log).With("component", "quiz"),
	}
}

func (s *Session) OnAnswered(fn func(Result)) func() {
	return s.onAnswered.Subscribe(fn)
}

func (s *Session) OnNoQuestions(fn func(NoQuestions)) func() {
	return s.onNoQuestions.Subscribe(fn)
}

func (s *Session) OnBoundsUpdated(fn func(Bounds)) func() {
	return s.onBounds.Subscribe(fn)
}

func (s *Session) OnSegmentExhausted(fn func(Exhausted)) func() {
	return s.onExhausted.Subscribe(fn)
}

// LoadForSegment charge les questions de seg dont le type vaut mode.
// Efface la sélection et les réponses du segment précédent ; le score est conservé.
// Retourne le nombre de questions retenues.
func (s *Session) LoadForSegment(segIdx int, seg model.Segment, mode model.Mode) int {
	s.segment = segIdx
	s.mode = mode
	s.questions = seg.QuestionsFor(mode)
	s.selected = -1
	s.answers = map[int]answer{}

	if len(s.questions) == 0 {
		s.index = -1
		s.onNoQuestions.Emit(NoQuestions{Segment: segIdx, Mode: mode})
		return 0
	}
	s.index = 0
	s.onBounds.Emit(s.Bounds())
	return len(s.questions)
}

func (s *Session) Mode() model.Mode { return s.mode }
func (s *Session) Segment() int     { return s.segment }
func (s *Session) Count() int       { return len(s.questions) }

// QuestionIndex retourne la position de la question courante, -1 si aucune.
func (s *Session) QuestionIndex() int { return s.index }

// CurrentQuestion retourne la question courante ; ok == false si aucune n'est chargée.
func (s *Session) CurrentQuestion() (model.Question, bool) {
	if s.index < 0 || s.index >= len(s.questions) {
		return model.Question{}, false
	}
	return s.questions[s.index], true
}

// Selected retourne l'option choisie pour la question courante : la réponse
// validée si elle existe, sinon la sélection en cours.
func (s *Session) Selected() (int, bool) {
	if a, ok := s.answers[s.index]; ok {
		return a.selected, true
	}
	return s.selected, s.selected >= 0
}

// Answered indique si la question courante est verrouillée.
func (s *Session) Answered() bool {
	_, ok := s.answers[s.index]
	return ok
}

// AllAnswered : vrai si toutes les questions filtrées ont une réponse validée
// (trivialement vrai sans question).
func (s *Session) AllAnswered() bool {
	return len(s.answers) >= len(s.questions)
}

// SelectAnswer enregistre un choix sans le noter.
// No-op si aucune question, question déjà validée ou option hors limites.
func (s *Session) SelectAnswer(option int) bool {
	q, ok := s.CurrentQuestion()
	if !ok {
		s.log.Debug("selectAnswer: no question loaded")
		return false
	}
	if s.Answered() {
		s.log.Debug("selectAnswer: question locked", "index", s.index)
		return false
	}
	if option < 0 || option >= len(q.Options) {
		s.log.Debug("selectAnswer: option out of range", "option", option, "options", len(q.Options))
		return false
	}
	s.selected = option
	return true
}

// SubmitAnswer valide la sélection, met à jour le score et émet Answered,
// puis Exhausted si c'était la dernière question ou la dernière réponse
// manquante. Un second appel est un no-op.
func (s *Session) SubmitAnswer() (Result, bool) {
	q, ok := s.CurrentQuestion()
	if !ok || s.Answered() || s.selected < 0 {
		s.log.Debug("submitAnswer: nothing to submit", "index", s.index, "selected", s.selected)
		return Result{}, false
	}
	correct := q.IsCorrect(s.selected)
	s.answers[s.index] = answer{selected: s.selected, correct: correct}
	s.score.Record(q.Type, correct)

	res := Result{
		Segment:  s.segment,
		Index:    s.index,
		Mode:     s.mode,
		Question: q,
		Selected: s.selected,
		Correct:  correct,
		Last:     s.index == len(s.questions)-1,
	}
	s.history = append(s.history, res)
	s.selected = -1

	s.onAnswered.Emit(res)
	s.onBounds.Emit(s.Bounds())
	if all := s.AllAnswered(); res.Last || all {
		s.onExhausted.Emit(Exhausted{Segment: s.segment, Mode: s.mode, AllAnswered: all})
	}
	return res, true
}

// NextQuestion passe à la question suivante ; no-op à la dernière.
func (s *Session) NextQuestion() bool {
	if s.index < 0 || s.index >= len(s.questions)-1 {
		return false
	}
	s.moveTo(s.index + 1)
	return true
}

// PreviousQuestion revient à la question précédente ; no-op à la première.
func (s *Session) PreviousQuestion() bool {
	if s.index <= 0 {
		return false
	}
	s.moveTo(s.index - 1)
	return true
}

func (s *Session) moveTo(i int) {
	s.index = i
	s.selected = -1
	s.onBounds.Emit(s.Bounds())
}

// Bounds retourne l'état de navigation courant.
func (s *Session) Bounds() Bounds {
	return Bounds{
		Index:       s.index,
		Count:       len(s.questions),
		HasPrevious: s.index > 0,
		HasNext:     s.index >= 0 && s.index < len(s.questions)-1,
		Answered:    s.Answered(),
	}
}

// Score retourne une copie du tableau de score.
func (s *Session) Score() model.Scoreboard {
	return s.score.Clone()
}

// History retourne les réponses validées depuis le dernier ResetScore.
func (s *Session) History() []Result {
	return append([]Result(nil), s.history...)
}

// ResetScore remet le score et l'historique à zéro (restart uniquement).
func (s *Session) ResetScore() {
	s.score = model.NewScoreboard()
	s.history = nil
}
