package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/patrickprogramme/ecoute/internal/lesson"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

type Handler struct {
	reg           *Registry
	defaultLesson string
	defaultMode   model.Mode
}

func NewHandler(reg *Registry, defaultLesson string, defaultMode model.Mode) *Handler {
	if !defaultMode.Valid() {
		defaultMode = model.ModeComprehension
	}
	return &Handler{reg: reg, defaultLesson: defaultLesson, defaultMode: defaultMode}
}

func HealthCheck(c *gin.Context) {
	RespondOK(c, gin.H{"status": "ok"})
}

type lessonItem struct {
	ID string `json:"id"`
	model.LessonRef
}

// GET /api/lessons
func (h *Handler) ListLessons(c *gin.Context) {
	index, err := h.reg.Loader().Index(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusBadGateway, "lesson_index_unavailable", err)
		return
	}
	items := make([]lessonItem, 0, len(index))
	for _, id := range index.IDs() {
		items = append(items, lessonItem{ID: id, LessonRef: index[id]})
	}
	RespondOK(c, gin.H{"lessons": items})
}

// POST /api/sessions?lesson=<id>&mode=<mode>
func (h *Handler) CreateSession(c *gin.Context) {
	id := strings.TrimSpace(c.Query("lesson"))
	if id == "" {
		id = h.defaultLesson
	}
	if id == "" {
		RespondError(c, http.StatusBadRequest, "missing_lesson", errors.New("lesson query parameter is required"))
		return
	}
	mode := h.defaultMode
	if raw := c.Query("mode"); raw != "" {
		m, err := model.ParseMode(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_mode", err)
			return
		}
		mode = m
	}

	s, err := h.reg.Create(c.Request.Context(), id, mode)
	if err != nil {
		var le *lesson.LoadError
		switch {
		case errors.Is(err, lesson.ErrUnknownLesson):
			RespondError(c, http.StatusNotFound, "unknown_lesson", err)
		case errors.Is(err, ErrTooManySessions):
			RespondError(c, http.StatusServiceUnavailable, "too_many_sessions", err)
		case errors.Is(err, lesson.ErrNoSegments):
			RespondError(c, http.StatusUnprocessableEntity, "lesson_has_no_segments", err)
		case errors.As(err, &le):
			RespondError(c, http.StatusBadGateway, "lesson_load_failed", err)
		default:
			RespondError(c, http.StatusInternalServerError, "create_session_failed", err)
		}
		return
	}
	c.JSON(http.StatusCreated, s.Drain(true))
}

// session récupère la session de l'URL ; répond une erreur sinon.
func (h *Handler) session(c *gin.Context) (*Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return nil, false
	}
	s, err := h.reg.Get(id)
	if err != nil {
		RespondError(c, http.StatusNotFound, "session_not_found", err)
		return nil, false
	}
	return s, true
}

// GET /api/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	RespondOK(c, s.Drain(true))
}

// DELETE /api/sessions/:id
func (h *Handler) DeleteSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	if err := h.reg.Delete(id); err != nil {
		RespondError(c, http.StatusNotFound, "session_not_found", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// op adapte une opération booléenne du Controller en route ; ok=false signifie
// que l'opération a été refusée (limite atteinte, garde), ce n'est pas une erreur.
func (h *Handler) op(fn func(*lesson.Controller) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := h.session(c)
		if !ok {
			return
		}
		done := fn(s.Controller())
		RespondOK(c, s.Drain(done))
	}
}

func (h *Handler) Next() gin.HandlerFunc     { return h.op((*lesson.Controller).Next) }
func (h *Handler) Previous() gin.HandlerFunc { return h.op((*lesson.Controller).Previous) }
func (h *Handler) Restart() gin.HandlerFunc  { return h.op((*lesson.Controller).Restart) }
func (h *Handler) Play() gin.HandlerFunc     { return h.op((*lesson.Controller).Play) }

func (h *Handler) NextQuestion() gin.HandlerFunc {
	return h.op((*lesson.Controller).NextQuestion)
}

func (h *Handler) PreviousQuestion() gin.HandlerFunc {
	return h.op((*lesson.Controller).PreviousQuestion)
}

func (h *Handler) Pause() gin.HandlerFunc {
	return h.op(func(c *lesson.Controller) bool {
		c.Pause()
		return true
	})
}

func (h *Handler) Speed() gin.HandlerFunc {
	return h.op(func(c *lesson.Controller) bool {
		_, ok := c.ToggleSpeed()
		return ok
	})
}

type seekRequest struct {
	Index *int `json:"index" binding:"required"`
}

// POST /api/sessions/:id/seek {"index": n}
func (h *Handler) Seek(c *gin.Context) {
	var req seekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	RespondOK(c, s.Drain(s.Controller().SeekTo(*req.Index)))
}

type answerRequest struct {
	Option *int `json:"option" binding:"required"`
}

// POST /api/sessions/:id/answer {"option": n}
func (h *Handler) Answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	RespondOK(c, s.Drain(s.Controller().SelectAnswer(*req.Option)))
}

// POST /api/sessions/:id/submit
func (h *Handler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	res, done := s.Controller().SubmitAnswer()
	p := s.Drain(done)
	if done {
		p.Result = &res
	}
	RespondOK(c, p)
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// PUT /api/sessions/:id/mode {"mode": "grammar"}
func (h *Handler) SetMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	m, err := model.ParseMode(req.Mode)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_mode", err)
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	RespondOK(c, s.Drain(s.Controller().SetMode(m)))
}

type timeRequest struct {
	Position float64 `json:"position"`
	Paused   bool    `json:"paused"`
	Duration float64 `json:"duration"`
	Applied  uint64  `json:"applied"` // seq de la dernière commande média appliquée
}

// POST /api/sessions/:id/time : le navigateur publie l'état de son lecteur.
func (h *Handler) Time(c *gin.Context) {
	var req timeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Source().Update(req.Position, req.Paused, req.Duration, req.Applied)
	s.Controller().HandleTimeUpdate()
	RespondOK(c, s.Drain(true))
}
