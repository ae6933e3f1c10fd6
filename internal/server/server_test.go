package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/patrickprogramme/ecoute/internal/fetch"
	"github.com/patrickprogramme/ecoute/internal/lesson"
	"github.com/patrickprogramme/ecoute/internal/media"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

const captions = `WEBVTT

00:00:01.000 --> 00:00:04.000
Bonjour.{"questions":[{"type":"comprehension","question":"Première lettre ?","options":["A","B"],"correct":0}]}

00:00:04.000 --> 00:00:07.000
Au revoir.
`

type entry struct {
	fn      func()
	stopped bool
}

// manualScheduler n'exécute les rappels que sur fire().
type manualScheduler struct {
	mu      sync.Mutex
	entries []*entry
}

func (m *manualScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &entry{fn: fn}
	m.entries = append(m.entries, e)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		was := !e.stopped
		e.stopped = true
		return was
	}
}

func (m *manualScheduler) fire() int {
	m.mu.Lock()
	pending := m.entries
	m.entries = nil
	m.mu.Unlock()
	n := 0
	for _, e := range pending {
		m.mu.Lock()
		run := !e.stopped
		e.stopped = true
		m.mu.Unlock()
		if run {
			e.fn()
			n++
		}
	}
	return n
}

func setup(t *testing.T) (*gin.Engine, *Registry, *manualScheduler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.json"), []byte(`{
		"demo": {"title": "Démo", "vtt": "demo.vtt", "audio": "demo.mp3"},
		"empty": {"vtt": "empty.vtt", "audio": "x.mp3"}
	}`), 0o644)
	os.WriteFile(filepath.Join(dir, "demo.vtt"), []byte(captions), 0o644)
	os.WriteFile(filepath.Join(dir, "empty.vtt"), []byte("WEBVTT\n"), 0o644)

	loader := lesson.NewLoader(filepath.Join(dir, "index.json"), fetch.New(time.Second, 1<<20), nil)
	reg := NewRegistry(loader, func(m model.Mode) lesson.Options {
		return lesson.Options{Mode: m, AutoPlay: true}
	}, nil)
	sched := &manualScheduler{}
	reg.sched = sched
	h := NewHandler(reg, "demo", model.ModeComprehension)
	return NewRouter(RouterConfig{Handler: h, AllowedOrigins: []string{"http://localhost:5173"}}), reg, sched
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func eventTypes(p Payload) []string {
	out := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		out = append(out, e.Type)
	}
	return out
}

func actions(p Payload) []string {
	out := make([]string, 0, len(p.Media))
	for _, c := range p.Media {
		out = append(out, c.Action)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHealthAndLessons(t *testing.T) {
	r, _, _ := setup(t)
	if w := do(t, r, http.MethodGet, "/healthcheck", nil); w.Code != http.StatusOK {
		t.Fatalf("healthcheck = %d", w.Code)
	}
	w := do(t, r, http.MethodGet, "/api/lessons", nil)
	got := decode[struct {
		Lessons []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"lessons"`
	}](t, w)
	if len(got.Lessons) != 2 || got.Lessons[0].ID != "demo" || got.Lessons[0].Title != "Démo" {
		t.Fatalf("lessons = %+v", got)
	}
}

func TestSessionFlow(t *testing.T) {
	r, reg, sched := setup(t)

	w := do(t, r, http.MethodPost, "/api/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	p := decode[Payload](t, w)
	base := "/api/sessions/" + p.ID
	if !p.State.Loaded || p.State.LessonID != "demo" || p.State.Question == nil {
		t.Fatalf("state = %+v", p.State)
	}
	if !equal(eventTypes(p), []string{EventSegmentChanged, EventBoundsUpdated}) {
		t.Fatalf("events = %v", eventTypes(p))
	}
	if !equal(actions(p), []string{media.ActionLoad, media.ActionSeek}) {
		t.Fatalf("media = %v", actions(p))
	}

	// garde : segment non répondu
	if p := decode[Payload](t, do(t, r, http.MethodPost, base+"/next", nil)); p.OK {
		t.Fatalf("next should be refused before answering")
	}

	p = decode[Payload](t, do(t, r, http.MethodPost, base+"/answer", map[string]int{"option": 0}))
	if !p.OK || p.State.Selected != 0 {
		t.Fatalf("answer = %+v", p)
	}
	p = decode[Payload](t, do(t, r, http.MethodPost, base+"/submit", nil))
	if !p.OK || p.Result == nil || !p.Result.Correct {
		t.Fatalf("submit = %+v", p)
	}
	if !equal(eventTypes(p), []string{EventAnswered, EventBoundsUpdated, EventSegmentExhausted}) {
		t.Fatalf("submit events = %v", eventTypes(p))
	}

	// transition différée : segment suivant + lecture automatique
	if n := sched.fire(); n != 1 {
		t.Fatalf("fired %d transitions; want 1", n)
	}
	p = decode[Payload](t, do(t, r, http.MethodGet, base, nil))
	if p.State.SegmentIndex != 1 || !equal(eventTypes(p), []string{EventSegmentChanged, EventNoQuestions}) {
		t.Fatalf("after advance: index=%d events=%v", p.State.SegmentIndex, eventTypes(p))
	}
	if !equal(actions(p), []string{media.ActionSeek, media.ActionSeek, media.ActionPlay}) {
		t.Fatalf("media after advance = %v", actions(p))
	}

	// le navigateur publie une position au-delà de la fin du segment
	p = decode[Payload](t, do(t, r, http.MethodPost, base+"/time", map[string]any{"position": 7.2, "paused": false, "duration": 10}))
	if !equal(eventTypes(p), []string{EventSegmentEnded}) || !equal(actions(p), []string{media.ActionPause}) {
		t.Fatalf("time update: events=%v media=%v", eventTypes(p), actions(p))
	}
	sched.fire()
	p = decode[Payload](t, do(t, r, http.MethodGet, base, nil))
	if !p.State.Completed || !equal(eventTypes(p), []string{EventLessonComplete}) {
		t.Fatalf("completion: completed=%v events=%v", p.State.Completed, eventTypes(p))
	}
	if p.State.Score.Overall != (model.Score{Correct: 1, Total: 1}) {
		t.Fatalf("score = %+v", p.State.Score)
	}

	if w := do(t, r, http.MethodDelete, base, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, base, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", w.Code)
	}
	if reg.Len() != 0 {
		t.Fatalf("registry not empty")
	}
}

func TestSessionModeSeekAndSpeed(t *testing.T) {
	r, _, _ := setup(t)
	p := decode[Payload](t, do(t, r, http.MethodPost, "/api/sessions?lesson=demo&mode=grammar", nil))
	base := "/api/sessions/" + p.ID
	if p.State.Mode != model.ModeGrammar || p.State.Question != nil {
		t.Fatalf("grammar session state = %+v", p.State)
	}

	p = decode[Payload](t, do(t, r, http.MethodPut, base+"/mode", map[string]string{"mode": "comprehension"}))
	if !p.OK || p.State.Question == nil {
		t.Fatalf("set mode = %+v", p)
	}
	p = decode[Payload](t, do(t, r, http.MethodPost, base+"/seek", map[string]int{"index": 1}))
	if !p.OK || p.State.SegmentIndex != 1 {
		t.Fatalf("seek = %+v", p.State)
	}
	p = decode[Payload](t, do(t, r, http.MethodPost, base+"/speed", nil))
	if !p.OK || p.State.Speed != 0.75 || !equal(actions(p), []string{media.ActionRate}) {
		t.Fatalf("speed = %v media=%v", p.State.Speed, actions(p))
	}
	p = decode[Payload](t, do(t, r, http.MethodPost, base+"/seek", map[string]int{"index": 9}))
	if p.OK {
		t.Fatalf("seek out of range accepted")
	}
}

func TestErrors(t *testing.T) {
	r, _, _ := setup(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad id", http.MethodGet, "/api/sessions/not-a-uuid", nil, http.StatusBadRequest, "invalid_session_id"},
		{"unknown session", http.MethodGet, "/api/sessions/6f1c2a4e-7b7d-4e3a-9b1f-2f4f3c2d1e0a", nil, http.StatusNotFound, "session_not_found"},
		{"unknown lesson", http.MethodPost, "/api/sessions?lesson=nope", nil, http.StatusNotFound, "unknown_lesson"},
		{"bad mode", http.MethodPost, "/api/sessions?mode=dictation", nil, http.StatusBadRequest, "invalid_mode"},
		{"no segments", http.MethodPost, "/api/sessions?lesson=empty", nil, http.StatusUnprocessableEntity, "lesson_has_no_segments"},
		{"seek without index", http.MethodPost, "/api/sessions/6f1c2a4e-7b7d-4e3a-9b1f-2f4f3c2d1e0a/seek", map[string]int{}, http.StatusBadRequest, "invalid_request"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, r, tc.method, tc.path, tc.body)
			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			env := decode[ErrorEnvelope](t, w)
			if env.Error.Code != tc.code || env.Error.Message == "" {
				t.Fatalf("error = %+v; want code %q", env.Error, tc.code)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	r, _, _ := setup(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/lessons", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestRegistrySweep(t *testing.T) {
	_, reg, _ := setup(t)
	now := time.Unix(1000, 0)
	reg.now = func() time.Time { return now }
	reg.TTL = time.Minute

	a, err := reg.Create(context.Background(), "demo", model.ModeComprehension)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := reg.Create(context.Background(), "demo", model.ModeComprehension)

	now = now.Add(45 * time.Second)
	reg.Get(b.ID) // b reste actif
	now = now.Add(30 * time.Second)
	if n := reg.Sweep(); n != 1 {
		t.Fatalf("swept %d; want 1", n)
	}
	if _, err := reg.Get(a.ID); err != ErrSessionNotFound {
		t.Fatalf("idle session still registered")
	}
	if _, err := reg.Get(b.ID); err != nil {
		t.Fatalf("active session swept: %v", err)
	}

	reg.MaxSessions = 1
	if _, err := reg.Create(context.Background(), "demo", model.ModeComprehension); err != ErrTooManySessions {
		t.Fatalf("limit: err = %v", err)
	}
}

func TestCreateSessionEmptyLessonUsesDefault(t *testing.T) {
	r, reg, _ := setup(t)
	for _, q := range []string{"?lesson=", "?lesson=%20%20"} {
		w := do(t, r, http.MethodPost, "/api/sessions"+q, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("%s: status = %d (%s)", q, w.Code, w.Body.String())
		}
		if p := decode[Payload](t, w); p.State.LessonID != "demo" {
			t.Fatalf("%s: lesson = %q; want the configured default", q, p.State.LessonID)
		}
	}

	// sans leçon par défaut, le paramètre vide reste une erreur
	noDefault := NewRouter(RouterConfig{Handler: NewHandler(reg, "", model.ModeComprehension)})
	w := do(t, noDefault, http.MethodPost, "/api/sessions?lesson=", nil)
	if env := decode[ErrorEnvelope](t, w); w.Code != http.StatusBadRequest || env.Error.Code != "missing_lesson" {
		t.Fatalf("status=%d error=%+v", w.Code, env.Error)
	}
}

func TestTimeUpdateFollowsScrub(t *testing.T) {
	r, _, _ := setup(t)
	p := decode[Payload](t, do(t, r, http.MethodPost, "/api/sessions", nil))
	base := "/api/sessions/" + p.ID

	p = decode[Payload](t, do(t, r, http.MethodPost, base+"/play", nil))
	if !p.OK || len(p.Media) == 0 {
		t.Fatalf("play = %+v", p)
	}
	applied := p.Media[len(p.Media)-1].Seq

	// curseur déplacé dans le segment 1, lecture en cours
	p = decode[Payload](t, do(t, r, http.MethodPost, base+"/time", map[string]any{
		"position": 5.5, "paused": false, "duration": 10, "applied": applied,
	}))
	if p.State.SegmentIndex != 1 || p.State.Paused {
		t.Fatalf("index=%d paused=%v; want segment 1 still playing", p.State.SegmentIndex, p.State.Paused)
	}
	if !equal(eventTypes(p), []string{EventSegmentChanged, EventNoQuestions}) || len(p.Media) != 0 {
		t.Fatalf("events=%v media=%v", eventTypes(p), actions(p))
	}
}

func TestCreateReservesSlot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	arrived := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/index.json":
			close(arrived)
			<-release
			w.Write([]byte(`{"demo": {"vtt": "demo.vtt", "audio": "demo.mp3"}}`))
		case "/demo.vtt":
			w.Write([]byte(captions))
		default:
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()

	loader := lesson.NewLoader(srv.URL+"/index.json", fetch.New(5*time.Second, 1<<20), nil)
	reg := NewRegistry(loader, nil, nil)
	reg.sched = &manualScheduler{}
	reg.MaxSessions = 1

	done := make(chan error, 1)
	go func() {
		_, err := reg.Create(context.Background(), "demo", model.ModeComprehension)
		done <- err
	}()
	<-arrived

	// la première création est en cours : la seule place est réservée
	if _, err := reg.Create(context.Background(), "demo", model.ModeComprehension); err != ErrTooManySessions {
		t.Fatalf("concurrent create: err = %v; want ErrTooManySessions", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first create: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("sessions = %d; want 1", reg.Len())
	}
}
