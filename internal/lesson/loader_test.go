package lesson

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/patrickprogramme/ecoute/internal/fetch"
)

func lessonServer(t *testing.T, index string, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/lessons/index.json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Write([]byte(index))
	})
	mux.HandleFunc("/lessons/demo/captions.vtt", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Write([]byte(twoSegments))
	})
	mux.HandleFunc("/lessons/empty.vtt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("WEBVTT\n\nNOTE rien\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

const testIndex = `{
  "demo":   {"title": "Démo", "vtt": "demo/captions.vtt", "audio": "demo/audio.mp3"},
  "empty":  {"vtt": "empty.vtt", "audio": "x.mp3"},
  "broken": {"vtt": "missing.vtt", "audio": "x.mp3"}
}`

func TestLoaderLoad(t *testing.T) {
	var hits int32
	srv := lessonServer(t, testIndex, &hits)
	l := NewLoader(srv.URL+"/lessons/index.json", &fetch.Fetcher{Client: srv.Client()}, nil)

	got, err := l.Load(context.Background(), "demo")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Segments) != 2 || got.QuestionCount() != 1 {
		t.Fatalf("segments=%d questions=%d", len(got.Segments), got.QuestionCount())
	}
	if want := srv.URL + "/lessons/demo/audio.mp3"; got.Ref.AudioURL != want {
		t.Fatalf("audio url = %q; want %q", got.Ref.AudioURL, want)
	}

	// l'index n'est téléchargé qu'une fois
	if _, err := l.Load(context.Background(), "demo"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Fatalf("requests = %d; want 3 (1 index + 2 captions)", n)
	}
}

func TestLoaderErrors(t *testing.T) {
	var hits int32
	srv := lessonServer(t, testIndex, &hits)
	l := NewLoader(srv.URL+"/lessons/index.json", &fetch.Fetcher{Client: srv.Client()}, nil)
	ctx := context.Background()

	_, err := l.Load(ctx, "nope")
	if !errors.Is(err, ErrUnknownLesson) {
		t.Fatalf("unknown lesson: err = %v", err)
	}

	_, err = l.Load(ctx, "empty")
	var le *LoadError
	if !errors.Is(err, ErrNoSegments) || !errors.As(err, &le) || le.Stage != StageParse {
		t.Fatalf("empty captions: err = %v", err)
	}

	_, err = l.Load(ctx, "broken")
	var fe *fetch.Error
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Fatalf("missing captions: err = %v; want fetch error 404", err)
	}
	if !errors.As(err, &le) || le.Stage != StageCaptions {
		t.Fatalf("missing captions: stage = %v", le)
	}
}

func TestLoadLessonFetchErrorHaltsLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Options{}, NewLoader(srv.URL+"/index.json", &fetch.Fetcher{Client: srv.Client()}, nil), &fakeSource{paused: true}, &manualScheduler{}, nil)
	err := c.LoadLesson(context.Background(), "demo")
	var fe *fetch.Error
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusInternalServerError {
		t.Fatalf("err = %v; want fetch error 500", err)
	}
	var le *LoadError
	if !errors.As(err, &le) || le.Stage != StageIndex {
		t.Fatalf("stage = %v; want index", le)
	}
	if c.State().Loaded {
		t.Fatalf("a failed load must not install a lesson")
	}

	// pas de cache sur échec : une seconde tentative refait la requête
	if err := c.LoadLesson(context.Background(), "demo"); err == nil {
		t.Fatalf("second load should fail too")
	}
}

type loadingSource struct {
	fakeSource
	loaded string
}

func (s *loadingSource) Load(_ context.Context, url string) error {
	s.loaded = url
	return nil
}

func TestLoadLessonLoadsAudio(t *testing.T) {
	var hits int32
	srv := lessonServer(t, testIndex, &hits)
	src := &loadingSource{fakeSource: fakeSource{paused: true}}
	c := New(Options{}, NewLoader(srv.URL+"/lessons/index.json", &fetch.Fetcher{Client: srv.Client()}, nil), src, &manualScheduler{}, nil)

	if err := c.LoadLesson(context.Background(), "demo"); err != nil {
		t.Fatalf("LoadLesson: %v", err)
	}
	if src.loaded != srv.URL+"/lessons/demo/audio.mp3" {
		t.Fatalf("audio loaded = %q", src.loaded)
	}
	st := c.State()
	if !st.Loaded || st.LessonID != "demo" || st.SegmentCount != 2 || st.Question == nil {
		t.Fatalf("state = %+v", st)
	}
}
