package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/patrickprogramme/ecoute/internal/lesson"
	"github.com/patrickprogramme/ecoute/internal/quiz"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    Command
		wantErr bool
	}{
		{"p", Command{Kind: CmdPlay}, false},
		{"  N ", Command{Kind: CmdNext}, false},
		{"b", Command{Kind: CmdPrevious}, false},
		{"3", Command{Kind: CmdSelect, N: 2}, false},
		{"s", Command{Kind: CmdSubmit}, false},
		{">", Command{Kind: CmdNextQuestion}, false},
		{"<", Command{Kind: CmdPreviousQuestion}, false},
		{"m grammar", Command{Kind: CmdMode, Arg: "grammar"}, false},
		{"g 4", Command{Kind: CmdGoto, N: 3}, false},
		{"v", Command{Kind: CmdSpeed}, false},
		{"r", Command{Kind: CmdRestart}, false},
		{"c", Command{Kind: CmdCopy}, false},
		{"q", Command{Kind: CmdQuit}, false},
		{"m", Command{Kind: CmdHelp}, true},
		{"g 0", Command{Kind: CmdHelp}, true},
		{"5", Command{Kind: CmdHelp}, true},
		{"zzz", Command{Kind: CmdHelp}, true},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			got, err := ParseCommand(tc.line)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v; wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("got %+v; want %+v", got, tc.want)
			}
		})
	}
}

func TestTerminalReadCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	term := NewTerminalIO(strings.NewReader("\nfoo\nn\n"), &out, &errOut)
	cmd, err := term.ReadCommand(context.Background())
	if err != nil || cmd.Kind != CmdNext {
		t.Fatalf("cmd = %+v, err = %v", cmd, err)
	}
	if !strings.Contains(errOut.String(), "commande inconnue") || !strings.Contains(out.String(), "Commandes") {
		t.Fatalf("unknown input should print help; out=%q err=%q", out.String(), errOut.String())
	}
	if _, err := term.ReadCommand(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("end of input: err = %v", err)
	}
}

func TestTerminalReadCommandCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	term := NewTerminalIO(r, io.Discard, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := term.ReadCommand(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v; want context.Canceled", err)
	}
}

func TestChooseLesson(t *testing.T) {
	index := model.LessonIndex{
		"b-lesson": {Title: "B"},
		"a-lesson": {Title: "A"},
	}
	var out bytes.Buffer
	term := NewTerminalIO(strings.NewReader("nope\n2\n"), &out, io.Discard)
	id, err := term.ChooseLesson(context.Background(), index)
	if err != nil || id != "b-lesson" {
		t.Fatalf("id = %q, err = %v", id, err)
	}

	term = NewTerminalIO(strings.NewReader("a-lesson\n"), io.Discard, io.Discard)
	if id, _ := term.ChooseLesson(context.Background(), index); id != "a-lesson" {
		t.Fatalf("by id = %q", id)
	}
}

func TestFormatters(t *testing.T) {
	q := model.Question{Type: model.ModeComprehension, Question: "Où ?", Options: []string{"Ici", "Là"}, Correct: 1}
	st := lesson.State{
		Loaded:       true,
		SegmentIndex: 0,
		SegmentCount: 2,
		Segment:      &model.Segment{Start: 1, End: 4, Text: "Bonjour."},
		Question:     &q,
		Bounds:       quiz.Bounds{Index: 0, Count: 1},
		Selected:     1,
	}
	if got := FormatSegment(st.SegmentIndex, st.SegmentCount, *st.Segment); !strings.Contains(got, "Segment 1/2") || !strings.Contains(got, "Bonjour.") {
		t.Fatalf("segment = %q", got)
	}
	if got := FormatQuestion(st); !strings.Contains(got, " > 2. Là") || !strings.Contains(got, "   1. Ici") {
		t.Fatalf("question = %q", got)
	}
	if got := FormatResult(quiz.Result{Question: q, Selected: 0}); !strings.Contains(got, "2. Là") {
		t.Fatalf("result = %q", got)
	}
	sb := model.NewScoreboard()
	sb.Record(model.ModeGrammar, true)
	if got := FormatScore(sb); got != "Score 1/1 (100 %) | grammar 1/1" {
		t.Fatalf("score = %q", got)
	}
	if FormatStatus(lesson.State{}) != "Aucune leçon chargée." {
		t.Fatalf("status of empty session")
	}
}
