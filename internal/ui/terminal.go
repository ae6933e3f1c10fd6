package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/patrickprogramme/ecoute/pkg/model"
)

type terminalUI struct {
	out    io.Writer
	errOut io.Writer
	mu     sync.Mutex // les évènements arrivent depuis d'autres goroutines

	start sync.Once
	in    io.Reader
	lines chan string
	err   error // erreur de lecture, valide après fermeture de lines
}

func NewTerminal() Interface {
	return NewTerminalIO(os.Stdin, os.Stdout, os.Stderr)
}

// NewTerminalIO construit un terminal sur des flux arbitraires (tests).
func NewTerminalIO(in io.Reader, out, errOut io.Writer) Interface {
	return &terminalUI{in: in, out: out, errOut: errOut}
}

// readLines lit l'entrée dans une goroutine dédiée : une lecture bloquante
// ne peut pas être interrompue par ctx.
func (t *terminalUI) readLines() {
	t.lines = make(chan string)
	go func() {
		defer close(t.lines)
		sc := bufio.NewScanner(t.in)
		for sc.Scan() {
			t.lines <- sc.Text()
		}
		t.err = sc.Err()
	}()
}

func (t *terminalUI) readLine(ctx context.Context) (string, error) {
	t.start.Do(t.readLines)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-t.lines:
		if !ok {
			if t.err != nil {
				return "", t.err
			}
			return "", io.EOF
		}
		return line, nil
	}
}

func (t *terminalUI) ReadCommand(ctx context.Context) (Command, error) {
	for {
		line, err := t.readLine(ctx)
		if err != nil {
			return Command{}, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmd, perr := ParseCommand(line)
		if perr != nil {
			t.PrintError(ctx, perr.Error())
			t.PrintInfo(ctx, Help)
			continue
		}
		return cmd, nil
	}
}

func (t *terminalUI) ChooseLesson(ctx context.Context, index model.LessonIndex) (string, error) {
	if len(index) == 0 {
		return "", fmt.Errorf("aucune leçon disponible")
	}
	ids := index.IDs()
	t.PrintInfo(ctx, index.Pretty())
	for {
		t.mu.Lock()
		fmt.Fprint(t.out, "Choisissez une leçon (identifiant ou numéro) : ")
		t.mu.Unlock()

		line, err := t.readLine(ctx)
		if err != nil {
			return "", err
		}
		choice := strings.TrimSpace(line)
		if _, ok := index[choice]; ok {
			return choice, nil
		}
		var n int
		if _, err := fmt.Sscanf(choice, "%d", &n); err == nil && n >= 1 && n <= len(ids) {
			return ids[n-1], nil
		}
		t.PrintError(ctx, fmt.Sprintf("❌ Leçon inconnue : %q", choice))
	}
}

func (t *terminalUI) PrintInfo(ctx context.Context, s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, s)
}

func (t *terminalUI) PrintError(ctx context.Context, s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.errOut, s)
}
