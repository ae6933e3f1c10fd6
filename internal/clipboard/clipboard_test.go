package clipboard

import (
	"errors"
	"testing"
)

type memory struct{ text string }

func (m *memory) WriteAll(text string) error {
	m.text = text
	return nil
}

func TestCopySentence(t *testing.T) {
	m := &memory{}
	if err := CopySentence(m, "  Je vais\n au   marché. "); err != nil {
		t.Fatal(err)
	}
	if m.text != "Je vais au marché." {
		t.Fatalf("copied %q", m.text)
	}
	if err := CopySentence(m, " \n "); !errors.Is(err, ErrEmpty) {
		t.Fatalf("blank sentence: err = %v", err)
	}
}
