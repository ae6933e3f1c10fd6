package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"example.yaml":           {Data: []byte("a: 1\n")},
		"templates/report.tmpl":  {Data: []byte("v1")},
		"templates/extra/x.tmpl": {Data: []byte("x")},
	}
}

func TestExportDefaults(t *testing.T) {
	dir := t.TempDir()
	fsys := testFS()

	status, err := ExportDefaults(fsys, "templates", dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if status["templates/report.tmpl"] != StatusWritten || status["templates/extra/x.tmpl"] != StatusWritten {
		t.Fatalf("first export = %v", status)
	}
	if b, _ := os.ReadFile(filepath.Join(dir, "extra", "x.tmpl")); string(b) != "x" {
		t.Fatalf("nested file not exported")
	}

	status, _ = ExportDefaults(fsys, "templates", dir, false)
	if status["templates/report.tmpl"] != StatusUnchanged {
		t.Fatalf("second export = %v", status)
	}

	// fichier modifié par l'utilisateur : conservé sans force
	os.WriteFile(filepath.Join(dir, "report.tmpl"), []byte("perso"), 0o644)
	status, _ = ExportDefaults(fsys, "templates", dir, false)
	if status["templates/report.tmpl"] != StatusSkipped {
		t.Fatalf("modified file = %v", status)
	}

	status, _ = ExportDefaults(fsys, "templates", dir, true)
	if status["templates/report.tmpl"] != StatusOverwritten {
		t.Fatalf("forced export = %v", status)
	}
	entries, _ := os.ReadDir(dir)
	var backup bool
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "report.tmpl.bak.") {
			backup = true
		}
	}
	if !backup {
		t.Fatalf("no backup written before overwrite")
	}
}

func TestEnsureConfigPresent(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "conf", "ecoute.yaml")
	created, err := EnsureConfigPresent(dst, testFS(), "example.yaml")
	if err != nil || !created {
		t.Fatalf("first call: created=%v err=%v", created, err)
	}
	os.WriteFile(dst, []byte("perso"), 0o644)
	created, err = EnsureConfigPresent(dst, testFS(), "example.yaml")
	if err != nil || created {
		t.Fatalf("second call: created=%v err=%v", created, err)
	}
	if b, _ := os.ReadFile(dst); string(b) != "perso" {
		t.Fatalf("existing config overwritten")
	}
	if _, err := EnsureConfigPresent(filepath.Join(t.TempDir(), "x.yaml"), testFS(), "absent.yaml"); err == nil {
		t.Fatalf("missing asset should fail")
	}
}
