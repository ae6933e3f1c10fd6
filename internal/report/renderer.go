package report

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"text/template"

	"github.com/patrickprogramme/ecoute/internal/assets"
	"github.com/patrickprogramme/ecoute/internal/fsutil"
)

// TemplateName : nom du template de note de fin de leçon.
const TemplateName = "lesson_report.md.tmpl"

// Renderer gère le parsing paresseux (lazy) des templates et fournit des méthodes de rendu.
type Renderer struct {
	templates *template.Template
	fsys      fs.FS    // embed.FS ou os.DirFS
	patterns  []string // patterns relatifs au fsys
	once      sync.Once
	err       error // erreur d'initialisation, mémorisée avec once
}

// NewRendererFromFS construit un Renderer qui parsera plus tard les patterns depuis fsys.
func NewRendererFromFS(fsys fs.FS, patterns []string) (*Renderer, error) {
	if fsys == nil {
		return nil, fmt.Errorf("fsys est nil")
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("aucun template fourni")
	}
	return &Renderer{
		fsys:     fsys,
		patterns: append([]string(nil), patterns...),
	}, nil
}

// DefaultRenderer lit les templates du dossier "templates" à côté du binaire
// (modifiables par l'utilisateur), sinon ceux embarqués.
func DefaultRenderer(exePath string) (*Renderer, error) {
	tplDir := filepath.Join(filepath.Dir(exePath), assets.TemplatesDir)
	if ok, _ := fsutil.DirHasMatchingFiles(tplDir, []string{TemplateName}); ok {
		r, err := NewRendererFromFS(os.DirFS(tplDir), []string{TemplateName})
		if err != nil {
			return nil, err
		}
		return r, r.ParseNow()
	}
	return EmbeddedRenderer()
}

// EmbeddedRenderer utilise les templates embarqués dans le binaire.
func EmbeddedRenderer() (*Renderer, error) {
	r, err := NewRendererFromFS(assets.Embedded, assets.DefaultTemplatePaths)
	if err != nil {
		return nil, err
	}
	return r, r.ParseNow()
}

func (r *Renderer) parseTemplates() error {
	r.once.Do(func() {
		t := template.New("root").Funcs(baseFuncMap())
		for _, p := range r.patterns {
			var err error
			if t, err = t.ParseFS(r.fsys, p); err != nil {
				r.err = fmt.Errorf("parse pattern %q: %w", p, err)
				return
			}
		}
		r.templates = t
	})
	return r.err
}

// ParseNow force le parsing immédiat.
func (r *Renderer) ParseNow() error {
	if r == nil {
		return fmt.Errorf("nil renderer")
	}
	return r.parseTemplates()
}

// Render exécute le template nommé tmplName (basename du fichier .tmpl) avec data.
func (r *Renderer) Render(tmplName string, data ReportData) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("renderer is nil")
	}
	if err := r.parseTemplates(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, tmplName, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", tmplName, err)
	}
	return buf.Bytes(), nil
}

// Save rend la note et l'écrit dans outDir ; retourne le chemin final.
// Un fichier existant n'est jamais écrasé (suffixe _1, _2, ...).
func (r *Renderer) Save(outDir string, data ReportData) (string, error) {
	b, err := r.Render(TemplateName, data)
	if err != nil {
		return "", err
	}
	return fsutil.SaveMarkdownAtomic(outDir, data.Filename, b, false)
}

func baseFuncMap() template.FuncMap {
	return template.FuncMap{
		"yamlList":       yamlListBlock,
		"yamlListInline": yamlListInline,
		"quoteBlock":     quoteBlockPure,
		"warning":        callout("warning", false),
		"quote":          callout("quote", true),
	}
}
