package assets

import "embed"

//go:embed ecoute.example.yaml
//go:embed templates/*tmpl
var Embedded embed.FS

// Nom de l'asset de config par défaut (chemin DANS Embedded)
const DefaultConfigAsset = "ecoute.example.yaml"

// TemplatesDir : préfixe des templates dans Embedded.
const TemplatesDir = "templates"

// DefaultTemplatePaths : liste ordonnée des templates "par défaut" embarqués.
var DefaultTemplatePaths = []string{
	"templates/lesson_report.md.tmpl",
}

// TemplateByName donne un accès par clé (map).
var TemplateByName = map[string]string{
	"lesson_report": "templates/lesson_report.md.tmpl",
}
