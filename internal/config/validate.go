package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/patrickprogramme/ecoute/pkg/model"
)

// Validate vérifie la cohérence de la configuration.
// Retourne warnings (non-fataux) et une erreur si c'est critique.
func (c *Config) Validate() (warnings []string, err error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}

	if c.LessonIndex == "" {
		return warnings, fmt.Errorf("lesson_index est vide : impossible de trouver les leçons")
	}
	if u, perr := url.Parse(c.LessonIndex); perr == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host == "" {
		return warnings, fmt.Errorf("lesson_index invalide : %s", c.LessonIndex)
	}

	m, merr := model.ParseMode(c.DefaultMode)
	if merr != nil {
		warnings = append(warnings, fmt.Sprintf("default_mode inconnu (%s), utilisation de %s", c.DefaultMode, model.ModeComprehension))
		m = model.ModeComprehension
	}
	c.DefaultMode = string(m)

	for _, s := range c.Playback.Speeds {
		if s < 0.5 || s > 2 {
			warnings = append(warnings, fmt.Sprintf("vitesse %g hors de [0.5, 2] : le lecteur externe la bornera", s))
		}
	}
	if len(c.Playback.Speeds) > 0 && c.Playback.Speeds[0] != 1 {
		warnings = append(warnings, fmt.Sprintf("la vitesse initiale est %g et non 1.0", c.Playback.Speeds[0]))
	}

	if c.Report.Save {
		if st, serr := os.Stat(c.Report.OutputDir); serr == nil && !st.IsDir() {
			return warnings, fmt.Errorf("report.output_dir existe mais n'est pas un répertoire : %s", c.Report.OutputDir)
		}
	}

	pw, perr := c.ValidatePlayerPresence()
	warnings = append(warnings, pw...)
	if perr != nil {
		return warnings, perr
	}
	return warnings, nil
}

// ValidatePlayerPresence vérifie de manière statique que si un chemin explicite
// est configuré pour ffplay, le fichier existe. Sans ffplay la lecture reste
// muette : ce n'est jamais fatal, sauf chemin pointant sur un répertoire.
func (c *Config) ValidatePlayerPresence() (warnings []string, err error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}

	c.ResolvePlayerPath()

	p := strings.TrimSpace(c.Playback.ResolvedPlayerPath)
	if strings.TrimSpace(c.Playback.PlayerPath) == "" {
		// nom nu : recherche dans le PATH au lancement
		return warnings, nil
	}

	parent := filepath.Dir(p)
	if st, serr := os.Stat(parent); serr != nil {
		if os.IsNotExist(serr) {
			warnings = append(warnings, fmt.Sprintf("le dossier du lecteur audio n'existe pas : %s", parent))
			return warnings, nil
		}
		return warnings, fmt.Errorf("impossible d'accéder au dossier %s : %w", parent, serr)
	} else if !st.IsDir() {
		return warnings, fmt.Errorf("le parent du chemin ffplay n'est pas un répertoire : %s", parent)
	}

	if info, serr := os.Stat(p); serr != nil {
		if os.IsNotExist(serr) {
			warnings = append(warnings, fmt.Sprintf("ffplay introuvable à l'emplacement configuré : %s (lecture muette)", p))
			return warnings, nil
		}
		return warnings, fmt.Errorf("erreur lors du test du fichier %s : %w", p, serr)
	} else if info.IsDir() {
		return warnings, fmt.Errorf("le chemin configuré pour ffplay est un répertoire : %s", p)
	}

	return warnings, nil
}
