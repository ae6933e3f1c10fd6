package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/patrickprogramme/ecoute/internal/assets"
	"github.com/patrickprogramme/ecoute/internal/bootstrap"
	"github.com/patrickprogramme/ecoute/pkg/model"
	"gopkg.in/yaml.v3"
)

const CurrentConfigVersion = 2

// DefaultFileName : fichier de config cherché à côté du binaire.
const DefaultFileName = "ecoute.yaml"

// struct pour les paramètres de configuration
type Config struct {
	// Leçons
	LessonIndex   string `yaml:"lesson_index"`
	DefaultLesson string `yaml:"default_lesson"`
	DefaultMode   string `yaml:"default_mode"`

	Playback struct {
		Speeds         []float64 `yaml:"speeds"`
		TickIntervalMs int       `yaml:"tick_interval_ms"`
		PlayerName     string    `yaml:"player_name"`
		PlayerPath     string    `yaml:"player_path"`
		AutoPlay       bool      `yaml:"auto_play"`

		// ResolvedPlayerPath contient le chemin effectif vers ffplay (nom nu = recherche dans le PATH)
		ResolvedPlayerPath string `yaml:"-"`
	} `yaml:"playback"`

	Quiz struct {
		FeedbackDelayMs    int `yaml:"feedback_delay_ms"`
		AutoAdvanceDelayMs int `yaml:"auto_advance_delay_ms"`
	} `yaml:"quiz"`

	Fetch struct {
		TimeoutSec int   `yaml:"timeout_sec"`
		MaxBytes   int64 `yaml:"max_bytes"`
	} `yaml:"fetch"`

	Server struct {
		Listen         string   `yaml:"listen"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`

	Report struct {
		Save      bool   `yaml:"save"`
		OutputDir string `yaml:"output_dir"`
	} `yaml:"report"`

	ConfigVersion int `yaml:"config_version"`

	configFilePath string
}

// Configuration par défaut (fallback si l'asset embarqué est manquant)
func defaultConfig() *Config {
	c := &Config{}

	c.LessonIndex = "lessons/index.json"
	c.DefaultLesson = ""
	c.DefaultMode = string(model.ModeComprehension)

	c.Playback.Speeds = []float64{1.0, 0.75, 0.5}
	c.Playback.TickIntervalMs = 100
	c.Playback.PlayerName = "ffplay"
	c.Playback.PlayerPath = ""
	c.Playback.AutoPlay = true

	c.Quiz.FeedbackDelayMs = 1500
	c.Quiz.AutoAdvanceDelayMs = 800

	c.Fetch.TimeoutSec = 30
	c.Fetch.MaxBytes = 10 << 20

	c.Server.Listen = ":8080"
	c.Server.AllowedOrigins = []string{"http://localhost:5173"}

	c.Log.Mode = "quiet"

	c.Report.Save = true
	c.Report.OutputDir = "reports"

	c.ConfigVersion = CurrentConfigVersion

	return c
}

// Load lit la config; si le fichier n'existe pas, on copie l'exemple embarqué depuis internal/assets
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFileName
	}

	// premier lancement : copie de l'exemple embarqué
	if _, err := bootstrap.EnsureConfigPresent(path, assets.Embedded, assets.DefaultConfigAsset); err != nil {
		return nil, fmt.Errorf("échec de création du fichier de configuration par défaut : %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lecture du fichier de configuration %s impossible : %w", path, err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("analyse du fichier de configuration %s impossible : %w", path, err)
	}
	cfg.configFilePath = path

	// fichier plus ancien -> sauvegarde, migration, réécriture
	if cfg.ConfigVersion < CurrentConfigVersion {
		if err := orchestrateConfigUpgrade(cfg, cfg.ConfigVersion); err != nil {
			return nil, fmt.Errorf("échec de mise à niveau de la configuration : %w", err)
		}
		cfg.normalizeConfig()
	}

	return cfg, nil
}

// parse déserialise data par-dessus les valeurs par défaut : les champs absents
// conservent leur défaut.
func parse(data []byte) (*Config, error) {
	cfg := defaultConfig()
	// version absente du fichier = version 0
	cfg.ConfigVersion = 0

	// corriger les chemins Windows avec des backslashes
	data = bytes.ReplaceAll(data, []byte(`\`), []byte(`/`))

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.normalizeConfig()
	return cfg, nil
}

// Path retourne le chemin du fichier chargé.
func (c *Config) Path() string { return c.configFilePath }

func (c *Config) normalizeConfig() {
	c.LessonIndex = strings.TrimSpace(c.LessonIndex)
	c.DefaultLesson = strings.TrimSpace(c.DefaultLesson)

	c.DefaultMode = strings.TrimSpace(strings.ToLower(c.DefaultMode))
	if c.DefaultMode == "" {
		c.DefaultMode = string(model.ModeComprehension)
	}

	// vitesses : on écarte les valeurs non positives
	speeds := c.Playback.Speeds[:0:0]
	for _, s := range c.Playback.Speeds {
		if s > 0 {
			speeds = append(speeds, s)
		}
	}
	if len(speeds) == 0 {
		speeds = []float64{1.0, 0.75, 0.5}
	}
	c.Playback.Speeds = speeds

	if c.Playback.TickIntervalMs <= 0 {
		c.Playback.TickIntervalMs = 100
	}
	if c.Quiz.FeedbackDelayMs < 0 {
		c.Quiz.FeedbackDelayMs = 1500
	}
	if c.Quiz.AutoAdvanceDelayMs < 0 {
		c.Quiz.AutoAdvanceDelayMs = 800
	}
	if c.Fetch.TimeoutSec <= 0 {
		c.Fetch.TimeoutSec = 30
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = 10 << 20
	}

	c.Server.Listen = strings.TrimSpace(c.Server.Listen)
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	c.Log.Mode = strings.TrimSpace(strings.ToLower(c.Log.Mode))

	if c.Report.OutputDir = strings.TrimSpace(c.Report.OutputDir); c.Report.OutputDir == "" {
		c.Report.OutputDir = "reports"
	}
	c.Report.OutputDir = filepath.Clean(c.Report.OutputDir)

	c.ResolvePlayerPath()
}

// ResolvePlayerPath normalise le nom et résout le chemin complet vers ffplay.
// Appeler après avoir modifié Playback.PlayerName ou Playback.PlayerPath.
func (c *Config) ResolvePlayerPath() {
	if c == nil {
		return
	}

	c.Playback.PlayerName = strings.TrimSpace(c.Playback.PlayerName)
	if c.Playback.PlayerName == "" {
		c.Playback.PlayerName = "ffplay"
	}
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(c.Playback.PlayerName), ".exe") {
		c.Playback.PlayerName = c.Playback.PlayerName + ".exe"
	}

	// chemin vide -> recherche dans le PATH par le lecteur
	exeName := c.Playback.PlayerName
	cfgPath := strings.TrimSpace(c.Playback.PlayerPath)
	if cfgPath == "" {
		c.Playback.ResolvedPlayerPath = exeName
		return
	}
	cleanPath := filepath.Clean(cfgPath)

	if filepath.Base(cleanPath) == exeName {
		c.Playback.ResolvedPlayerPath = cleanPath
	} else {
		// sinon on considère cfgPath comme un répertoire et on y joint l'exe
		c.Playback.ResolvedPlayerPath = filepath.Join(cleanPath, exeName)
	}
}

// Mode retourne le mode par défaut typé.
func (c *Config) Mode() model.Mode {
	return model.Mode(c.DefaultMode)
}
