package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/patrickprogramme/ecoute/internal/logger"
)

// PlayerConfig représente les flags passés à ffplay.
type PlayerConfig struct {
	NoDisplay bool   // true => -nodisp (pas de fenêtre)
	AutoExit  bool   // true => -autoexit en fin de fichier
	LogLevel  string // -loglevel
}

// DefaultPlayerConfig : lecture sans fenêtre, silencieuse sauf erreurs.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		NoDisplay: true,
		AutoExit:  true,
		LogLevel:  "error",
	}
}

// BuildArgs construit les arguments de ffplay pour lire url depuis at, à la vitesse rate.
// atempo n'accepte que [0.5, 2] : la vitesse est bornée.
func (c PlayerConfig) BuildArgs(url string, at, rate float64) []string {
	args := make([]string, 0, 10)
	if c.NoDisplay {
		args = append(args, "-nodisp")
	}
	if c.AutoExit {
		args = append(args, "-autoexit")
	}
	if c.LogLevel != "" {
		args = append(args, "-loglevel", c.LogLevel)
	}
	if at > 0 {
		args = append(args, "-ss", strconv.FormatFloat(at, 'f', 3, 64))
	}
	if rate > 0 && rate != 1 {
		if rate < 0.5 {
			rate = 0.5
		}
		if rate > 2 {
			rate = 2
		}
		args = append(args, "-af", "atempo="+strconv.FormatFloat(rate, 'f', -1, 64))
	}
	args = append(args, url)
	return args
}

// ExternalPlayer pilote un processus ffplay : un processus par plage lue,
// relancé à chaque seek ou changement de vitesse.
type ExternalPlayer struct {
	Path      string // chemin résolu vers ffplay
	ProbePath string // chemin vers ffprobe, déduit de Path si vide
	Config    PlayerConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	log *logger.Logger
}

func NewExternalPlayer(path string, cfg PlayerConfig, log *logger.Logger) *ExternalPlayer {
	return &ExternalPlayer{
		Path:   path,
		Config: cfg,
		log:    logger.OrNop(log).With("component", "ffplay"),
	}
}

// CheckBinary vérifie que ffplay est disponible (chemin explicite ou PATH).
func (p *ExternalPlayer) CheckBinary() error {
	if p == nil {
		return fmt.Errorf("lecteur externe non initialisé")
	}
	exe := p.Path
	if exe == "" {
		exe = "ffplay"
	}
	if !strings.ContainsRune(exe, filepath.Separator) && !strings.Contains(exe, "/") {
		if _, err := exec.LookPath(exe); err != nil {
			return fmt.Errorf("ffplay introuvable dans le PATH : %w", err)
		}
		return nil
	}
	info, err := os.Stat(exe)
	if err != nil {
		return fmt.Errorf("ffplay introuvable (%s) à l'emplacement spécifié : %w", exe, err)
	}
	if info.IsDir() {
		return fmt.Errorf("le chemin spécifié pour ffplay est un répertoire, pas un fichier exécutable")
	}
	return nil
}

// GetVersion exécute ffplay -version et retourne la première ligne.
func (p *ExternalPlayer) GetVersion(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, p.exe(), "-version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("échec exécution ffplay -version : %w, output: %s", err, string(out))
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(first), nil
}

// Start lance la lecture ; un processus déjà en cours est arrêté avant.
func (p *ExternalPlayer) Start(url string, at, rate float64) error {
	p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, p.exe(), p.Config.BuildArgs(url, at, rate)...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("ffplay: %w", err)
	}
	done := make(chan struct{})
	go func() {
		// récupérer le processus, qu'il se termine seul ou soit tué
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			p.log.Warn("ffplay exited", "error", err)
		}
		close(done)
	}()

	p.mu.Lock()
	p.cancel, p.done = cancel, done
	p.mu.Unlock()
	p.log.Debug("ffplay started", "url", url, "at", at, "rate", rate)
	return nil
}

// Stop tue le processus en cours et attend sa fin.
func (p *ExternalPlayer) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Probe lit la durée du média avec ffprobe.
func (p *ExternalPlayer) Probe(ctx context.Context, url string) (float64, error) {
	out, err := exec.CommandContext(ctx, p.probeExe(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		url,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseDuration(string(out))
}

func parseDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("ffprobe: durée inconnue")
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: durée invalide %q: %w", s, err)
	}
	return d, nil
}

func (p *ExternalPlayer) exe() string {
	if p.Path == "" {
		return "ffplay"
	}
	return p.Path
}

// probeExe : ffprobe à côté de ffplay (même dossier, même extension).
func (p *ExternalPlayer) probeExe() string {
	if p.ProbePath != "" {
		return p.ProbePath
	}
	exe := p.exe()
	dir, base := filepath.Split(exe)
	return dir + strings.Replace(base, "ffplay", "ffprobe", 1)
}
