package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/patrickprogramme/ecoute/internal/clipboard"
	"github.com/patrickprogramme/ecoute/internal/config"
	"github.com/patrickprogramme/ecoute/internal/fetch"
	"github.com/patrickprogramme/ecoute/internal/lesson"
	"github.com/patrickprogramme/ecoute/internal/logger"
	"github.com/patrickprogramme/ecoute/internal/media"
	"github.com/patrickprogramme/ecoute/internal/report"
	"github.com/patrickprogramme/ecoute/internal/ui"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

// CLIFlags contient les information venant des flags de l'app
type CLIFlags struct {
	ConfigPath      string
	Lesson          string
	Mode            string
	PlayerPath      string
	Serve           bool
	Listen          string
	ExportTemplates bool
}

// App orchestre une session d'écoute dans le terminal : chargement de la
// leçon, horloge virtuelle (+ ffplay), commandes et note de fin de leçon.
type App struct {
	cfg      *config.Config
	ui       ui.Interface
	flags    *CLIFlags
	renderer *report.Renderer
	clip     clipboard.Writer
	log      *logger.Logger
	now      func() time.Time

	mu         sync.Mutex
	reported   bool // note de fin de leçon déjà écrite
	skipBounds bool // la question vient d'être validée, ne pas la réafficher
}

// New construit l'application. renderer peut être nil (pas de note).
func New(cfg *config.Config, uiClient ui.Interface, flags *CLIFlags, renderer *report.Renderer, log *logger.Logger) *App {
	if flags == nil {
		flags = &CLIFlags{}
	}
	return &App{
		cfg:      cfg,
		ui:       uiClient,
		flags:    flags,
		renderer: renderer,
		clip:     clipboard.System{},
		log:      logger.OrNop(log).With("component", "app"),
		now:      time.Now,
	}
}

// SetClipboard remplace le presse-papier (tests).
func (a *App) SetClipboard(w clipboard.Writer) { a.clip = w }

// NewLoader construit le chargeur de leçons décrit par la configuration.
func NewLoader(cfg *config.Config, log *logger.Logger) *lesson.Loader {
	f := fetch.New(time.Duration(cfg.Fetch.TimeoutSec)*time.Second, cfg.Fetch.MaxBytes)
	return lesson.NewLoader(cfg.LessonIndex, f, log)
}

// Options traduit la configuration en options de session.
func Options(cfg *config.Config, mode model.Mode) lesson.Options {
	return lesson.Options{
		Mode:             mode,
		Speeds:           cfg.Playback.Speeds,
		FeedbackDelay:    time.Duration(cfg.Quiz.FeedbackDelayMs) * time.Millisecond,
		AutoAdvanceDelay: time.Duration(cfg.Quiz.AutoAdvanceDelayMs) * time.Millisecond,
		AutoPlay:         cfg.Playback.AutoPlay,
	}
}

// Run exécute la session jusqu'à "q", la fin de l'entrée ou l'annulation de ctx.
func (a *App) Run(ctx context.Context) error {
	if a.flags.PlayerPath != "" {
		a.cfg.Playback.PlayerPath = a.flags.PlayerPath
		a.cfg.ResolvePlayerPath()
	}

	loader := NewLoader(a.cfg, a.log)
	id, err := a.pickLesson(ctx, loader)
	if err != nil {
		return err
	}
	mode, err := a.mode()
	if err != nil {
		return err
	}

	src := a.newSource(ctx)
	defer src.Pause()

	ctrl := lesson.New(Options(a.cfg, mode), loader, src, nil, a.log)
	defer ctrl.Close()
	a.subscribe(ctx, ctrl)

	a.ui.PrintInfo(ctx, fmt.Sprintf("Chargement de la leçon %q (mode %s)...", id, mode))
	if err := ctrl.LoadLesson(ctx, id); err != nil {
		return fmt.Errorf("chargement de la leçon: %w", err)
	}
	if n := len(ctrl.Warnings()); n > 0 {
		a.ui.PrintError(ctx, fmt.Sprintf("⚠️  %d avertissement(s) lors de l'analyse des sous-titres", n))
	}
	a.ui.PrintInfo(ctx, ui.Help)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	tick := time.Duration(a.cfg.Playback.TickIntervalMs) * time.Millisecond
	g.Go(func() error {
		err := src.Watch(gctx, tick, ctrl.HandleTimeUpdate)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer cancel()
		return a.loop(gctx, ctrl)
	})
	err = g.Wait()

	a.finish(context.WithoutCancel(ctx), ctrl)
	return err
}

func (a *App) pickLesson(ctx context.Context, loader *lesson.Loader) (string, error) {
	if a.flags.Lesson != "" {
		return a.flags.Lesson, nil
	}
	if a.cfg.DefaultLesson != "" {
		return a.cfg.DefaultLesson, nil
	}
	index, err := loader.Index(ctx)
	if err != nil {
		return "", fmt.Errorf("index des leçons: %w", err)
	}
	return a.ui.ChooseLesson(ctx, index)
}

func (a *App) mode() (model.Mode, error) {
	if a.flags.Mode != "" {
		return model.ParseMode(a.flags.Mode)
	}
	return a.cfg.Mode(), nil
}

// newSource construit l'horloge virtuelle ; ffplay est optionnel, sans lui
// la lecture est muette mais la session reste utilisable.
func (a *App) newSource(ctx context.Context) *media.VirtualSource {
	p := media.NewExternalPlayer(a.cfg.Playback.ResolvedPlayerPath, media.DefaultPlayerConfig(), a.log)
	if err := p.CheckBinary(); err != nil {
		a.ui.PrintError(ctx, fmt.Sprintf("⚠️  %v : lecture muette", err))
		return media.NewVirtualSource(nil, a.log)
	}
	if v, err := p.GetVersion(ctx); err == nil {
		a.log.Info("external player ready", "path", p.Path, "version", v)
	}
	return media.NewVirtualSource(p, a.log)
}

func (a *App) loop(ctx context.Context, ctrl *lesson.Controller) error {
	for {
		cmd, err := a.ui.ReadCommand(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if quit := a.execute(ctx, ctrl, cmd); quit {
			return nil
		}
	}
}
