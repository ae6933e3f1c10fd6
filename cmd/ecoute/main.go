package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/patrickprogramme/ecoute/internal/app"
	"github.com/patrickprogramme/ecoute/internal/assets"
	"github.com/patrickprogramme/ecoute/internal/bootstrap"
	"github.com/patrickprogramme/ecoute/internal/config"
	"github.com/patrickprogramme/ecoute/internal/lesson"
	"github.com/patrickprogramme/ecoute/internal/logger"
	"github.com/patrickprogramme/ecoute/internal/report"
	"github.com/patrickprogramme/ecoute/internal/server"
	"github.com/patrickprogramme/ecoute/internal/ui"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

func main() {
	flags := parseFlags()

	// déterminer exePath/binDir
	binDir := "."
	exePath, err := os.Executable()
	if err != nil {
		log.Printf("impossible de déterminer le chemin de l'executable: %v", err)
	} else {
		binDir = filepath.Dir(exePath)
	}

	// emplacement config par défaut
	if flags.ConfigPath == config.DefaultFileName || flags.ConfigPath == "" {
		flags.ConfigPath = filepath.Join(binDir, config.DefaultFileName)
	}

	if flags.ExportTemplates {
		exportTemplates(filepath.Join(binDir, assets.TemplatesDir))
		return
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if flags.PlayerPath != "" {
		cfg.Playback.PlayerPath = flags.PlayerPath
		cfg.ResolvePlayerPath()
	}
	warnings, err := cfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "⚠️  config: %s\n", w)
	}
	if err != nil {
		log.Fatalf("config invalide (%s): %v", cfg.Path(), err)
	}

	lg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	// root context qui s'annule sur SIGINT / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.Serve {
		if err := serve(ctx, cfg, flags, lg); err != nil {
			lg.Error("server stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	// construction du renderer
	renderer, err := report.DefaultRenderer(exePath)
	if err != nil {
		log.Fatalf("impossible de construire le renderer: %v", err)
	}

	a := app.New(cfg, ui.NewTerminal(), flags, renderer, lg)
	if err := a.Run(ctx); err != nil {
		log.Fatalf("app run: %v", err)
	}
}

func serve(ctx context.Context, cfg *config.Config, flags *app.CLIFlags, lg *logger.Logger) error {
	addr := cfg.Server.Listen
	if flags.Listen != "" {
		addr = flags.Listen
	}
	mode := cfg.Mode()
	if flags.Mode != "" {
		m, err := model.ParseMode(flags.Mode)
		if err != nil {
			return err
		}
		mode = m
	}
	defaultLesson := cfg.DefaultLesson
	if flags.Lesson != "" {
		defaultLesson = flags.Lesson
	}

	reg := server.NewRegistry(app.NewLoader(cfg, lg), func(m model.Mode) lesson.Options {
		return app.Options(cfg, m)
	}, lg)
	router := server.NewRouter(server.RouterConfig{
		Handler:        server.NewHandler(reg, defaultLesson, mode),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            lg,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(gctx, addr, router, lg) })
	g.Go(func() error { return reg.Run(gctx, time.Minute) })
	return g.Wait()
}

// exportTemplates copie les templates embarqués dans dir pour les personnaliser ;
// les fichiers existants sont conservés.
func exportTemplates(dir string) {
	statuses, err := bootstrap.ExportDefaults(assets.Embedded, assets.TemplatesDir, dir, false)
	if err != nil {
		log.Fatalf("export des templates: %v", err)
	}
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-40s %s\n", name, statuses[name])
	}
}

func parseFlags() *app.CLIFlags {
	f := &app.CLIFlags{}
	flag.StringVar(&f.ConfigPath, "config", config.DefaultFileName, "path to config file")
	flag.StringVar(&f.Lesson, "lesson", "", "identifiant de la leçon (sinon config ou choix interactif)")
	flag.StringVar(&f.Mode, "mode", "", "mode de questions : comprehension, grammar, gap-fill, ...")
	flag.StringVar(&f.PlayerPath, "player-path", "", "chemin vers ffplay (fichier ou dossier)")
	flag.BoolVar(&f.Serve, "serve", false, "démarre l'API HTTP au lieu du terminal")
	flag.StringVar(&f.Listen, "listen", "", "adresse d'écoute de l'API (défaut : config server.listen)")
	flag.BoolVar(&f.ExportTemplates, "export-templates", false, "copie les templates par défaut à côté du binaire puis quitte")
	flag.Parse()
	return f
}
