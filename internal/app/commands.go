package app

import (
	"context"
	"fmt"

	"github.com/patrickprogramme/ecoute/internal/clipboard"
	"github.com/patrickprogramme/ecoute/internal/lesson"
	"github.com/patrickprogramme/ecoute/internal/navigator"
	"github.com/patrickprogramme/ecoute/internal/quiz"
	"github.com/patrickprogramme/ecoute/internal/report"
	"github.com/patrickprogramme/ecoute/internal/ui"
	"github.com/patrickprogramme/ecoute/pkg/model"
)

// execute applique une commande ; retourne true pour quitter.
func (a *App) execute(ctx context.Context, ctrl *lesson.Controller, cmd ui.Command) bool {
	switch cmd.Kind {
	case ui.CmdQuit:
		return true

	case ui.CmdHelp:
		a.ui.PrintInfo(ctx, ui.Help)

	case ui.CmdPlay:
		if !ctrl.Play() {
			a.ui.PrintError(ctx, "Lecture impossible (audio non prêt).")
		}

	case ui.CmdPause:
		ctrl.Pause()

	case ui.CmdNext:
		if !ctrl.Next() {
			st := ctrl.State()
			if !st.HasNext {
				a.ui.PrintInfo(ctx, "Dernier segment.")
			} else {
				a.ui.PrintError(ctx, "Répondez d'abord aux questions de ce segment.")
			}
		}

	case ui.CmdPrevious:
		if !ctrl.Previous() {
			a.ui.PrintInfo(ctx, "Premier segment.")
		}

	case ui.CmdGoto:
		if !ctrl.SeekTo(cmd.N) {
			a.ui.PrintError(ctx, fmt.Sprintf("Segment %d inexistant.", cmd.N+1))
		}

	case ui.CmdSelect:
		if !ctrl.SelectAnswer(cmd.N) {
			a.ui.PrintError(ctx, "Sélection impossible.")
			return false
		}
		a.ui.PrintInfo(ctx, ui.FormatQuestion(ctrl.State()))

	case ui.CmdSubmit:
		// le résultat est affiché par l'abonné OnAnswered
		if _, ok := ctrl.SubmitAnswer(); !ok {
			a.ui.PrintError(ctx, "Choisissez d'abord une réponse (1-4).")
		}

	case ui.CmdNextQuestion:
		if !ctrl.NextQuestion() {
			a.ui.PrintInfo(ctx, "Pas de question suivante.")
		}

	case ui.CmdPreviousQuestion:
		if !ctrl.PreviousQuestion() {
			a.ui.PrintInfo(ctx, "Pas de question précédente.")
		}

	case ui.CmdMode:
		m, err := model.ParseMode(cmd.Arg)
		if err != nil {
			a.ui.PrintError(ctx, err.Error())
			return false
		}
		if ctrl.SetMode(m) {
			a.ui.PrintInfo(ctx, fmt.Sprintf("Mode : %s", m))
		}

	case ui.CmdSpeed:
		if sp, ok := ctrl.ToggleSpeed(); ok {
			a.ui.PrintInfo(ctx, fmt.Sprintf("Vitesse x%g", sp))
		}

	case ui.CmdRestart:
		a.mu.Lock()
		a.reported = false
		a.mu.Unlock()
		ctrl.Restart()

	case ui.CmdCopy:
		st := ctrl.State()
		if st.Segment == nil {
			return false
		}
		if err := clipboard.CopySentence(a.clip, st.Segment.Text); err != nil {
			a.ui.PrintError(ctx, fmt.Sprintf("Copie impossible : %v", err))
			return false
		}
		a.ui.PrintInfo(ctx, "📋 Phrase copiée dans le presse-papier.")

	case ui.CmdStatus:
		a.ui.PrintInfo(ctx, ui.FormatStatus(ctrl.State()))
	}
	return false
}

// subscribe branche l'affichage sur les évènements de la session.
func (a *App) subscribe(ctx context.Context, ctrl *lesson.Controller) {
	ctrl.OnSegmentChanged(func(e navigator.Changed) {
		a.ui.PrintInfo(ctx, "\n"+ui.FormatSegment(e.Index, ctrl.State().SegmentCount, e.Segment))
	})
	ctrl.OnNoQuestions(func(e quiz.NoQuestions) {
		a.ui.PrintInfo(ctx, fmt.Sprintf("(pas de question %s pour ce segment)", e.Mode))
	})
	ctrl.OnBoundsUpdated(func(b quiz.Bounds) {
		a.mu.Lock()
		skip := a.skipBounds
		a.skipBounds = false
		a.mu.Unlock()
		if !skip {
			a.ui.PrintInfo(ctx, ui.FormatQuestion(ctrl.State()))
		}
	})
	ctrl.OnAnswered(func(r quiz.Result) {
		a.mu.Lock()
		a.skipBounds = true
		a.mu.Unlock()
		a.ui.PrintInfo(ctx, ui.FormatResult(r))
	})
	ctrl.OnSegmentExhausted(func(quiz.Exhausted) {
		a.ui.PrintInfo(ctx, ui.FormatScore(ctrl.State().Score))
	})
	ctrl.OnLessonComplete(func(navigator.Complete) {
		a.ui.PrintInfo(ctx, "\n🎉 Leçon terminée ! "+ui.FormatScore(ctrl.State().Score))
		a.finish(ctx, ctrl)
	})
}

// finish écrit la note de fin de leçon, une fois par parcours et seulement si
// au moins une réponse a été donnée.
func (a *App) finish(ctx context.Context, ctrl *lesson.Controller) {
	if a.renderer == nil || !a.cfg.Report.Save {
		return
	}
	history := ctrl.History()
	if len(history) == 0 {
		return
	}
	a.mu.Lock()
	if a.reported {
		a.mu.Unlock()
		return
	}
	a.reported = true
	a.mu.Unlock()

	data := report.NewReportData(ctrl.Lesson(), ctrl.State().Score, history, a.now())
	path, err := a.renderer.Save(a.cfg.Report.OutputDir, data)
	if err != nil {
		a.log.Error("save report failed", "error", err)
		a.ui.PrintError(ctx, fmt.Sprintf("Note non enregistrée : %v", err))
		return
	}
	a.ui.PrintInfo(ctx, fmt.Sprintf("Note écrite : %s", path))
}
