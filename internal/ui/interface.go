package ui

import (
	"context"

	"github.com/patrickprogramme/ecoute/pkg/model"
)

type Interface interface {
	// ReadCommand bloque jusqu'à la prochaine commande saisie.
	// Retourne io.EOF quand l'entrée est fermée, ctx.Err() si ctx est annulé.
	ReadCommand(ctx context.Context) (Command, error)

	// ChooseLesson affiche les leçons disponibles et retourne l'identifiant choisi.
	ChooseLesson(ctx context.Context, index model.LessonIndex) (string, error)

	PrintInfo(ctx context.Context, s string)
	PrintError(ctx context.Context, s string)
}
