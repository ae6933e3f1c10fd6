// Package playback relie une source de temps (lecteur audio) à la liste de segments :
// position -> index de segment, fin de segment, lecture d'un segment, vitesse.
package playback

import (
	"context"
	"errors"
)

// ErrNotReady : la ressource média n'est pas encore chargée/lisible.
var ErrNotReady = errors.New("media not ready")

// TimeSource est la capacité minimale attendue d'un lecteur média.
// Les positions sont en secondes.
type TimeSource interface {
	CurrentTime() float64
	Duration() float64
	Play() error
	Pause()
	Seek(t float64) error
	SetRate(rate float64)
	IsPaused() bool
}

// DefaultSpeeds : vitesses de lecture, parcourues en boucle par ToggleSpeed.
var DefaultSpeeds = []float64{1.0, 0.75, 0.5}

// MediaLoader est implémenté par les sources qui chargent elles-mêmes la
// ressource audio d'une leçon (fichier local, URL).
type MediaLoader interface {
	Load(ctx context.Context, url string) error
}
