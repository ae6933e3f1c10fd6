// Package media fournit les sources de temps concrètes du lecteur :
// horloge virtuelle (terminal), lecteur externe ffplay, et source distante
// qui reflète l'état d'un lecteur audio de navigateur.
package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickprogramme/ecoute/internal/logger"
	"github.com/patrickprogramme/ecoute/internal/playback"
)

// Output produit le son correspondant à la position de l'horloge virtuelle.
type Output interface {
	Start(url string, at, rate float64) error
	Stop()
}

// Prober retourne la durée d'une ressource audio, en secondes.
type Prober interface {
	Probe(ctx context.Context, url string) (float64, error)
}

// VirtualSource est une horloge murale : la position avance avec le temps réel
// multiplié par la vitesse. Sûre pour un usage concurrent.
type VirtualSource struct {
	mu       sync.Mutex
	now      func() time.Time
	url      string
	ready    bool
	duration float64

	base    float64   // position au moment de anchor
	anchor  time.Time // instant du dernier changement d'état
	playing bool
	rate    float64

	out Output
	log *logger.Logger
}

// NewVirtualSource construit une source non chargée. out peut être nil (lecture muette).
func NewVirtualSource(out Output, log *logger.Logger) *VirtualSource {
	return &VirtualSource{
		now:  time.Now,
		rate: 1,
		out:  out,
		log:  logger.OrNop(log).With("component", "virtual-source"),
	}
}

// SetClock remplace l'horloge (tests).
func (v *VirtualSource) SetClock(now func() time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = now
	v.anchor = now()
}

// Load prépare la ressource url ; la durée est sondée si la sortie sait le faire.
func (v *VirtualSource) Load(ctx context.Context, url string) error {
	var duration float64
	if p, ok := v.out.(Prober); ok {
		d, err := p.Probe(ctx, url)
		if err != nil {
			v.log.Warn("probe failed, duration unknown", "url", url, "error", err)
		} else {
			duration = d
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopOutput()
	v.url = url
	v.ready = true
	v.duration = duration
	v.base = 0
	v.anchor = v.now()
	v.playing = false
	return nil
}

// SetDuration fixe la durée connue du média (0 = inconnue, pas de borne).
func (v *VirtualSource) SetDuration(d float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.duration = d
}

// position calcule la position courante. Verrou tenu.
func (v *VirtualSource) position() float64 {
	if !v.playing {
		return v.base
	}
	p := v.base + v.now().Sub(v.anchor).Seconds()*v.rate
	if v.duration > 0 && p > v.duration {
		p = v.duration
	}
	return p
}

func (v *VirtualSource) CurrentTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position()
}

func (v *VirtualSource) Duration() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.duration
}

// IsPaused : la position reste bornée à la durée, mais la source ne se met
// pas en pause d'elle-même en fin de média.
func (v *VirtualSource) IsPaused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.playing
}

func (v *VirtualSource) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.ready {
		return playback.ErrNotReady
	}
	if v.playing {
		return nil
	}
	v.anchor = v.now()
	v.playing = true
	if err := v.startOutput(); err != nil {
		v.playing = false
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

func (v *VirtualSource) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.playing {
		return
	}
	v.base = v.position()
	v.playing = false
	v.stopOutput()
}

func (v *VirtualSource) Seek(t float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.ready {
		return playback.ErrNotReady
	}
	if t < 0 {
		t = 0
	}
	if v.duration > 0 && t > v.duration {
		t = v.duration
	}
	v.base = t
	v.anchor = v.now()
	if v.playing {
		return v.startOutput()
	}
	return nil
}

func (v *VirtualSource) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.base = v.position()
	v.anchor = v.now()
	v.rate = rate
	if v.playing {
		if err := v.startOutput(); err != nil {
			v.log.Warn("restart output after rate change failed", "rate", rate, "error", err)
		}
	}
}

func (v *VirtualSource) startOutput() error {
	if v.out == nil {
		return nil
	}
	return v.out.Start(v.url, v.base, v.rate)
}

func (v *VirtualSource) stopOutput() {
	if v.out != nil {
		v.out.Stop()
	}
}

// Watch appelle onTick à chaque intervalle tant que la lecture est en cours,
// jusqu'à l'annulation de ctx. C'est le flux "la position a avancé".
func (v *VirtualSource) Watch(ctx context.Context, interval time.Duration, onTick func()) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			v.mu.Lock()
			playing := v.playing
			v.mu.Unlock()
			if playing {
				onTick()
			}
		}
	}
}
