package media

import (
	"context"
	"sync"

	"github.com/patrickprogramme/ecoute/internal/playback"
)

// Actions envoyées au lecteur du navigateur.
const (
	ActionLoad  = "load"
	ActionPlay  = "play"
	ActionPause = "pause"
	ActionSeek  = "seek"
	ActionRate  = "rate"
)

// Command est une instruction pour le lecteur distant, renvoyée dans la
// réponse HTTP suivante. Seq croît à chaque commande ; le navigateur renvoie
// le dernier Seq appliqué avec sa position.
type Command struct {
	Seq      uint64  `json:"seq"`
	Action   string  `json:"action"`
	URL      string  `json:"url,omitempty"`
	Position float64 `json:"position,omitempty"`
	Rate     float64 `json:"rate,omitempty"`
}

// RemoteSource reflète l'état d'un lecteur audio de navigateur : le navigateur
// publie sa position (Update), la session répond par des commandes (Drain).
type RemoteSource struct {
	mu       sync.Mutex
	url      string
	loaded   bool
	position float64
	duration float64
	paused   bool
	rate     float64
	commands []Command
	seq      uint64
	lastSeek uint64 // Seq du dernier load/seek
}

func NewRemoteSource() *RemoteSource {
	return &RemoteSource{paused: true, rate: 1}
}

// Update enregistre l'état publié par le navigateur. applied est le Seq de la
// dernière commande appliquée (0 si le navigateur ne le suit pas) : un état
// antérieur au dernier load/seek est périmé, seule la durée en est retenue.
func (r *RemoteSource) Update(position float64, paused bool, duration float64, applied uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if applied != 0 && applied < r.lastSeek {
		if duration > 0 {
			r.duration = duration
		}
		return
	}
	if position >= 0 {
		r.position = position
	}
	if duration > 0 {
		r.duration = duration
	}
	r.paused = paused
}

// Drain retourne et vide les commandes en attente.
func (r *RemoteSource) Drain() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.commands
	r.commands = nil
	return out
}

func (r *RemoteSource) Load(_ context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.url = url
	r.loaded = true
	r.position = 0
	r.duration = 0
	r.paused = true
	r.push(Command{Action: ActionLoad, URL: url})
	r.lastSeek = r.seq
	return nil
}

func (r *RemoteSource) ready() bool {
	return r.loaded || r.duration > 0
}

func (r *RemoteSource) CurrentTime() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.position
}

func (r *RemoteSource) Duration() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duration
}

func (r *RemoteSource) IsPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// Play : le navigateur peut encore refuser (autoplay) ; il le signalera
// en publiant paused=true.
func (r *RemoteSource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready() {
		return playback.ErrNotReady
	}
	r.paused = false
	r.push(Command{Action: ActionPlay, Position: r.position})
	return nil
}

func (r *RemoteSource) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return
	}
	r.paused = true
	r.push(Command{Action: ActionPause, Position: r.position})
}

func (r *RemoteSource) Seek(t float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready() {
		return playback.ErrNotReady
	}
	if t < 0 {
		t = 0
	}
	r.position = t
	r.push(Command{Action: ActionSeek, Position: t})
	r.lastSeek = r.seq
	return nil
}

func (r *RemoteSource) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rate == r.rate {
		return
	}
	r.rate = rate
	r.push(Command{Action: ActionRate, Rate: rate})
}

// push numérote cmd et la met en file. Appelé verrou tenu.
func (r *RemoteSource) push(cmd Command) {
	r.seq++
	cmd.Seq = r.seq
	r.commands = append(r.commands, cmd)
}
