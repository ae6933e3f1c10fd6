// Package fetch télécharge les ressources d'une leçon (index JSON, captions)
// depuis HTTP(S) ou le disque local, avec timeout et limite de taille.
// Une seule requête par appel, sans nouvelle tentative.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultMaxBytes  = 10_000_000
	DefaultUserAgent = "ecoute/1.0"
)

// Erreurs exportées
var (
	ErrStatus   = errors.New("unexpected HTTP status")
	ErrTooLarge = errors.New("response body too large")
)

// Error décrit l'échec d'un téléchargement (ressource injoignable ou statut non-2xx).
// StatusCode vaut 0 quand aucune réponse HTTP n'a été reçue.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher regroupe le client HTTP et les limites. Valeur zéro utilisable.
type Fetcher struct {
	Client    *http.Client
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// New construit un Fetcher ; timeout/maxBytes <= 0 -> valeurs par défaut.
func New(timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{Timeout: timeout, MaxBytes: maxBytes}
}

func (f *Fetcher) limits() (time.Duration, int64) {
	timeout, maxBytes := f.Timeout, f.MaxBytes
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return timeout, maxBytes
}

// Open ouvre rawURL en lecture : http(s)://, file:// ou chemin local.
// L'appelant ferme le ReadCloser ; cancel libère le timeout.
func (f *Fetcher) Open(ctx context.Context, rawURL string) (io.ReadCloser, context.CancelFunc, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout, maxBytes := f.limits()

	if path, ok := localPath(rawURL); ok {
		file, err := os.Open(path)
		if err != nil {
			return nil, func() {}, &Error{URL: rawURL, Err: err}
		}
		if st, err := file.Stat(); err == nil && st.Size() > maxBytes {
			file.Close()
			return nil, func() {}, &Error{URL: rawURL, Err: fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, st.Size(), maxBytes)}
		}
		return file, func() {}, nil
	}

	// valider l'URL tôt
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, func() {}, &Error{URL: rawURL, Err: fmt.Errorf("invalid url: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, func() {}, &Error{URL: rawURL, Err: fmt.Errorf("new request: %w", err)}
	}
	ua := f.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, func() {}, &Error{URL: rawURL, Err: fmt.Errorf("request failed: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		cancel()
		return nil, func() {}, &Error{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w %s", ErrStatus, resp.Status)}
	}
	// si Content-Length connu et supérieur à maxBytes -> échouer vite
	if resp.ContentLength > 0 && resp.ContentLength > maxBytes {
		resp.Body.Close()
		cancel()
		return nil, func() {}, &Error{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: content-length %d exceeds limit %d", ErrTooLarge, resp.ContentLength, maxBytes)}
	}
	return resp.Body, cancel, nil
}

// Bytes télécharge rawURL et retourne son contenu complet.
func (f *Fetcher) Bytes(ctx context.Context, rawURL string) ([]byte, error) {
	_, maxBytes := f.limits()
	body, cancel, err := f.Open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer body.Close()

	r := io.LimitReader(body, maxBytes+1) // +1 pour détecter dépassement
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > maxBytes {
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("%w (>%d bytes)", ErrTooLarge, maxBytes)}
	}
	return data, nil
}

// Resolve résout ref relativement à base (URL ou chemin local).
// Une référence absolue est retournée telle quelle.
func Resolve(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("resolve: empty reference")
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return ref, nil
	}
	if basePath, ok := localPath(base); ok {
		if filepath.IsAbs(ref) {
			return ref, nil
		}
		return filepath.Join(filepath.Dir(basePath), filepath.FromSlash(ref)), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("resolve: bad base %q: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("resolve: bad reference %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

// localPath indique si raw désigne un fichier local (chemin ou file://).
// Les lettres de lecteur Windows (C:\...) ne sont pas prises pour un schéma.
func localPath(raw string) (string, bool) {
	if strings.HasPrefix(raw, "file://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false
		}
		return filepath.FromSlash(u.Path), true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return raw, true
	}
	return "", false
}
