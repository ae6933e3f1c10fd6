package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// countingReader compte le nombre d'octets lus via Read.
type countingReader struct {
	R io.Reader
	N int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	if n > 0 {
		c.N += int64(n)
	}
	return n, err
}

// JSONInto télécharge rawURL et décode le JSON directement dans dst (pointeur).
// Le décodage se fait en streaming sur un reader limité ; le compteur détecte
// un document qui dépasse MaxBytes.
func (f *Fetcher) JSONInto(ctx context.Context, rawURL string, dst interface{}) error {
	_, maxBytes := f.limits()
	body, cancel, err := f.Open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer cancel()
	defer body.Close()

	// on crée un reader qui limite et qui compte les octets lus
	cr := &countingReader{R: io.LimitReader(body, maxBytes+1)}
	if err := json.NewDecoder(cr).Decode(dst); err != nil {
		if cr.N > maxBytes {
			return &Error{URL: rawURL, Err: ErrTooLarge}
		}
		return fmt.Errorf("fetch json %s: decode: %w", rawURL, err)
	}
	// si on a lu plus que maxBytes, le decode a consommé maxBytes+1 => overflow
	if cr.N > maxBytes {
		return &Error{URL: rawURL, Err: ErrTooLarge}
	}
	return nil
}

// JSON générique : fetch + décodage dans une valeur typée.
func JSON[T any](ctx context.Context, f *Fetcher, rawURL string) (T, error) {
	var zero T
	var v T
	if err := f.JSONInto(ctx, rawURL, &v); err != nil {
		return zero, err
	}
	return v, nil
}
