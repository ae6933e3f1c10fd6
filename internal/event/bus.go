// Package event fournit une liste d'abonnés typée, une par type d'évènement.
// Pas de verrou : le propriétaire du Bus sérialise Subscribe/Emit.
package event

// Bus diffuse des valeurs de type T aux abonnés, dans l'ordre d'abonnement.
type Bus[T any] struct {
	subs []subscriber[T]
	next int
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Subscribe ajoute fn et retourne la fonction de désabonnement (idempotente).
func (b *Bus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	b.next++
	id := b.next
	b.subs = append(b.subs, subscriber[T]{id: id, fn: fn})
	return func() {
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit appelle chaque abonné avec v. La liste est copiée avant l'appel :
// un abonné peut se désabonner pendant l'émission.
func (b *Bus[T]) Emit(v T) {
	if len(b.subs) == 0 {
		return
	}
	subs := append([]subscriber[T](nil), b.subs...)
	for _, s := range subs {
		s.fn(v)
	}
}

// Handlers retourne une copie des abonnés courants, pour une émission différée
// hors du verrou du propriétaire.
func (b *Bus[T]) Handlers() []func(T) {
	out := make([]func(T), 0, len(b.subs))
	for _, s := range b.subs {
		out = append(out, s.fn)
	}
	return out
}

// Len retourne le nombre d'abonnés.
func (b *Bus[T]) Len() int {
	return len(b.subs)
}
