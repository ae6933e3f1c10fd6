package event

import "testing"

func TestBusEmitOrderAndUnsubscribe(t *testing.T) {
	var b Bus[int]
	var got []string

	unA := b.Subscribe(func(v int) { got = append(got, "a") })
	b.Subscribe(func(v int) { got = append(got, "b") })

	b.Emit(1)
	unA()
	unA() // idempotent
	b.Emit(2)

	want := []string{"a", "b", "b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if b.Len() != 1 {
		t.Fatalf("Len = %d; want 1", b.Len())
	}
}

func TestBusUnsubscribeDuringEmit(t *testing.T) {
	var b Bus[string]
	calls := 0
	var un func()
	un = b.Subscribe(func(string) {
		calls++
		un()
	})
	b.Subscribe(func(string) { calls++ })

	b.Emit("x")
	if calls != 2 {
		t.Fatalf("calls = %d; want 2 (copy of subscribers taken before emit)", calls)
	}
	b.Emit("y")
	if calls != 3 {
		t.Fatalf("calls = %d; want 3", calls)
	}
}

func TestBusNilSubscriber(t *testing.T) {
	var b Bus[int]
	un := b.Subscribe(nil)
	un()
	b.Emit(1)
	if b.Len() != 0 {
		t.Fatalf("nil subscriber should not be registered")
	}
}

func TestBusHandlersSnapshot(t *testing.T) {
	var b Bus[string]
	var got []string
	b.Subscribe(func(v string) { got = append(got, v) })

	hs := b.Handlers()
	b.Subscribe(func(v string) { got = append(got, "late:"+v) })
	for _, h := range hs {
		h("x")
	}
	if len(got) != 1 || got[0] != "x" {
		t.Fatalf("got %v; snapshot should not see later subscribers", got)
	}
}
