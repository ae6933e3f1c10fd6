package navigator

import (
	"testing"

	"github.com/patrickprogramme/ecoute/pkg/model"
)

type recordCuer struct {
	cued []int
}

func (r *recordCuer) Cue(i int) bool {
	r.cued = append(r.cued, i)
	return true
}

func segments(n int) []model.Segment {
	out := make([]model.Segment, n)
	for i := range out {
		out[i] = model.Segment{Start: model.Seconds(i * 2), End: model.Seconds(i*2 + 1), Text: "s"}
	}
	return out
}

func TestNextPrevious(t *testing.T) {
	cuer := &recordCuer{}
	n := New(segments(3), cuer, nil)
	var changed []Changed
	n.OnSegmentChanged(func(c Changed) { changed = append(changed, c) })

	if n.Previous() {
		t.Fatalf("Previous at 0 should be a no-op")
	}
	if !n.Next() || !n.Next() {
		t.Fatalf("Next should move twice")
	}
	if n.Index() != 2 || n.HasNext() || !n.HasPrevious() {
		t.Fatalf("index=%d hasNext=%v hasPrev=%v", n.Index(), n.HasNext(), n.HasPrevious())
	}
	if !n.Previous() || n.Index() != 1 {
		t.Fatalf("Previous should go back to 1, index=%d", n.Index())
	}
	if len(changed) != 3 || changed[2].Index != 1 || changed[2].Previous != 2 {
		t.Fatalf("changed events = %+v", changed)
	}
	if want := []int{1, 2, 1}; len(cuer.cued) != len(want) {
		t.Fatalf("cued = %v; want %v", cuer.cued, want)
	}
}

func TestNextAtLastRaisesComplete(t *testing.T) {
	n := New(segments(2), nil, nil)
	changed, complete := 0, 0
	n.OnSegmentChanged(func(Changed) { changed++ })
	n.OnLessonComplete(func(Complete) { complete++ })

	n.Next()
	if changed != 1 {
		t.Fatalf("changed = %d; want 1", changed)
	}
	if n.Next() {
		t.Fatalf("Next at last index should report false")
	}
	if n.Index() != 1 {
		t.Fatalf("index = %d; want unchanged 1", n.Index())
	}
	if changed != 1 || complete != 1 || !n.Completed() {
		t.Fatalf("changed=%d complete=%d completed=%v", changed, complete, n.Completed())
	}

	// latched : pas de second Complete tant qu'on ne revient pas en arrière
	n.Next()
	if complete != 1 {
		t.Fatalf("complete = %d; want 1 (latched)", complete)
	}
	n.Previous()
	n.Next()
	n.Next()
	if complete != 2 {
		t.Fatalf("complete = %d; want 2 after going back", complete)
	}
}

func TestGuardVetoesNextOnly(t *testing.T) {
	n := New(segments(3), nil, nil)
	allow := false
	n.SetGuard(func() bool { return allow })

	if n.Next() || n.Index() != 0 {
		t.Fatalf("guard should veto Next")
	}
	if !n.Advance() || n.Index() != 1 {
		t.Fatalf("Advance ignores the guard, index=%d", n.Index())
	}
	allow = true
	if !n.Next() || n.Index() != 2 {
		t.Fatalf("Next allowed by guard, index=%d", n.Index())
	}
}

func TestSeekToAndReset(t *testing.T) {
	cuer := &recordCuer{}
	n := New(segments(4), cuer, nil)
	var last Changed
	count := 0
	n.OnSegmentChanged(func(c Changed) { last = c; count++ })

	if n.SeekTo(9) || n.SeekTo(-1) {
		t.Fatalf("out of range SeekTo should fail")
	}
	if !n.SeekTo(3) || last.Index != 3 {
		t.Fatalf("SeekTo(3): index=%d last=%+v", n.Index(), last)
	}
	if !n.SeekTo(3) || count != 1 {
		t.Fatalf("SeekTo current index should only re-cue, count=%d", count)
	}
	n.Reset()
	if n.Index() != 0 || last.Index != 0 || last.Previous != 3 || count != 2 {
		t.Fatalf("Reset: index=%d last=%+v count=%d", n.Index(), last, count)
	}
	if seg, ok := n.Current(); !ok || seg.Start != 0 {
		t.Fatalf("Current after reset = %+v,%v", seg, ok)
	}
}

func TestFollowSkipsGuardAndCue(t *testing.T) {
	cuer := &recordCuer{}
	n := New(segments(3), cuer, nil)
	n.SetGuard(func() bool { return false })
	var changed []Changed
	n.OnSegmentChanged(func(c Changed) { changed = append(changed, c) })

	if !n.Follow(2) {
		t.Fatalf("Follow(2) should move despite the guard")
	}
	if n.Index() != 2 || len(cuer.cued) != 0 {
		t.Fatalf("index=%d cued=%v; want 2 without cue", n.Index(), cuer.cued)
	}
	if len(changed) != 1 || changed[0].Index != 2 || changed[0].Previous != 0 {
		t.Fatalf("changed = %+v", changed)
	}
	if n.Follow(2) || n.Follow(3) || n.Follow(-1) {
		t.Fatalf("Follow to the current or an invalid index should be a no-op")
	}
}

func TestEmptyList(t *testing.T) {
	n := New(nil, nil, nil)
	if n.Next() || n.Previous() || n.SeekTo(0) {
		t.Fatalf("operations on an empty list should be no-ops")
	}
	if _, ok := n.Current(); ok {
		t.Fatalf("Current on empty list should be !ok")
	}
	n.Reset()
}
