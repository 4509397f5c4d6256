package follower

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"ledgercore/core"
	"ledgercore/store/wal"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func openTestWAL(t *testing.T) *wal.Store {
	t.Helper()
	s, err := wal.Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("wal.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIntersectPositionsAfterMatch(t *testing.T) {
	w := openTestWAL(t)
	p1 := core.AtBlock(1, core.BlockHash{1})
	p2 := core.AtBlock(2, core.BlockHash{2})
	p3 := core.AtBlock(3, core.BlockHash{3})
	if err := w.AppendForward([]core.ChainPoint{p1, p2, p3}, [][]byte{[]byte("a"), []byte("b"), []byte("c")}); err != nil {
		t.Fatalf("AppendForward: %v", err)
	}

	f, matched, ok, err := Intersect(w, []core.ChainPoint{p2})
	if err != nil || !ok {
		t.Fatalf("Intersect: ok=%v err=%v", ok, err)
	}
	if !matched.Equal(p2) {
		t.Fatalf("matched = %+v, want %+v", matched, p2)
	}

	frame, err := f.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if frame.Kind != FrameApply || !frame.Point.Equal(p3) {
		t.Fatalf("frame = %+v, want Apply at %+v", frame, p3)
	}
}

func TestIntersectNotFound(t *testing.T) {
	w := openTestWAL(t)
	_, _, ok, err := Intersect(w, []core.ChainPoint{core.AtBlock(9, core.BlockHash{9})})
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	if ok {
		t.Fatalf("expected Intersect to report no match against an empty WAL")
	}
}

func TestAwaitReturnsFalseWhenNothingReady(t *testing.T) {
	w := openTestWAL(t)
	p1 := core.AtBlock(1, core.BlockHash{1})
	if err := w.AppendForward([]core.ChainPoint{p1}, [][]byte{[]byte("a")}); err != nil {
		t.Fatalf("AppendForward: %v", err)
	}

	f := positionedFollower(t, w, p1)

	frame, ok, err := f.Await()
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if ok {
		t.Fatalf("expected no frame ready immediately after positioning at the tip, got %+v", frame)
	}
	if frame.Kind != FrameAwait {
		t.Fatalf("expected an Await frame, got %+v", frame)
	}
}

func positionedFollower(t *testing.T, w *wal.Store, after core.ChainPoint) *Follower {
	t.Helper()
	f, _, ok, err := Intersect(w, []core.ChainPoint{after})
	if err != nil || !ok {
		t.Fatalf("Intersect: ok=%v err=%v", ok, err)
	}
	return f
}

func TestNextUnblocksOnTipChange(t *testing.T) {
	w := openTestWAL(t)
	p1 := core.AtBlock(1, core.BlockHash{1})
	if err := w.AppendForward([]core.ChainPoint{p1}, [][]byte{[]byte("a")}); err != nil {
		t.Fatalf("AppendForward: %v", err)
	}
	f := positionedFollower(t, w, p1)

	p2 := core.AtBlock(2, core.BlockHash{2})
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = w.AppendForward([]core.ChainPoint{p2}, [][]byte{[]byte("b")})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	frame, err := f.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if frame.Kind != FrameApply || !frame.Point.Equal(p2) {
		t.Fatalf("frame = %+v, want Apply at %+v", frame, p2)
	}
}
