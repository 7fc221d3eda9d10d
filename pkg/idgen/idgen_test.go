package idgen

import (
	"sync"
	"testing"
	"time"
)

func TestSequenceStartsAtSeedAndIsUnique(t *testing.T) {
	t.Parallel()
	g := New(100)
	if got := g.NextSequence(); got != 100 {
		t.Fatalf("first id = %d, want 100", got)
	}

	const workers, per = 9, 500
	var (
		mu   sync.Mutex
		seen = map[int64]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, per)
			for j := 0; j < per; j++ {
				local = append(local, g.NextSequence())
			}
			mu.Lock()
			for _, id := range local {
				if seen[id] {
					t.Errorf("duplicate id %d", id)
				}
				seen[id] = true
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != workers*per {
		t.Fatalf("got %d ids, want %d", len(seen), workers*per)
	}
	if got := g.NextSequence(); got != 101+workers*per {
		t.Fatalf("next id = %d, want %d", got, 101+workers*per)
	}
}

func TestSetSeedResets(t *testing.T) {
	t.Parallel()
	g := New(1)
	g.NextSequence()
	g.NextSequence()
	g.SetSeed(7)
	if got := g.NextSequence(); got != 7 {
		t.Fatalf("after reseed got %d, want 7", got)
	}
}

func TestTimestampComposition(t *testing.T) {
	t.Parallel()
	fixed := time.Unix(1_700_000_000, 0)
	g := &Generator{now: func() time.Time { return fixed }}

	first := g.NextTimestamp()
	if first != 1_700_000_000*100+1 {
		t.Fatalf("first timestamp id = %d", first)
	}
	for i := 0; i < 200; i++ {
		id := g.NextTimestamp()
		if id/100 != fixed.Unix() {
			t.Fatalf("id %d does not encode the epoch second", id)
		}
		if sub := id % 100; sub < 1 || sub >= 99 {
			t.Fatalf("sub counter %d out of [1,99)", sub)
		}
	}
}

// Timestamp ids repeat once more than 98 are drawn within the same second.
func TestTimestampCollidesPastRate(t *testing.T) {
	t.Parallel()
	fixed := time.Unix(1_700_000_000, 0)
	g := &Generator{now: func() time.Time { return fixed }}

	seen := map[int64]bool{}
	collided := -1
	for i := 0; i < 120; i++ {
		id := g.NextTimestamp()
		if seen[id] {
			collided = i
			break
		}
		seen[id] = true
	}
	if collided != 98 {
		t.Fatalf("first collision at call %d, want 98", collided)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Mode{"": Sequence, "Sequence": Sequence, "timestamp": Timestamp, " ts ": Timestamp} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("uuid"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestNextDispatchesByMode(t *testing.T) {
	t.Parallel()
	g := New(5)
	if got := g.Next(Sequence); got != 5 {
		t.Fatalf("Next(Sequence) = %d", got)
	}
	if got := g.Next(Timestamp); got < time.Now().Add(-time.Minute).Unix()*100 {
		t.Fatalf("Next(Timestamp) = %d looks wrong", got)
	}
}
