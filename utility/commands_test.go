package utility

import (
	"sync"
	"testing"
	"time"
)

func TestSeen(t *testing.T) {
	s := NewSeen()

	if _, ok := s.Last("alice"); ok {
		t.Fatal("unseen user reported as seen")
	}

	first := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.Touch("Alice", first)

	got, ok := s.Last("ALICE")
	if !ok || !got.Equal(first) {
		t.Fatalf("Last = %v %v, want %v true", got, ok, first)
	}

	later := first.Add(time.Hour)
	s.Touch("alice", later)
	got, _ = s.Last("alice")
	if !got.Equal(later) {
		t.Fatalf("Last = %v, want %v", got, later)
	}
}

func TestSeenConcurrentTouch(t *testing.T) {
	s := NewSeen()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Touch("alice", time.Now())
		}()
		go func() {
			defer wg.Done()
			s.Last("alice")
		}()
	}
	wg.Wait()
	if _, ok := s.Last("alice"); !ok {
		t.Fatal("alice should be seen")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{59 * time.Second, "59s"},
		{90 * time.Second, "1m 30s"},
		{59*time.Minute + 59*time.Second, "59m 59s"},
		{time.Hour + 5*time.Minute, "1h 5m"},
		{23*time.Hour + 59*time.Minute, "23h 59m"},
		{24 * time.Hour, "1d 0h"},
		{49*time.Hour + 30*time.Minute, "2d 1h"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
