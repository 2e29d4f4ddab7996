package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_FirstSpike(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if got := bd.Check(WindowStats{WindowEndTick: 100}); hasBookmark(got, BookmarkFirstSpike) {
		t.Error("first_spike before any spike")
	}
	got := bd.Check(WindowStats{WindowEndTick: 200, Spikes: 2})
	if !hasBookmark(got, BookmarkFirstSpike) {
		t.Error("expected first_spike bookmark")
	}
	if got := bd.Check(WindowStats{WindowEndTick: 300, Spikes: 1}); hasBookmark(got, BookmarkFirstSpike) {
		t.Error("first_spike fired twice")
	}
}

func TestBookmarkDetector_RateJump(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{
			WindowEndTick: int64(i * 1000),
			Spikes:        1,
			SpikeRateHz:   10,
		})
	}

	bookmarks := bd.Check(WindowStats{
		WindowEndTick: 5000,
		Spikes:        4,
		SpikeRateHz:   40,
	})
	if !hasBookmark(bookmarks, BookmarkRateJump) {
		t.Error("expected rate_jump bookmark")
	}
}

func TestBookmarkDetector_Silenced(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 3; i++ {
		bd.Check(WindowStats{WindowEndTick: int64(i * 1000), Spikes: 2, SpikeRateHz: 20})
	}
	bookmarks := bd.Check(WindowStats{WindowEndTick: 3000})
	if !hasBookmark(bookmarks, BookmarkSilenced) {
		t.Error("expected silenced bookmark")
	}

	// a single active window is not enough
	bd.Check(WindowStats{WindowEndTick: 4000, Spikes: 1})
	if got := bd.Check(WindowStats{WindowEndTick: 5000}); hasBookmark(got, BookmarkSilenced) {
		t.Error("silenced after one active window")
	}
}

func TestBookmarkDetector_Divergence(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bookmarks := bd.Check(WindowStats{WindowEndTick: 100, Divergences: 1})
	if !hasBookmark(bookmarks, BookmarkDivergence) {
		t.Error("expected divergence bookmark")
	}
}

func TestBookmarkDetector_SteadyState(t *testing.T) {
	bd := NewBookmarkDetector(10)

	fired := 0
	for i := 0; i < 12; i++ {
		bookmarks := bd.Check(WindowStats{
			WindowEndTick: int64(i * 1000),
			VoltageMean:   -70 + 0.01*float64(i),
		})
		if hasBookmark(bookmarks, BookmarkSteadyState) {
			fired++
			if i != steadyWindows {
				t.Errorf("steady_state at window %d, want %d", i, steadyWindows)
			}
		}
	}
	if fired != 1 {
		t.Errorf("steady_state fired %d times, want 1", fired)
	}

	// a spike resets the streak
	bd.Check(WindowStats{WindowEndTick: 13000, Spikes: 1, VoltageMean: -70})
	for i := 0; i < steadyWindows; i++ {
		bookmarks := bd.Check(WindowStats{WindowEndTick: int64(14000 + i*1000), VoltageMean: -70})
		if hasBookmark(bookmarks, BookmarkSteadyState) != (i == steadyWindows-1) {
			t.Errorf("after reset, window %d: steady_state = %v", i, !(i == steadyWindows-1))
		}
	}
}
