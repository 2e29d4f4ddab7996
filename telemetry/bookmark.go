package telemetry

import (
	"fmt"
	"log/slog"
	"math"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFirstSpike  BookmarkType = "first_spike"
	BookmarkRateJump    BookmarkType = "rate_jump"
	BookmarkSilenced    BookmarkType = "silenced"
	BookmarkDivergence  BookmarkType = "divergence"
	BookmarkSteadyState BookmarkType = "steady_state"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `json:"type"`
	Tick        int64        `json:"tick"`
	Description string       `json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

const (
	steadyWindows   = 5   // quiet windows before steady_state fires
	steadyTolerance = 0.1 // mV drift allowed between quiet windows
	activeWindows   = 3   // active windows before silenced can fire
)

// BookmarkDetector detects notable moments in a run from window stats.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	seenSpike     bool
	activeStreak  int // consecutive windows with spikes
	steadyCount   int // consecutive quiet windows with flat mean voltage
	steadyReached bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if stats.Divergences > 0 {
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkDivergence,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d ticks rolled back after non-finite voltages", stats.Divergences),
		})
	}
	if b := bd.checkFirstSpike(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkRateJump(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkSilenced(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkSteadyState(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// last returns the previous window, or false before the first.
func (bd *BookmarkDetector) last() (WindowStats, bool) {
	if !bd.historyFull && bd.historyIdx == 0 {
		return WindowStats{}, false
	}
	return bd.history[(bd.historyIdx+bd.historySize-1)%bd.historySize], true
}

func (bd *BookmarkDetector) checkFirstSpike(stats WindowStats) *Bookmark {
	if bd.seenSpike || stats.Spikes == 0 {
		return nil
	}
	bd.seenSpike = true
	return &Bookmark{
		Type:        BookmarkFirstSpike,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("First spikes (%d) at %.4gs", stats.Spikes, stats.SimTimeSec),
	}
}

func (bd *BookmarkDetector) checkRateJump(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.SpikeRateHz
	}
	avg := total / float64(len(history))
	if avg == 0 {
		return nil
	}

	if stats.SpikeRateHz > avg*2.0 && stats.Spikes >= 3 {
		return &Bookmark{
			Type:        BookmarkRateJump,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Spike rate %.1f Hz is %.1fx average (%.1f Hz)", stats.SpikeRateHz, stats.SpikeRateHz/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkSilenced(stats WindowStats) *Bookmark {
	if stats.Spikes > 0 {
		bd.activeStreak++
		return nil
	}
	streak := bd.activeStreak
	bd.activeStreak = 0
	if streak < activeWindows {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkSilenced,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Spiking stopped after %d active windows", streak),
	}
}

func (bd *BookmarkDetector) checkSteadyState(stats WindowStats) *Bookmark {
	prev, ok := bd.last()
	if !ok || stats.Spikes > 0 || stats.Divergences > 0 ||
		math.Abs(stats.VoltageMean-prev.VoltageMean) > steadyTolerance {
		bd.steadyCount = 0
		bd.steadyReached = false
		return nil
	}

	bd.steadyCount++
	if bd.steadyCount == steadyWindows && !bd.steadyReached {
		bd.steadyReached = true
		return &Bookmark{
			Type:        BookmarkSteadyState,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Mean voltage settled at %.2f mV over %d quiet windows", stats.VoltageMean, steadyWindows),
		}
	}
	return nil
}
