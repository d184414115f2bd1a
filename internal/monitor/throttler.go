// internal/monitor/throttler.go
package monitor

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// UpdateThrottler limits how often each kind of update reaches the UI. Within
// the interval only the newest update of a kind is kept and sent on flush.
type UpdateThrottler struct {
	mu             sync.RWMutex
	updateInterval time.Duration
	lastUpdate     map[string]time.Time
	pending        map[string]tea.Msg
	outputCh       chan<- tea.Msg
	logger         *zap.Logger

	droppedUpdates uint64
	sentUpdates    uint64
}

// NewUpdateThrottler creates a throttler writing to outputCh.
func NewUpdateThrottler(updateInterval time.Duration, outputCh chan<- tea.Msg, logger *zap.Logger) *UpdateThrottler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpdateThrottler{
		updateInterval: updateInterval,
		lastUpdate:     make(map[string]time.Time),
		pending:        make(map[string]tea.Msg),
		outputCh:       outputCh,
		logger:         logger,
	}
}

// Send delivers msg now or keeps it as the pending update of kind.
func (t *UpdateThrottler) Send(kind string, msg tea.Msg) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if since := now.Sub(t.lastUpdate[kind]); since < t.updateInterval {
		t.pending[kind] = msg
		t.droppedUpdates++
		t.logger.Debug("Update throttled",
			zap.String("kind", kind),
			zap.Duration("since_last", since))
		return
	}

	select {
	case t.outputCh <- msg:
		t.lastUpdate[kind] = now
		t.sentUpdates++
		delete(t.pending, kind)
	default:
		// канал UI переполнен, оставляем последнее обновление
		t.pending[kind] = msg
		t.droppedUpdates++
		t.logger.Warn("UI channel full, update kept as pending", zap.String("kind", kind))
	}
}

// FlushPending sends every pending update whose interval has passed.
func (t *UpdateThrottler) FlushPending() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for kind, msg := range t.pending {
		if now.Sub(t.lastUpdate[kind]) < t.updateInterval {
			continue
		}
		select {
		case t.outputCh <- msg:
			t.lastUpdate[kind] = now
			t.sentUpdates++
			delete(t.pending, kind)
			t.logger.Debug("Pending update flushed", zap.String("kind", kind))
		default:
			return
		}
	}
}

// GetStats returns sent and throttled update counts.
func (t *UpdateThrottler) GetStats() (sent, dropped uint64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sentUpdates, t.droppedUpdates
}

// HasPending reports whether an update of kind waits for the next flush.
func (t *UpdateThrottler) HasPending(kind string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.pending[kind]
	return ok
}
