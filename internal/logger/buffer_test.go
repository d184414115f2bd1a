package logger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogBufferWraps(t *testing.T) {
	buffer := NewLogBuffer(3)
	for i := 0; i < 5; i++ {
		buffer.Add(LogEntry{Level: "INFO", Message: fmt.Sprintf("m%d", i)})
	}

	logs := buffer.GetRecentLogs(0)
	require.Len(t, logs, 3)
	assert.Equal(t, "m2", logs[0].Message)
	assert.Equal(t, "m4", logs[2].Message)

	logs = buffer.GetRecentLogs(2)
	require.Len(t, logs, 2)
	assert.Equal(t, "m3", logs[0].Message)
	assert.Equal(t, "m4", logs[1].Message)

	assert.Equal(t, uint64(5), buffer.Total())
}

func TestLogBufferPartial(t *testing.T) {
	buffer := NewLogBuffer(10)
	assert.Empty(t, buffer.GetRecentLogs(5))

	buffer.Add(LogEntry{Message: "a"})
	buffer.Add(LogEntry{Message: "b"})

	logs := buffer.GetRecentLogs(1)
	require.Len(t, logs, 1)
	assert.Equal(t, "b", logs[0].Message)
	assert.False(t, logs[0].Timestamp.IsZero())
}

func TestLogBufferConcurrentAccess(t *testing.T) {
	buffer := NewLogBuffer(100)

	var wg sync.WaitGroup
	numGoroutines := 10
	logsPerGoroutine := 100

	wg.Add(numGoroutines + 1)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				buffer.Add(LogEntry{Level: "INFO", Message: fmt.Sprintf("g%d i%d", id, j)})
			}
		}(i)
	}
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = buffer.GetRecentLogs(10)
		}
	}()
	wg.Wait()

	assert.Equal(t, uint64(numGoroutines*logsPerGoroutine), buffer.Total())
	assert.Len(t, buffer.GetRecentLogs(0), 100)
}

func TestBufferCoreCapturesEntries(t *testing.T) {
	buffer := NewLogBuffer(10)

	var seen []string
	buffer.OnAdd(func(e LogEntry) { seen = append(seen, e.Message) })

	log, err := New(&Config{}, NewBufferCore(buffer, zapcore.InfoLevel))
	require.NoError(t, err)

	log.WithComponent("monitor").Info("price updated", zap.String("price", "0.52"))
	log.Debug("dropped below level")
	log.WithTx("9xYz").Warn("tx pending")

	logs := buffer.GetRecentLogs(0)
	require.Len(t, logs, 2)
	assert.Equal(t, "INFO", logs[0].Level)
	assert.Equal(t, "price updated", logs[0].Message)
	assert.Equal(t, "monitor", logs[0].Fields["component"])
	assert.Equal(t, "0.52", logs[0].Fields["price"])
	assert.Equal(t, "WARN", logs[1].Level)
	assert.Equal(t, "9xYz", logs[1].Fields["tx_digest"])

	assert.Equal(t, []string{"price updated", "tx pending"}, seen)
}

func TestTrackPerformance(t *testing.T) {
	buffer := NewLogBuffer(10)
	log, err := New(&Config{Development: true}, NewBufferCore(buffer, zapcore.DebugLevel))
	require.NoError(t, err)

	end := log.TrackPerformance("refresh")
	end()

	logs := buffer.GetRecentLogs(0)
	require.Len(t, logs, 2)
	assert.Equal(t, "refresh", logs[1].Fields["operation"])
	assert.Contains(t, logs[1].Fields, "duration_ms")
	assert.Equal(t, logs[0].Fields["correlation_id"], logs[1].Fields["correlation_id"])
}
