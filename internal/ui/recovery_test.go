package ui

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type tickMsg struct{}

// mockModel is a test UI model
type mockModel struct {
	quitAfter   int32 // 0 = never quit
	panicOnView bool
	panicUpdate bool
	updateCount int32
	viewCount   int32
}

func tick() tea.Msg {
	time.Sleep(5 * time.Millisecond)
	return tickMsg{}
}

func (m *mockModel) Init() tea.Cmd {
	return tick
}

func (m *mockModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	n := atomic.AddInt32(&m.updateCount, 1)
	if m.panicUpdate {
		panic("update panic test")
	}
	if m.quitAfter > 0 && n >= m.quitAfter {
		return m, tea.Quit
	}
	return m, tick
}

func (m *mockModel) View() string {
	n := atomic.AddInt32(&m.viewCount, 1)
	if m.panicOnView && n > 3 {
		panic("view panic test")
	}
	return "Test UI"
}

func headless() []tea.ProgramOption {
	return []tea.ProgramOption{
		tea.WithoutSignalHandler(),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	}
}

func fastHandler(createUI func() (tea.Model, []tea.ProgramOption)) *RecoveryHandler {
	handler := NewRecoveryHandler(zap.NewNop(), createUI)
	handler.delays.InitialInterval = time.Millisecond
	handler.delays.MaxInterval = 5 * time.Millisecond
	handler.delays.Reset()
	return handler
}

func runWithTimeout(t *testing.T, ctx context.Context, handler *RecoveryHandler) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- handler.Run(ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		handler.Stop()
		t.Fatal("recovery handler did not return")
		return nil
	}
}

func TestRecoveryHandlerNormalExit(t *testing.T) {
	handler := fastHandler(func() (tea.Model, []tea.ProgramOption) {
		return &mockModel{quitAfter: 3}, headless()
	})

	err := runWithTimeout(t, context.Background(), handler)
	require.NoError(t, err)
	assert.Zero(t, handler.GetRestartCount())
}

func TestRecoveryHandlerRestartsAfterPanic(t *testing.T) {
	var created int32
	handler := fastHandler(func() (tea.Model, []tea.ProgramOption) {
		if atomic.AddInt32(&created, 1) == 1 {
			panic("constructor panic")
		}
		return &mockModel{quitAfter: 2}, headless()
	})

	err := runWithTimeout(t, context.Background(), handler)
	require.NoError(t, err)
	assert.Equal(t, 1, handler.GetRestartCount())
}

func TestRecoveryHandlerGivesUp(t *testing.T) {
	handler := fastHandler(func() (tea.Model, []tea.ProgramOption) {
		panic("always broken")
	})
	handler.maxRestarts = 2

	err := runWithTimeout(t, context.Background(), handler)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "always broken")
	assert.Equal(t, 3, handler.GetRestartCount())
}

func TestRecoveryHandlerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := fastHandler(func() (tea.Model, []tea.ProgramOption) {
		return &mockModel{}, headless()
	})

	time.AfterFunc(50*time.Millisecond, cancel)
	err := runWithTimeout(t, ctx, handler)
	assert.NoError(t, err)
	assert.Zero(t, handler.GetRestartCount())
}

func TestSafeUIWrapper(t *testing.T) {
	model := &mockModel{panicOnView: true}
	wrapper := NewSafeUIWrapper(model, zap.NewNop())

	assert.NotNil(t, wrapper.Init())

	next, cmd := wrapper.Update(tickMsg{})
	assert.Same(t, wrapper, next)
	assert.NotNil(t, cmd)

	assert.Equal(t, "Test UI", wrapper.View())

	model.viewCount = 10
	assert.Equal(t, "UI Error: View crashed. Press Ctrl+C to exit.", wrapper.View())
}

func TestSafeUIWrapperUpdatePanic(t *testing.T) {
	wrapper := NewSafeUIWrapper(&mockModel{panicUpdate: true}, nil)

	var next tea.Model
	var cmd tea.Cmd
	assert.NotPanics(t, func() { next, cmd = wrapper.Update(tickMsg{}) })
	assert.Same(t, wrapper, next)
	assert.Nil(t, cmd)
}
