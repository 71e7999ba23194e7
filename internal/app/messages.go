package app

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"ragdash/internal/dashboard"
	"ragdash/internal/mutation"
	"ragdash/internal/query"
	"ragdash/internal/store"
	"ragdash/internal/types"
)

type eventMsg struct {
	msg tea.Msg
}

type snapshotMsg struct {
	snap query.Snapshot
}

type noticeMsg struct {
	notification dashboard.Notification
}

type mutationMsg struct {
	name   string
	status mutation.Status
	err    error
}

type toastExpiredMsg struct {
	seq int
}

type chatDoneMsg struct {
	resp *types.ChatResponse
	err  error
}

type retrieveDoneMsg struct {
	resp *types.RetrievalResponse
	err  error
}

type jobStartedMsg struct {
	resp *types.IngestionJobResponse
	err  error
}

type jobProgressMsg struct {
	progress *types.TaskProgress
}

type evaluationStartedMsg struct {
	resp *types.EvaluationStartResponse
	err  error
}

type evaluationProgressMsg struct {
	evaluation *types.EvaluationStatusResponse
}

type appStateMsg struct {
	state *types.AppState
	err   error
}

type appStateSavedMsg struct {
	err error
}

// bridge queues events raised on cache, poller and mutation goroutines until
// the bubbletea loop picks them up. send never blocks, so a listener is never
// held up by a busy Update.
type bridge struct {
	done    <-chan struct{}
	ready   chan struct{}
	mu      sync.Mutex
	pending []tea.Msg
}

func newBridge(ctx context.Context) *bridge {
	return &bridge{done: ctx.Done(), ready: make(chan struct{}, 1)}
}

func (b *bridge) send(msg tea.Msg) {
	b.mu.Lock()
	b.pending = append(b.pending, msg)
	b.mu.Unlock()
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

func (b *bridge) Notify(n dashboard.Notification) {
	b.send(noticeMsg{notification: n})
}

// next blocks until an event is queued or the context ends.
func (b *bridge) next() (tea.Msg, bool) {
	for {
		b.mu.Lock()
		if len(b.pending) > 0 {
			msg := b.pending[0]
			b.pending = b.pending[1:]
			b.mu.Unlock()
			return msg, true
		}
		b.mu.Unlock()
		select {
		case <-b.ready:
		case <-b.done:
			return nil, false
		}
	}
}

func (b *bridge) listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := b.next()
		if !ok {
			return nil
		}
		return eventMsg{msg: msg}
	}
}

func loadAppStateCmd(ctx context.Context, s store.AppStateStore) tea.Cmd {
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		state, err := s.Load(ctx)
		return appStateMsg{state: state, err: err}
	}
}

func saveAppStateCmd(ctx context.Context, s store.AppStateStore, state types.AppState) tea.Cmd {
	if s == nil {
		return nil
	}
	state.CompareEvaluationIDs = append([]string(nil), state.CompareEvaluationIDs...)
	return func() tea.Msg {
		return appStateSavedMsg{err: s.Save(ctx, &state)}
	}
}
