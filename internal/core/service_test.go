package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Rorical/RoriChat/internal/backend"
	"github.com/Rorical/RoriChat/internal/eventbus"
	"github.com/Rorical/RoriChat/internal/models"
	"github.com/Rorical/RoriChat/internal/session"
	"github.com/Rorical/RoriChat/internal/transcript"
)

type fakeBackend struct {
	mu        sync.Mutex
	prompt    string
	promptErr error
	setErr    error
	reply     backend.ChatResponse
	chatErr   error
	hold      chan struct{}
	chatCalls []backend.ChatRequest
	setCalls  []string
}

func (f *fakeBackend) GetPrompt(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompt, f.promptErr
}

func (f *fakeBackend) SetPrompt(ctx context.Context, prompt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, prompt)
	return f.setErr
}

func (f *fakeBackend) Chat(ctx context.Context, req backend.ChatRequest) (backend.ChatResponse, error) {
	f.mu.Lock()
	f.chatCalls = append(f.chatCalls, req)
	hold, reply, err := f.hold, f.reply, f.chatErr
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return backend.ChatResponse{}, ctx.Err()
		}
	}
	return reply, err
}

func (f *fakeBackend) calls() []backend.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.ChatRequest(nil), f.chatCalls...)
}

func (f *fakeBackend) setPromptCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.setCalls...)
}

// instantScheduler fires every tick immediately.
type instantScheduler struct{}

func (instantScheduler) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

// manualScheduler hands each tick channel to the test.
type manualScheduler struct {
	ticks chan chan time.Time
}

func (m *manualScheduler) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	m.ticks <- ch
	return ch
}

func newService(t *testing.T, be *fakeBackend, opts Options) (*ChatService, *session.MemoryStore) {
	t.Helper()
	if opts.Scheduler == nil {
		opts.Scheduler = instantScheduler{}
	}
	store := session.NewMemoryStore()
	cs := NewChatService(opts, be, session.NewTracker(store), nil)
	t.Cleanup(cs.Stop)
	return cs, store
}

func waitIdle(t *testing.T, cs *ChatService) {
	t.Helper()
	require.Eventually(t, func() bool {
		return cs.State().Phase() == models.Idle
	}, 2*time.Second, time.Millisecond)
}

func lastMessage(cs *ChatService) transcript.Message {
	msgs := cs.State().Transcript()
	return msgs[len(msgs)-1]
}

func TestSendAppendsOneUserAndOneAssistantMessage(t *testing.T) {
	be := &fakeBackend{reply: backend.ChatResponse{Reply: "Hello"}}
	cs, _ := newService(t, be, Options{})

	require.NoError(t, cs.Send("  hi there  "))
	waitIdle(t, cs)

	msgs := cs.State().Transcript()
	require.Len(t, msgs, 2)
	assert.Equal(t, transcript.User, msgs[0].Speaker)
	assert.Equal(t, "hi there", msgs[0].Text)
	assert.Equal(t, transcript.Assistant, msgs[1].Speaker)
	assert.Equal(t, "Hello", msgs[1].Text)
	assert.False(t, msgs[1].Typing)
	require.Len(t, be.calls(), 1)
	assert.Equal(t, "hi there", be.calls()[0].Message)
}

func TestSendBlankInputIsIgnored(t *testing.T) {
	be := &fakeBackend{}
	cs, _ := newService(t, be, Options{})

	assert.ErrorIs(t, cs.Send("   \n\t"), ErrEmptyInput)
	assert.Empty(t, cs.State().Transcript())
	assert.Equal(t, models.Idle, cs.State().Phase())
	assert.Empty(t, be.calls())
}

func TestSendWhileBusyHasNoEffect(t *testing.T) {
	hold := make(chan struct{})
	be := &fakeBackend{reply: backend.ChatResponse{Reply: "ok"}, hold: hold}
	cs, _ := newService(t, be, Options{})

	require.NoError(t, cs.Send("first"))
	require.Eventually(t, func() bool { return len(be.calls()) == 1 }, time.Second, time.Millisecond)

	before := cs.State().Transcript()
	assert.ErrorIs(t, cs.Send("second"), ErrBusy)
	assert.Equal(t, before, cs.State().Transcript())
	assert.Len(t, be.calls(), 1)

	placeholder := lastMessage(cs)
	assert.True(t, placeholder.Typing)
	assert.Equal(t, models.AwaitingResponse, cs.State().Phase())

	close(hold)
	waitIdle(t, cs)
	assert.Len(t, cs.State().Transcript(), 2)
}

func TestTypingRevealsOneCharacterPerTick(t *testing.T) {
	sched := &manualScheduler{ticks: make(chan chan time.Time)}
	be := &fakeBackend{reply: backend.ChatResponse{Reply: "Hello"}}
	cs, _ := newService(t, be, Options{Scheduler: sched})

	require.NoError(t, cs.Send("hi"))

	var seen []string
	for i := 0; i < 5; i++ {
		var tick chan time.Time
		select {
		case tick = <-sched.ticks:
		case <-time.After(2 * time.Second):
			t.Fatalf("no tick %d", i)
		}
		msg := lastMessage(cs)
		seen = append(seen, msg.Text)
		assert.False(t, msg.Typing)
		assert.Equal(t, models.Typing, cs.State().Phase(), "busy until the last frame")
		tick <- time.Time{}
	}

	waitIdle(t, cs)
	seen = append(seen, lastMessage(cs).Text)
	assert.Equal(t, []string{"", "H", "He", "Hel", "Hell", "Hello"}, seen)
}

func TestChatFailureShowsErrorWithoutAnimation(t *testing.T) {
	sched := &manualScheduler{ticks: make(chan chan time.Time)}
	be := &fakeBackend{chatErr: &backend.StatusError{Path: "/chat", Code: 500}}
	cs, _ := newService(t, be, Options{Scheduler: sched})

	require.NoError(t, cs.Send("hi"))
	waitIdle(t, cs)

	msg := lastMessage(cs)
	assert.Equal(t, ErrorReplyText, msg.Text)
	assert.False(t, msg.Typing)
	assert.Error(t, cs.State().GetLastError())

	select {
	case <-sched.ticks:
		t.Fatal("animation ran on the error path")
	default:
	}

	// The next send is accepted again.
	be.mu.Lock()
	be.chatErr = nil
	be.reply = backend.ChatResponse{Reply: "x"}
	be.mu.Unlock()
	require.NoError(t, cs.Send("again"))
	(<-sched.ticks) <- time.Time{}
	waitIdle(t, cs)
	assert.Nil(t, cs.State().GetLastError())
}

func TestEmptyReplyFallsBackToErrorText(t *testing.T) {
	be := &fakeBackend{reply: backend.ChatResponse{}}
	cs, _ := newService(t, be, Options{})

	require.NoError(t, cs.Send("hi"))
	waitIdle(t, cs)

	assert.Equal(t, ErrorReplyText, lastMessage(cs).Text)
	assert.Nil(t, cs.State().GetLastError())
}

func TestSessionIDGeneratedReusedAndAdopted(t *testing.T) {
	be := &fakeBackend{reply: backend.ChatResponse{Reply: "a"}}
	cs, store := newService(t, be, Options{})

	require.NoError(t, cs.Send("one"))
	waitIdle(t, cs)
	require.NoError(t, cs.Send("two"))
	waitIdle(t, cs)

	calls := be.calls()
	require.Len(t, calls, 2)
	assert.NotEmpty(t, calls[0].SessionID)
	assert.Equal(t, calls[0].SessionID, calls[1].SessionID)

	persisted, ok, _ := store.Get(session.Key)
	require.True(t, ok)
	assert.Equal(t, calls[0].SessionID, persisted)

	be.mu.Lock()
	be.reply = backend.ChatResponse{Reply: "b", SessionID: "from-server"}
	be.mu.Unlock()
	require.NoError(t, cs.Send("three"))
	waitIdle(t, cs)
	require.NoError(t, cs.Send("four"))
	waitIdle(t, cs)

	calls = be.calls()
	assert.Equal(t, calls[0].SessionID, calls[2].SessionID)
	assert.Equal(t, "from-server", calls[3].SessionID)
}

func TestRequestCarriesRoleAndPrompt(t *testing.T) {
	be := &fakeBackend{prompt: "be brief", reply: backend.ChatResponse{Reply: "k"}}
	cs, _ := newService(t, be, Options{Role: "coder"})

	require.NoError(t, cs.Bootstrap(context.Background()))
	require.NoError(t, cs.Send("hi"))
	waitIdle(t, cs)

	req := be.calls()[0]
	assert.Equal(t, "coder", req.Role)
	assert.Equal(t, "be brief", req.SystemPrompt)
}

func TestBootstrapToleratesPromptFailure(t *testing.T) {
	be := &fakeBackend{promptErr: errors.New("down")}
	cs, store := newService(t, be, Options{})

	err := cs.Bootstrap(context.Background())
	assert.ErrorContains(t, err, "fetch prompt")
	assert.Empty(t, cs.State().Prompt())

	_, ok, _ := store.Get(session.Key)
	assert.True(t, ok, "session id is still created")
}

func TestSavePrompt(t *testing.T) {
	t.Run("unchanged closes without a call", func(t *testing.T) {
		be := &fakeBackend{prompt: "same"}
		cs, _ := newService(t, be, Options{})
		require.NoError(t, cs.Bootstrap(context.Background()))
		cs.OpenPromptDialog()

		outcome, err := cs.SavePrompt(context.Background(), " same ")
		require.NoError(t, err)
		assert.Equal(t, SaveUnchanged, outcome)
		assert.False(t, cs.State().Dialog().Open)
		assert.Empty(t, be.setPromptCalls())
	})

	t.Run("empty alerts without a call", func(t *testing.T) {
		be := &fakeBackend{prompt: "p"}
		cs, _ := newService(t, be, Options{})
		cs.OpenPromptDialog()

		outcome, err := cs.SavePrompt(context.Background(), "   ")
		assert.ErrorIs(t, err, ErrEmptyPrompt)
		assert.Equal(t, SaveRejected, outcome)
		dialog := cs.State().Dialog()
		assert.True(t, dialog.Open)
		assert.Equal(t, EmptyPromptText, dialog.Alert)
		assert.Empty(t, be.setPromptCalls())
	})

	t.Run("changed is pushed and confirmed", func(t *testing.T) {
		be := &fakeBackend{prompt: "old"}
		cs, _ := newService(t, be, Options{})
		require.NoError(t, cs.Bootstrap(context.Background()))
		cs.OpenPromptDialog()
		assert.Equal(t, "old", cs.State().Dialog().Draft)

		outcome, err := cs.SavePrompt(context.Background(), "new")
		require.NoError(t, err)
		assert.Equal(t, SaveApplied, outcome)
		assert.Equal(t, []string{"new"}, be.setPromptCalls())
		assert.Equal(t, "new", cs.State().Prompt())
		assert.False(t, cs.State().Dialog().Open)

		msg := lastMessage(cs)
		assert.Equal(t, transcript.System, msg.Speaker)
		assert.Equal(t, PromptUpdatedText, msg.Text)
	})

	t.Run("backend failure keeps dialog open", func(t *testing.T) {
		be := &fakeBackend{prompt: "old", setErr: &backend.StatusError{Path: "/set-prompt", Code: 503}}
		cs, _ := newService(t, be, Options{})
		require.NoError(t, cs.Bootstrap(context.Background()))
		cs.OpenPromptDialog()

		outcome, err := cs.SavePrompt(context.Background(), "new")
		assert.Error(t, err)
		assert.Equal(t, SaveFailed, outcome)
		assert.Equal(t, "old", cs.State().Prompt())
		dialog := cs.State().Dialog()
		assert.True(t, dialog.Open)
		assert.Equal(t, "new", dialog.Draft)
		assert.Equal(t, SaveFailedText, dialog.Alert)

		cs.State().DismissAlert()
		assert.Empty(t, cs.State().Dialog().Alert)
	})
}

func TestCycleRole(t *testing.T) {
	cs, _ := newService(t, &fakeBackend{}, Options{Role: "coder", Roles: []string{"general", "coder", "pm"}})

	assert.Equal(t, "pm", cs.CycleRole())
	assert.Equal(t, "general", cs.CycleRole())

	cs.SetRole("unknown")
	assert.Equal(t, "general", cs.CycleRole())
}

func TestNewConversation(t *testing.T) {
	hold := make(chan struct{})
	be := &fakeBackend{reply: backend.ChatResponse{Reply: "a"}, hold: hold}
	cs, store := newService(t, be, Options{})

	require.NoError(t, cs.Send("hi"))
	assert.ErrorIs(t, cs.NewConversation(), ErrBusy)
	close(hold)
	waitIdle(t, cs)

	before, _, _ := store.Get(session.Key)
	require.NoError(t, cs.NewConversation())
	after, _, _ := store.Get(session.Key)
	assert.NotEqual(t, before, after)

	msgs := cs.State().Transcript()
	require.Len(t, msgs, 1)
	assert.Equal(t, NewChatText, msgs[0].Text)
}

func TestEventLoopPushesSnapshots(t *testing.T) {
	defer goleak.VerifyNone(t)

	eb := eventbus.NewEventBus()
	be := &fakeBackend{prompt: "p", reply: backend.ChatResponse{Reply: "Hi"}}
	cs := NewChatService(Options{Scheduler: instantScheduler{}, Role: "general"}, be, session.NewTracker(session.NewMemoryStore()), eb)
	cs.Start()

	require.NoError(t, eb.SendToCore(eventbus.SendMessageEvent{Message: "hello"}))

	var last eventbus.StateUpdateEvent
	require.Eventually(t, func() bool {
		select {
		case ev := <-eb.CoreToUI():
			last = ev.(eventbus.StateUpdateEvent)
		default:
		}
		n := len(last.Messages)
		return last.Phase == models.Idle && n > 0 && last.Messages[n-1].Content == "Hi"
	}, 2*time.Second, time.Millisecond)

	assert.Equal(t, "general", last.Role)
	assert.NotEmpty(t, last.SessionID)

	cs.Stop()
	eb.Close()
}

func TestStopCancelsInFlightExchange(t *testing.T) {
	defer goleak.VerifyNone(t)

	be := &fakeBackend{hold: make(chan struct{})}
	cs := NewChatService(Options{}, be, session.NewTracker(session.NewMemoryStore()), nil)

	require.NoError(t, cs.Send("hi"))
	require.Eventually(t, func() bool { return len(be.calls()) == 1 }, time.Second, time.Millisecond)

	cs.Stop()
	assert.Equal(t, models.Idle, cs.State().Phase())
	assert.False(t, lastMessage(cs).Typing)
	assert.ErrorIs(t, cs.Send("late"), ErrStopped)
}
