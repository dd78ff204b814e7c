package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Rorical/RoriChat/internal/backend"
	"github.com/Rorical/RoriChat/internal/eventbus"
	"github.com/Rorical/RoriChat/internal/typing"
)

var (
	ErrBusy        = errors.New("a reply is still in progress")
	ErrEmptyInput  = errors.New("message is empty")
	ErrEmptyPrompt = errors.New("prompt is empty")
	ErrStopped     = errors.New("chat service stopped")
)

// User-facing texts.
const (
	ErrorReplyText    = "Something went wrong, please try again later."
	EmptyPromptText   = "Prompt cannot be empty."
	SaveFailedText    = "Failed to save prompt, please try again later."
	PromptUpdatedText = "Prompt updated; it takes effect in the next reply."
	NewChatText       = "Started a new conversation."
)

// Backend is the HTTP contract the service consumes.
type Backend interface {
	GetPrompt(ctx context.Context) (string, error)
	SetPrompt(ctx context.Context, prompt string) error
	Chat(ctx context.Context, req backend.ChatRequest) (backend.ChatResponse, error)
}

// Sessions tracks the conversation identifier.
type Sessions interface {
	Ensure() (string, error)
	Current() string
	Adopt(id string) error
	Reset() (string, error)
}

const bootstrapTimeout = 5 * time.Second

type SaveOutcome int

const (
	SaveRejected SaveOutcome = iota
	SaveUnchanged
	SaveApplied
	SaveFailed
)

type Options struct {
	Profile        string
	BaseURL        string
	Role           string
	Roles          []string // roles CycleRole walks through
	TypingInterval time.Duration
	Scheduler      typing.Scheduler
	Logger         *zap.Logger
}

type ChatService struct {
	backend  Backend
	sessions Sessions
	state    *ChatState
	eventBus *eventbus.EventBus
	animator *typing.Animator
	roles    []string
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	lifeMu  sync.Mutex
	stopped bool
	wg      sync.WaitGroup
	pushMu  sync.Mutex
}

// NewChatService creates a ChatService. A nil event bus is allowed; state
// is then only observable through the accessors.
func NewChatService(opts Options, be Backend, sessions Sessions, eb *eventbus.EventBus) *ChatService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	animator := typing.NewAnimator(opts.TypingInterval)
	if opts.Scheduler != nil {
		animator.Scheduler = opts.Scheduler
	}

	ctx, cancel := context.WithCancel(context.Background())
	service := &ChatService{
		backend:  be,
		sessions: sessions,
		state:    NewChatState(opts.Role),
		eventBus: eb,
		animator: animator,
		roles:    opts.Roles,
		logger:   logger.Named("core"),
		ctx:      ctx,
		cancel:   cancel,
	}

	service.addWelcomeMessages(opts)
	return service
}

// Start bootstraps the session and then runs the event loop, both in the
// background. UI events queue on the bus until bootstrap is done.
func (cs *ChatService) Start() {
	cs.pushStateToUI()
	cs.spawn(func() {
		ctx, cancel := context.WithTimeout(cs.ctx, bootstrapTimeout)
		if err := cs.Bootstrap(ctx); err != nil {
			cs.logger.Warn("bootstrap incomplete", zap.Error(err))
		}
		cancel()

		if cs.eventBus != nil {
			cs.eventLoop()
		}
	})
}

// Stop cancels in-flight requests and animations and waits for them.
func (cs *ChatService) Stop() {
	cs.lifeMu.Lock()
	cs.stopped = true
	cs.lifeMu.Unlock()

	cs.cancel()
	cs.wg.Wait()
}

func (cs *ChatService) spawn(fn func()) bool {
	cs.lifeMu.Lock()
	defer cs.lifeMu.Unlock()
	if cs.stopped {
		return false
	}
	cs.wg.Add(1)
	go func() {
		defer cs.wg.Done()
		fn()
	}()
	return true
}

func (cs *ChatService) eventLoop() {
	for {
		select {
		case <-cs.ctx.Done():
			return
		case event, ok := <-cs.eventBus.UIToCore():
			if !ok {
				return
			}
			cs.handleUIEvent(event)
		}
	}
}

func (cs *ChatService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.SendMessageEvent:
		if err := cs.Send(e.Message); err != nil {
			cs.logger.Debug("message not sent", zap.Error(err))
		}
	case eventbus.OpenPromptDialogEvent:
		cs.OpenPromptDialog()
	case eventbus.ClosePromptDialogEvent:
		cs.ClosePromptDialog()
	case eventbus.DismissAlertEvent:
		cs.state.DismissAlert()
		cs.pushStateToUI()
	case eventbus.SavePromptEvent:
		if _, err := cs.SavePrompt(cs.ctx, e.Prompt); err != nil {
			cs.logger.Info("prompt not saved", zap.Error(err))
		}
	case eventbus.CycleRoleEvent:
		cs.CycleRole()
	case eventbus.NewConversationEvent:
		if err := cs.NewConversation(); err != nil {
			cs.logger.Debug("new conversation refused", zap.Error(err))
		}
	}
}

// Bootstrap makes sure a session id exists and caches the backend prompt.
func (cs *ChatService) Bootstrap(ctx context.Context) error {
	var errs []error
	if _, err := cs.sessions.Ensure(); err != nil {
		errs = append(errs, err)
	}

	prompt, err := cs.backend.GetPrompt(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("fetch prompt: %w", err))
	} else {
		cs.state.SetPrompt(prompt)
	}

	cs.pushStateToUI()
	return errors.Join(errs...)
}

// Send starts an exchange for text. Blank input returns ErrEmptyInput and
// a running exchange returns ErrBusy; neither changes any state.
func (cs *ChatService) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	cs.lifeMu.Lock()
	defer cs.lifeMu.Unlock()
	if cs.stopped {
		return ErrStopped
	}

	id, err := cs.state.BeginExchange(text)
	if err != nil {
		return err
	}
	cs.pushStateToUI()

	cs.wg.Add(1)
	go func() {
		defer cs.wg.Done()
		cs.runExchange(id, text)
	}()
	return nil
}

func (cs *ChatService) runExchange(id int, text string) {
	logger := cs.logger.With(zap.Int("message_id", id))

	sessionID, err := cs.sessions.Ensure()
	if err != nil {
		// The backend assigns one when we send none.
		logger.Warn("no session id", zap.Error(err))
	}

	req := backend.ChatRequest{
		Message:      text,
		Role:         cs.state.Role(),
		SystemPrompt: cs.state.Prompt(),
		SessionID:    sessionID,
	}

	if err := cs.state.MarkAwaitingResponse(); err != nil {
		logger.Error("phase", zap.Error(err))
	}
	cs.pushStateToUI()

	resp, err := cs.backend.Chat(cs.ctx, req)
	if err != nil {
		if cs.ctx.Err() != nil {
			cs.state.AbortExchange(id)
			return
		}
		logger.Warn("chat request failed", zap.Error(err))
		cs.fail(id, err)
		return
	}

	if err := cs.sessions.Adopt(resp.SessionID); err != nil {
		logger.Warn("adopt session id", zap.Error(err))
	}

	reply := resp.Reply
	if reply == "" {
		reply = ErrorReplyText
	}

	if err := cs.state.BeginTyping(id); err != nil {
		logger.Error("phase", zap.Error(err))
	}
	cs.pushStateToUI()

	err = cs.animator.Run(cs.ctx, reply, func(frame string) {
		if err := cs.state.SetReplyText(id, frame); err != nil {
			logger.Error("reveal frame", zap.Error(err))
		}
		cs.pushStateToUI()
	})
	if err != nil {
		cs.state.AbortExchange(id)
		return
	}

	if err := cs.state.FinishTyping(); err != nil {
		logger.Error("phase", zap.Error(err))
	}
	logger.Debug("reply shown", zap.Int("runes", len([]rune(reply))))
	cs.pushStateToUI()
}

func (cs *ChatService) fail(id int, err error) {
	if ferr := cs.state.FailExchange(id, ErrorReplyText, err); ferr != nil {
		cs.logger.Error("phase", zap.Error(ferr))
	}
	cs.pushStateToUI()
	if rerr := cs.state.Recover(); rerr != nil {
		cs.logger.Error("phase", zap.Error(rerr))
	}
	cs.pushStateToUI()
}

func (cs *ChatService) OpenPromptDialog() {
	cs.state.OpenDialog()
	cs.pushStateToUI()
}

func (cs *ChatService) ClosePromptDialog() {
	cs.state.CloseDialog()
	cs.pushStateToUI()
}

// SavePrompt validates text and pushes it to the backend when it changed.
func (cs *ChatService) SavePrompt(ctx context.Context, text string) (SaveOutcome, error) {
	text = strings.TrimSpace(text)
	defer cs.pushStateToUI()

	if text == "" {
		cs.state.AlertDialog(text, EmptyPromptText)
		return SaveRejected, ErrEmptyPrompt
	}
	if text == cs.state.Prompt() {
		cs.state.CloseDialog()
		return SaveUnchanged, nil
	}

	if err := cs.backend.SetPrompt(ctx, text); err != nil {
		cs.logger.Warn("set prompt failed", zap.Error(err))
		cs.state.AlertDialog(text, SaveFailedText)
		return SaveFailed, err
	}

	cs.state.ApplyPrompt(text, PromptUpdatedText)
	cs.logger.Info("prompt updated", zap.Int("length", len(text)))
	return SaveApplied, nil
}

// CycleRole selects the next known role.
func (cs *ChatService) CycleRole() string {
	if len(cs.roles) == 0 {
		return cs.state.Role()
	}
	next := cs.roles[0]
	if i := slices.Index(cs.roles, cs.state.Role()); i >= 0 {
		next = cs.roles[(i+1)%len(cs.roles)]
	}
	cs.state.SetRole(next)
	cs.pushStateToUI()
	return next
}

func (cs *ChatService) SetRole(role string) {
	cs.state.SetRole(role)
	cs.pushStateToUI()
}

// NewConversation rotates the session id and clears the transcript.
func (cs *ChatService) NewConversation() error {
	if cs.state.IsBusy() {
		return ErrBusy
	}
	if _, err := cs.sessions.Reset(); err != nil {
		return err
	}
	if err := cs.state.NewConversation(); err != nil {
		return err
	}
	cs.state.AddSystemMessage(NewChatText)
	cs.pushStateToUI()
	return nil
}

func (cs *ChatService) State() *ChatState {
	return cs.state
}

func (cs *ChatService) pushStateToUI() {
	if cs.eventBus == nil {
		return
	}

	cs.pushMu.Lock()
	defer cs.pushMu.Unlock()

	snap := cs.state.snapshot()
	if err := cs.eventBus.SendToUI(eventbus.StateUpdateEvent{
		Messages:  snap.messages,
		Phase:     snap.phase,
		Role:      snap.role,
		SessionID: cs.sessions.Current(),
		Dialog:    snap.dialog,
		Error:     snap.err,
	}); err != nil {
		cs.logger.Debug("state not delivered to UI", zap.Error(err))
	}
}

func (cs *ChatService) addWelcomeMessages(opts Options) {
	cs.state.AddProgramMessage("-- RORICHAT --")
	if opts.BaseURL != "" {
		cs.state.AddProgramMessage(fmt.Sprintf("Profile: %s  Backend: %s [OK]", opts.Profile, opts.BaseURL))
		cs.state.AddProgramMessage("Ready to chat! Type your message and press Enter")
	} else {
		cs.state.AddProgramMessage(fmt.Sprintf("Profile: %s [NOT CONFIGURED]", opts.Profile))
		cs.state.AddProgramMessage("• Run: rorichat profile add <name>")
		cs.state.AddProgramMessage("• Or edit: ~/.rorichat/config.json")
	}
	cs.state.AddProgramMessage("Controls: Ctrl+P prompt · Ctrl+R role · Ctrl+N new chat · Ctrl+C exit")
	cs.state.AddProgramMessage("")
}
