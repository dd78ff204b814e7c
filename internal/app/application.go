package app

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Rorical/RoriChat/internal/backend"
	"github.com/Rorical/RoriChat/internal/config"
	"github.com/Rorical/RoriChat/internal/core"
	"github.com/Rorical/RoriChat/internal/dispatcher"
	"github.com/Rorical/RoriChat/internal/eventbus"
	"github.com/Rorical/RoriChat/internal/logging"
	"github.com/Rorical/RoriChat/internal/models"
	"github.com/Rorical/RoriChat/internal/session"
	"github.com/Rorical/RoriChat/internal/storage"
	"github.com/Rorical/RoriChat/ui/components"
)

// Application manages the complete application lifecycle
type Application struct {
	config     *config.Config
	logger     *zap.Logger
	store      *storage.KV
	eventBus   *eventbus.EventBus
	dispatcher *dispatcher.EventDispatcher
	service    *core.ChatService
	model      *AppModel
}

type AppModel struct {
	appModel   models.AppModel
	dispatcher *dispatcher.EventDispatcher
	markdown   *components.Markdown
}

// Options tweak a run without touching the saved config.
type Options struct {
	Role string
}

func NewApplication(opts Options) (*Application, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.Role != "" {
		if err := cfg.SetRole(opts.Role); err != nil {
			return nil, err
		}
	}

	logPath, err := config.LogPath()
	if err != nil {
		return nil, fmt.Errorf("resolve log path: %w", err)
	}
	logger := logging.FromEnv(logPath)

	statePath, err := config.StatePath()
	if err != nil {
		return nil, fmt.Errorf("resolve state path: %w", err)
	}
	store, err := storage.Open(statePath)
	if err != nil {
		return nil, err
	}

	eb := eventbus.NewEventBus()
	eb.SetErrorCallback(func(e eventbus.EventBusError) {
		logger.Warn("event bus", zap.String("operation", e.Operation), zap.Error(e.Err))
	})
	disp := dispatcher.NewEventDispatcher(eb)

	client := backend.NewClient(cfg.GetBaseURL(), cfg.GetRequestTimeout(), logger.Named("backend"))
	chatService := core.NewChatService(core.Options{
		Profile:        cfg.ActiveProfile,
		BaseURL:        cfg.GetBaseURL(),
		Role:           cfg.GetRole(),
		Roles:          config.Roles,
		TypingInterval: cfg.GetTypingInterval(),
		Logger:         logger,
	}, client, session.NewTracker(store), eb)

	logger.Info("starting",
		zap.String("profile", cfg.ActiveProfile),
		zap.String("backend", cfg.GetBaseURL()),
		zap.String("role", cfg.GetRole()))

	return &Application{
		config:     cfg,
		logger:     logger,
		store:      store,
		eventBus:   eb,
		dispatcher: disp,
		service:    chatService,
		model: &AppModel{
			appModel:   models.NewAppModel(cfg.IsValid()),
			dispatcher: disp,
			markdown:   components.NewMarkdown(80),
		},
	}, nil
}

func (app *Application) Start() error {
	app.service.Start()

	p := tea.NewProgram(app.model, tea.WithAltScreen())
	_, err := p.Run()

	return err
}

func (app *Application) Stop() {
	app.service.Stop()
	app.dispatcher.Stop()
	app.eventBus.Close()
	if err := app.store.Close(); err != nil {
		app.logger.Warn("close state store", zap.Error(err))
	}
	_ = app.logger.Sync()
}
