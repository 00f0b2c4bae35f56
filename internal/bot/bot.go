package bot

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/koi-bot/internal/bot/handlers"
	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/koi-bot/internal/errors"
	"github.com/Proton-105/koi-bot/internal/i18n"
	"github.com/Proton-105/koi-bot/internal/idempotency"
	"github.com/Proton-105/koi-bot/internal/middleware"
	"github.com/Proton-105/koi-bot/internal/pruner"
	"github.com/Proton-105/koi-bot/internal/ratelimit"
	"github.com/Proton-105/koi-bot/internal/state"
	"github.com/Proton-105/koi-bot/internal/transport"
	"github.com/Proton-105/koi-bot/pkg/config"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Deps are the collaborators the bot is assembled from. Limiter and
// Idempotency are optional.
type Deps struct {
	Config      config.Config
	Log         *slog.Logger
	FSM         state.StateMachine
	Quotes      handlers.QuoteSource
	Limiter     ratelimit.Limiter
	Idempotency idempotency.Manager
	ErrHandler  *apperrors.Handler
	Texts       i18n.Translator
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot   *telebot.Bot
	router    *Router
	sequencer *Sequencer
	log       *slog.Logger
}

// New builds a telegram bot instance configured according to the application settings.
func New(deps Deps) (*Bot, error) {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	cfg := deps.Config.Bot
	settings := telebot.Settings{
		Token:       cfg.Token,
		Synchronous: true,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	}

	if cfg.Mode == ModeWebhook {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	return NewWithTelebot(tb, deps)
}

// NewWithTelebot assembles the bot around an existing telebot instance.
func NewWithTelebot(tb *telebot.Bot, deps Deps) (*Bot, error) {
	if tb == nil {
		return nil, fmt.Errorf("telebot instance is nil")
	}

	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	sequencer := NewSequencer(log)
	router, err := NewPipeline(transport.NewTelebot(tb, log), sequencer, deps)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		telebot:   tb,
		router:    router,
		sequencer: sequencer,
		log:       log,
	}
	b.registerTelebotHandlers()

	return b, nil
}

// NewPipeline wires handlers, dispatchers and middlewares into a Router
// that talks to the chat through tr.
func NewPipeline(tr transport.Transport, sequencer *Sequencer, deps Deps) (*Router, error) {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	if deps.FSM == nil {
		return nil, fmt.Errorf("state machine is required")
	}

	texts := deps.Texts
	if texts == nil {
		texts = i18n.MustLoad("en").Translator("en")
	}

	errHandler := deps.ErrHandler
	if errHandler == nil {
		errHandler = apperrors.NewHandler(log, deps.Config.Sentry.Enabled)
	}

	prunerCfg := deps.Config.Pruner
	order, err := pruner.ParseOrder(prunerCfg.Order)
	if err != nil {
		return nil, err
	}

	menus := handlers.NewMenus(handlers.Deps{
		FSM:       deps.FSM,
		Transport: tr,
		Keyboard:  keyboard.NewBuilder(log),
		Pruner:    pruner.New(tr, log, pruner.WithOrder(order), pruner.WithDelay(prunerCfg.Delay)),
		Quotes:    deps.Quotes,
		Texts:     texts,
		Windows:   handlers.Windows{Command: prunerCfg.CommandWindow, Callback: prunerCfg.CallbackWindow},
		Log:       log,
	})

	callbacks := NewCallbackDispatcher(handlers.NewCallbacks(menus, deps.FSM, log), log)

	dialogue := handlers.NewDialogue(menus, deps.FSM, log)
	dispatcher := NewDispatcher(deps.FSM, log)
	dispatcher.RegisterStateHandler(state.StateAwaitingAddress, dialogue.CaptureAddress)
	dispatcher.RegisterStateHandler(state.StateAwaitingTokenName, dialogue.CaptureAddress)

	router := NewRouter(tr, callbacks, dispatcher, sequencer, log)
	router.Use(RecoveryMiddleware(log, errHandler, tr, texts))
	router.Use(CorrelationMiddleware())
	router.Use(ErrorHandlingMiddleware(errHandler, tr, texts, log))
	router.Use(LoggingMiddleware(log))
	router.Use(middleware.Metrics)
	if deps.Limiter != nil && deps.Config.RateLimit.Enabled {
		rules := ratelimit.NewRules(deps.Config.RateLimit)
		router.Use(middleware.NewRateLimitMiddleware(deps.Limiter, rules, log).Handle)
	}
	router.Use(middleware.Idempotency(deps.Idempotency, deps.Config.Idempotency.TTL, log))

	router.RegisterCommands(handlers.NewCommands(menus, deps.FSM, log).Table())

	return router, nil
}

// Start runs the telegram bot event loop. It blocks until Stop is called.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.log.Info("telegram bot started", slog.String("username", b.telebot.Me.Username))
		b.telebot.Start()
	}
}

// Stop stops polling and waits for queued updates to finish.
func (b *Bot) Stop(ctx context.Context) error {
	if b.telebot == nil {
		return nil
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()

	return b.sequencer.Close(ctx)
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// Router exposes the update router.
func (b *Bot) Router() *Router {
	return b.router
}

func (b *Bot) registerTelebotHandlers() {
	for _, endpoint := range []string{
		telebot.OnText,
		telebot.OnCallback,
		telebot.OnMedia,
		telebot.OnContact,
		telebot.OnLocation,
		telebot.OnVenue,
		telebot.OnDice,
		telebot.OnPoll,
	} {
		b.telebot.Handle(endpoint, b.router.Route)
	}
}
