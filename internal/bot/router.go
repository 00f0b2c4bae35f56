package bot

import (
	"context"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/koi-bot/internal/bot/handlers"
	"github.com/Proton-105/koi-bot/internal/transport"
)

// Router dispatches commands, callbacks, and state-aware updates.
type Router struct {
	mu          sync.RWMutex
	commands    map[string]handlers.Handler
	callbacks   *CallbackDispatcher
	dispatcher  *Dispatcher
	middlewares []handlers.Middleware
	transport   transport.Transport
	sequencer   *Sequencer
	log         *slog.Logger
}

// NewRouter builds a Router with an empty command registry. With a nil
// sequencer every update is handled inline.
func NewRouter(tr transport.Transport, callbacks *CallbackDispatcher, dispatcher *Dispatcher, sequencer *Sequencer, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:    make(map[string]handlers.Handler),
		callbacks:   callbacks,
		dispatcher:  dispatcher,
		middlewares: make([]handlers.Middleware, 0),
		transport:   tr,
		sequencer:   sequencer,
		log:         log,
	}
}

// RegisterCommand registers a handler for a bot command.
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd] = h
}

// RegisterCommands registers every entry of table.
func (r *Router) RegisterCommands(table map[string]handlers.Handler) {
	for cmd, h := range table {
		r.RegisterCommand(cmd, h)
	}
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// Route is the telebot entry point. It converts the update and queues it on
// the chat's lane, so it never blocks on handler work.
func (r *Router) Route(c telebot.Context) error {
	ev, ok := NewEvent(c)
	if !ok {
		return nil
	}

	ctx := context.Background()
	if ev.ChatID == 0 {
		// inline-mode callbacks carry no message to act on
		r.answer(ctx, ev)
		return nil
	}

	if r.sequencer == nil {
		return r.Handle(ctx, ev)
	}

	if !r.sequencer.Submit(ev.ChatID, func() { _ = r.Handle(ctx, ev) }) {
		r.log.Warn("update dropped during shutdown", slog.Int("update_id", ev.UpdateID), slog.Int64("chat_id", ev.ChatID))
	}
	return nil
}

// Handle runs ev through the middleware chain and its handler. Callback
// events are answered exactly once, after the chain returns.
func (r *Router) Handle(ctx context.Context, ev *handlers.Event) error {
	err := r.applyMiddlewares(r.route)(ctx, ev)
	if ev.Kind == handlers.KindCallback {
		r.answer(ctx, ev)
	}
	return err
}

func (r *Router) route(ctx context.Context, ev *handlers.Event) error {
	switch ev.Kind {
	case handlers.KindCallback:
		if r.callbacks == nil {
			return nil
		}
		return r.callbacks.Dispatch(ctx, ev)
	case handlers.KindCommand:
		if h := r.getCommandHandler(ev.Command); h != nil {
			return h(ctx, ev)
		}
		r.log.DebugContext(ctx, "unknown command", slog.String("command", ev.Command))
	}

	if r.dispatcher == nil {
		return nil
	}
	return r.dispatcher.Dispatch(ctx, ev)
}

func (r *Router) answer(ctx context.Context, ev *handlers.Event) {
	if r.transport == nil {
		return
	}
	if err := r.transport.Answer(ctx, ev.CallbackID, ev.Notice); err != nil {
		r.log.WarnContext(ctx, "failed to answer callback",
			slog.Int64("chat_id", ev.ChatID),
			slog.Any("error", err),
		)
	}
}

func (r *Router) getCommandHandler(cmd string) handlers.Handler {
	r.mu.RLock()
	handler := r.commands[cmd]
	r.mu.RUnlock()
	return handler
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	r.mu.RLock()
	middlewares := make([]handlers.Middleware, len(r.middlewares))
	copy(middlewares, r.middlewares)
	r.mu.RUnlock()

	return handlers.Chain(h, middlewares...)
}
