// Package agent is the minimal runtime the platform plugins plug into:
// a context chain, an executor registry, and an explicit trigger channel
// scoped to the runtime's running state.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finchbot/finch/llm"
)

// ContextItem is one entry in the runtime's context chain.
type ContextItem struct {
	ID        string    `json:"id"`
	PluginID  string    `json:"pluginId"`
	Type      string    `json:"type"`
	Action    string    `json:"action"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserInput builds a user-input context item for a plugin.
func NewUserInput(pluginID, content string) ContextItem {
	return ContextItem{
		ID:        pluginID + "-" + uuid.NewString(),
		PluginID:  pluginID,
		Type:      "user_input",
		Action:    "receive_message",
		Content:   content,
		Timestamp: time.Now(),
	}
}

// PlatformContext carries the outward-facing half of an event: where the
// response goes once the runtime has produced one.
type PlatformContext struct {
	Platform        string
	ResponseHandler func(response string) error
}

// Event is one unit of work flowing through the runtime.
type Event struct {
	Initial  ContextItem
	Platform *PlatformContext
}

// Result is the structured outcome of an executor invocation.
type Result struct {
	Success bool
	Message string
	Error   string
}

// Executor is a named capability a plugin exposes to the runtime.
type Executor struct {
	Name        string
	Description string
	Execute     func(ctx context.Context, rt *Runtime, ev *Event) Result
}

// Trigger is a long-running event source a plugin starts with the runtime.
type Trigger struct {
	ID    string
	Start func(ctx context.Context, rt *Runtime)
}

// Plugin bundles the executors and triggers one integration contributes.
type Plugin interface {
	ID() string
	Executors() []Executor
	Triggers() []Trigger
}

// Runtime owns the context chain, the executor registry, and the tweet
// trigger channel. The channel's lifetime is scoped to Start/Stop.
type Runtime struct {
	provider llm.Provider
	log      *slog.Logger

	plugins   []Plugin
	executors map[string]Executor
	routes    map[string]string // plugin id → default executor name

	tweetEvents chan struct{}
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	mu    sync.Mutex
	chain []ContextItem
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeLogger sets the runtime logger.
func WithRuntimeLogger(log *slog.Logger) RuntimeOption {
	return func(r *Runtime) { r.log = log }
}

// NewRuntime creates a runtime around a model provider.
func NewRuntime(provider llm.Provider, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		provider:    provider,
		log:         slog.Default(),
		executors:   make(map[string]Executor),
		routes:      make(map[string]string),
		tweetEvents: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a plugin's executors and triggers. The plugin's first
// executor becomes its default event route.
func (r *Runtime) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	for i, ex := range p.Executors() {
		r.executors[ex.Name] = ex
		if i == 0 {
			r.routes[p.ID()] = ex.Name
		}
	}
}

// Start launches all registered triggers. Stop cancels them and waits.
func (r *Runtime) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	for _, p := range r.plugins {
		for _, tr := range p.Triggers() {
			r.log.Info("starting trigger", slog.String("plugin", p.ID()), slog.String("trigger", tr.ID))
			r.wg.Add(1)
			go func(tr Trigger) {
				defer r.wg.Done()
				tr.Start(ctx, r)
			}(tr)
		}
	}
}

// Stop cancels all triggers and waits for them to drain.
func (r *Runtime) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// TweetEvents is the runtime-owned trigger channel. Emitters use
// EmitTweet; triggers receive from this channel while running.
func (r *Runtime) TweetEvents() <-chan struct{} {
	return r.tweetEvents
}

// EmitTweet signals the tweet trigger. A signal already pending is
// enough; extra ones are dropped rather than queued.
func (r *Runtime) EmitTweet() {
	select {
	case r.tweetEvents <- struct{}{}:
	default:
	}
}

// Context returns a snapshot of the context chain.
func (r *Runtime) Context() []ContextItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain := make([]ContextItem, len(r.chain))
	copy(chain, r.chain)
	return chain
}

// AppendContext adds an item to the context chain.
func (r *Runtime) AppendContext(item ContextItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chain = append(r.chain, item)
}

// CreateEvent appends the initial context item and routes the event to
// the originating plugin's default executor. An executor failure is
// returned to the caller; it halts this event only.
func (r *Runtime) CreateEvent(ctx context.Context, initial ContextItem, platform *PlatformContext) error {
	r.AppendContext(initial)

	name, ok := r.routes[initial.PluginID]
	if !ok {
		return fmt.Errorf("no executor registered for plugin %s", initial.PluginID)
	}
	ex := r.executors[name]

	result := ex.Execute(ctx, r, &Event{Initial: initial, Platform: platform})
	if !result.Success {
		return fmt.Errorf("executor %s: %s", name, result.Error)
	}
	if result.Message != "" {
		r.AppendContext(ContextItem{
			ID:        initial.PluginID + "-" + uuid.NewString(),
			PluginID:  initial.PluginID,
			Type:      "response",
			Action:    name,
			Content:   result.Message,
			Timestamp: time.Now(),
		})
	}
	return nil
}

// GetObject asks the model for a JSON object matching out's shape.
func (r *Runtime) GetObject(ctx context.Context, out any, prompt string, temperature float32) error {
	data, err := r.provider.GenerateObject(ctx, prompt, temperature)
	if err != nil {
		return fmt.Errorf("generate object: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}
