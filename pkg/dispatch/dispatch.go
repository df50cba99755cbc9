// Package dispatch asks a language model to pick one tool for a prompt. It
// never runs the tool.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/llm"
)

// SystemInstruction is sent with every dispatch.
const SystemInstruction = `You route requests to tools.
Call exactly one of the provided tools when it clearly applies to the request.
If no tool applies, reply with a short plain-text message and call no tool.`

// Selection is the tool the model chose.
type Selection struct {
	ToolName  string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// Config configures a Dispatcher.
type Config struct {
	Client   llm.Client
	Registry *Registry

	// Model overrides the client's default model.
	Model string

	Logger *zap.Logger
}

// Dispatcher binds registry tools to a model call per request.
type Dispatcher struct {
	client   llm.Client
	registry *Registry
	model    string
	logger   *zap.Logger
}

// New creates a Dispatcher. A nil Registry uses DefaultRegistry.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Client == nil {
		return nil, errors.New("llm client is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Dispatcher{
		client:   cfg.Client,
		registry: cfg.Registry,
		model:    cfg.Model,
		logger:   cfg.Logger,
	}, nil
}

// Registry returns the dispatcher's tools.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch selects a registry tool for prompt. A nil Selection with a nil
// error means no tool applies.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt string) (*Selection, error) {
	return d.dispatch(ctx, prompt, d.registry)
}

// DispatchWith selects from tools for this call only.
func (d *Dispatcher) DispatchWith(ctx context.Context, prompt string, tools []ToolSpec) (*Selection, error) {
	reg, err := NewRegistry(tools...)
	if err != nil {
		return nil, &DispatchError{Err: err}
	}
	return d.dispatch(ctx, prompt, reg)
}

func (d *Dispatcher) dispatch(ctx context.Context, prompt string, reg *Registry) (*Selection, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, &DispatchError{Err: errors.New("prompt is empty")}
	}

	resp, err := d.client.Chat(ctx, &llm.ChatRequest{
		Model:    d.model,
		System:   SystemInstruction,
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, prompt)},
		Tools:    reg.definitions(),
	})
	if err != nil {
		return nil, &DispatchError{Err: err}
	}

	uses := resp.Message.ToolUses()
	if len(uses) == 0 {
		d.logger.Debug("no tool selected", zap.String("provider", d.client.Name()))
		return nil, nil
	}

	use := uses[0]
	if _, ok := reg.Lookup(use.ToolName); !ok {
		return nil, &DispatchError{Tool: use.ToolName, Err: fmt.Errorf("%w: %q", ErrUnknownTool, use.ToolName)}
	}

	args := use.ToolInput
	if args == nil {
		args = map[string]any{}
	}

	d.logger.Debug("tool selected",
		zap.String("provider", d.client.Name()),
		zap.String("tool", use.ToolName),
		zap.Int("candidates", len(uses)),
	)
	return &Selection{ToolName: use.ToolName, Arguments: args}, nil
}
