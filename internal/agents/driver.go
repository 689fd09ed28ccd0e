package agents

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/dyike/ValueArena/consts"
	"github.com/rs/zerolog"
)

// DefaultMaxTurns is also the ceiling WithMaxTurns clamps to.
const DefaultMaxTurns = 10

// ToolDispatcher is the research gateway as seen by the driver.
type ToolDispatcher interface {
	Infos(ctx context.Context) ([]*schema.ToolInfo, error)
	Dispatch(ctx context.Context, name, argsJSON string) string
}

// Request describes one agent's conversation.
type Request struct {
	AgentID  string
	Model    string
	Messages []*schema.Message
	Tools    ToolDispatcher
	Budget   *Budget
}

// Transcript is what a conversation produced. Payload is "{}" whenever the
// driver gave up without a final answer.
type Transcript struct {
	Payload   string
	Outcome   string
	Turns     int
	ToolCalls int
	Spent     float64
	Messages  []*schema.Message
	Err       error
}

type Driver struct {
	chatModel Completer
	maxTurns  int
	maxTokens int
	log       zerolog.Logger
}

type DriverOption func(*Driver)

func WithMaxTurns(n int) DriverOption {
	return func(d *Driver) {
		if n > DefaultMaxTurns {
			n = DefaultMaxTurns
		}
		if n > 0 {
			d.maxTurns = n
		}
	}
}

func WithMaxTokens(n int) DriverOption {
	return func(d *Driver) {
		if n > 0 {
			d.maxTokens = n
		}
	}
}

func WithLogger(log zerolog.Logger) DriverOption {
	return func(d *Driver) {
		d.log = log
	}
}

func NewDriver(chatModel Completer, opts ...DriverOption) *Driver {
	d := &Driver{
		chatModel: chatModel,
		maxTurns:  DefaultMaxTurns,
		maxTokens: 4000,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run drives the tool loop until the model answers without tool calls, the
// budget is spent, the model fails or maxTurns requests have been made.
func (d *Driver) Run(ctx context.Context, req Request) *Transcript {
	log := d.log.With().Str("agent", req.AgentID).Logger()
	modelID := req.Model
	if modelID == "" {
		modelID = req.AgentID
	}

	t := &Transcript{
		Payload:  consts.EmptyDecision,
		Messages: append([]*schema.Message(nil), req.Messages...),
	}
	log.Debug().Str("state", consts.State_Init).Str("model", modelID).Int("max_turns", d.maxTurns).Msg("conversation started")

	var infos []*schema.ToolInfo
	if req.Tools != nil {
		var err error
		if infos, err = req.Tools.Infos(ctx); err != nil {
			t.Outcome = consts.State_ModelError
			t.Err = fmt.Errorf("tool schema: %w", err)
			return t
		}
	}

	opts := []model.Option{
		model.WithModel(modelID),
		model.WithMaxTokens(d.maxTokens),
	}
	if len(infos) > 0 {
		opts = append(opts, model.WithTools(infos))
	}

	lastContent := ""
	for t.Turns < d.maxTurns {
		if req.Budget.Exhausted() {
			log.Warn().Float64("spent", req.Budget.Spent).Float64("cap", req.Budget.Cap).Msg("daily spend limit reached")
			t.Outcome = consts.State_BudgetExceeded
			t.Payload = consts.EmptyDecision
			return t
		}

		t.Turns++
		log.Debug().Str("state", consts.State_AwaitingModel).Int("turn", t.Turns).Msg("requesting model")
		resp, err := d.chatModel.Generate(ctx, t.Messages, opts...)
		if err != nil {
			log.Error().Err(err).Int("turn", t.Turns).Msg("model call failed")
			t.Outcome = consts.State_ModelError
			t.Payload = consts.EmptyDecision
			t.Err = err
			return t
		}
		if resp == nil {
			resp = schema.AssistantMessage("", nil)
		}

		cost := UsageCost(modelID, resp)
		req.Budget.Add(cost)
		t.Spent += cost

		if len(resp.ToolCalls) == 0 {
			t.Messages = append(t.Messages, resp)
			t.Outcome = consts.State_Done
			t.Payload = resp.Content
			log.Debug().Str("state", consts.State_Done).Int("turns", t.Turns).Int("tool_calls", t.ToolCalls).Float64("spent", t.Spent).Msg("conversation done")
			return t
		}

		if resp.Content != "" {
			lastContent = resp.Content
		}
		t.Messages = append(t.Messages, resp)
		for _, call := range resp.ToolCalls {
			t.ToolCalls++
			log.Debug().Str("state", consts.State_ToolDispatch).Str("tool", call.Function.Name).Str("args", call.Function.Arguments).Msg("tool call")
			result := d.dispatch(ctx, req.Tools, call)
			t.Messages = append(t.Messages, schema.ToolMessage(result, call.ID))
		}
	}

	log.Warn().Int("turns", t.Turns).Msg("turn limit reached")
	t.Outcome = consts.State_TurnLimit
	if lastContent != "" {
		t.Payload = lastContent
	}
	return t
}

func (d *Driver) dispatch(ctx context.Context, tools ToolDispatcher, call schema.ToolCall) string {
	if tools == nil {
		return fmt.Sprintf("Error: Tool %s not found.", call.Function.Name)
	}
	return tools.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
}
