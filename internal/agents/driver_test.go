package agents

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/dyike/ValueArena/consts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedModel struct {
	replies []*schema.Message
	err     error
	calls   int
	models  []string
	inputs  [][]*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.calls++
	m.inputs = append(m.inputs, input)
	o := model.GetCommonOptions(&model.Options{}, opts...)
	if o.Model != nil {
		m.models = append(m.models, *o.Model)
	}
	if m.err != nil {
		return nil, m.err
	}
	if len(m.replies) == 0 {
		return toolCallReply("get_price", `{"ticker":"KO"}`, 1000), nil
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r, nil
}

type fakeTools struct {
	dispatched []string
}

func (f *fakeTools) Infos(context.Context) ([]*schema.ToolInfo, error) {
	return []*schema.ToolInfo{{Name: "get_price", Desc: "price"}}, nil
}

func (f *fakeTools) Dispatch(_ context.Context, name, args string) string {
	f.dispatched = append(f.dispatched, name)
	if name != "get_price" {
		return "Error: Tool " + name + " not found."
	}
	return `{"ticker":"KO","price":60}`
}

func withUsage(msg *schema.Message, tokens int) *schema.Message {
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{
		PromptTokens:     tokens / 2,
		CompletionTokens: tokens - tokens/2,
		TotalTokens:      tokens,
	}}
	return msg
}

func toolCallReply(name, args string, tokens int) *schema.Message {
	msg := schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "call-" + name,
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
	return withUsage(msg, tokens)
}

func startMessages() []*schema.Message {
	return []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("go")}
}

func TestDriverDone(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{
		toolCallReply("get_price", `{"ticker":"KO"}`, 1000),
		withUsage(schema.AssistantMessage(`{"trades":[]}`, nil), 1000),
	}}
	tools := &fakeTools{}
	budget := NewBudget(2)

	tr := NewDriver(m).Run(context.Background(), Request{
		AgentID:  "openai/gpt-5.1",
		Messages: startMessages(),
		Tools:    tools,
		Budget:   budget,
	})

	assert.Equal(t, consts.State_Done, tr.Outcome)
	assert.Equal(t, `{"trades":[]}`, tr.Payload)
	assert.Equal(t, 2, tr.Turns)
	assert.Equal(t, 1, tr.ToolCalls)
	assert.Equal(t, []string{"get_price"}, tools.dispatched)
	assert.Equal(t, []string{"openai/gpt-5.1", "openai/gpt-5.1"}, m.models)
	assert.InDelta(t, 0.12, budget.Spent, 1e-9)
	assert.InDelta(t, 0.12, tr.Spent, 1e-9)

	// sys, user, assistant(tool call), tool, assistant(final)
	require.Len(t, tr.Messages, 5)
	assert.Equal(t, schema.Tool, tr.Messages[3].Role)
	assert.Equal(t, "call-get_price", tr.Messages[3].ToolCallID)
	require.Len(t, m.inputs[1], 4)
}

func TestDriverLogsConversationStates(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	m := &scriptedModel{replies: []*schema.Message{
		toolCallReply("get_price", `{"ticker":"KO"}`, 100),
		schema.AssistantMessage(`{"trades":[]}`, nil),
	}}

	tr := NewDriver(m, WithLogger(log)).Run(context.Background(), Request{
		AgentID:  "x",
		Messages: startMessages(),
		Tools:    &fakeTools{},
		Budget:   NewBudget(100),
	})
	require.Equal(t, consts.State_Done, tr.Outcome)

	out := buf.String()
	for _, state := range []string{consts.State_Init, consts.State_AwaitingModel, consts.State_ToolDispatch, consts.State_Done} {
		assert.Contains(t, out, `"state":"`+state+`"`)
	}
}

func TestDriverTurnLimit(t *testing.T) {
	m := &scriptedModel{}
	tr := NewDriver(m).Run(context.Background(), Request{
		AgentID:  "unknown/model",
		Messages: startMessages(),
		Tools:    &fakeTools{},
		Budget:   NewBudget(100),
	})

	assert.Equal(t, DefaultMaxTurns, m.calls)
	assert.Equal(t, consts.State_TurnLimit, tr.Outcome)
	assert.Equal(t, consts.EmptyDecision, tr.Payload)
}

func TestDriverMaxTurnsIsCapped(t *testing.T) {
	m := &scriptedModel{}
	tr := NewDriver(m, WithMaxTurns(25)).Run(context.Background(), Request{
		AgentID:  "unknown/model",
		Messages: startMessages(),
		Tools:    &fakeTools{},
		Budget:   NewBudget(100),
	})

	assert.Equal(t, DefaultMaxTurns, m.calls)
	assert.Equal(t, DefaultMaxTurns, tr.Turns)
	assert.Equal(t, consts.State_TurnLimit, tr.Outcome)
}

func TestDriverTurnLimitKeepsLastContent(t *testing.T) {
	reply := toolCallReply("get_price", `{}`, 10)
	reply.Content = "thinking out loud"
	m := &scriptedModel{replies: []*schema.Message{reply}}

	tr := NewDriver(m, WithMaxTurns(1)).Run(context.Background(), Request{
		AgentID:  "x",
		Messages: startMessages(),
		Tools:    &fakeTools{},
	})
	assert.Equal(t, 1, m.calls)
	assert.Equal(t, consts.State_TurnLimit, tr.Outcome)
	assert.Equal(t, "thinking out loud", tr.Payload)
}

func TestDriverBudgetCheckedBeforeEveryCall(t *testing.T) {
	// gpt-5.1 costs 0.06 per 1k tokens, each reply spends 0.06.
	m := &scriptedModel{replies: []*schema.Message{
		toolCallReply("get_price", `{}`, 1000),
		toolCallReply("get_price", `{}`, 1000),
		toolCallReply("get_price", `{}`, 1000),
	}}
	budget := NewBudget(0.1)

	tr := NewDriver(m).Run(context.Background(), Request{
		AgentID:  "openai/gpt-5.1",
		Messages: startMessages(),
		Tools:    &fakeTools{},
		Budget:   budget,
	})

	assert.Equal(t, 2, m.calls)
	assert.Equal(t, consts.State_BudgetExceeded, tr.Outcome)
	assert.Equal(t, consts.EmptyDecision, tr.Payload)
	assert.True(t, budget.Exhausted())
}

func TestDriverSpentBudgetMakesNoCall(t *testing.T) {
	m := &scriptedModel{}
	budget := &Budget{Cap: 2, Spent: 2}

	tr := NewDriver(m).Run(context.Background(), Request{AgentID: "x", Messages: startMessages(), Budget: budget})
	assert.Zero(t, m.calls)
	assert.Equal(t, consts.State_BudgetExceeded, tr.Outcome)
	assert.Zero(t, tr.Turns)
}

func TestDriverModelError(t *testing.T) {
	m := &scriptedModel{err: errors.New("502 bad gateway")}
	tr := NewDriver(m).Run(context.Background(), Request{AgentID: "x", Messages: startMessages(), Tools: &fakeTools{}})

	assert.Equal(t, 1, m.calls)
	assert.Equal(t, consts.State_ModelError, tr.Outcome)
	assert.Equal(t, consts.EmptyDecision, tr.Payload)
	assert.EqualError(t, tr.Err, "502 bad gateway")
}

func TestDriverUnknownToolAndMissingUsage(t *testing.T) {
	unknown := schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "c1",
		Function: schema.FunctionCall{Name: "place_order", Arguments: `{}`},
	}})
	m := &scriptedModel{replies: []*schema.Message{unknown, schema.AssistantMessage("done", nil)}}
	budget := NewBudget(1)

	tr := NewDriver(m).Run(context.Background(), Request{AgentID: "x", Messages: startMessages(), Tools: &fakeTools{}, Budget: budget})

	assert.Equal(t, consts.State_Done, tr.Outcome)
	assert.Equal(t, "done", tr.Payload)
	assert.Zero(t, budget.Spent)
	assert.Equal(t, "Error: Tool place_order not found.", tr.Messages[3].Content)
}

func TestDriverUsesProviderModel(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("{}", nil)}}
	NewDriver(m).Run(context.Background(), Request{AgentID: "openai/gpt-5.1", Model: "deepseek-chat", Messages: startMessages()})
	assert.Equal(t, []string{"deepseek-chat"}, m.models)
}

func TestUnavailable(t *testing.T) {
	m := Unavailable(errors.New("no key"))
	tr := NewDriver(m).Run(context.Background(), Request{AgentID: "x", Messages: startMessages()})
	assert.Equal(t, consts.State_ModelError, tr.Outcome)
}
