package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/colloquy/core"
	"github.com/hupe1980/colloquy/model"
	"github.com/hupe1980/colloquy/retry"
	"github.com/hupe1980/colloquy/tool"
)

func criticConfig() core.AgentConfig {
	return core.AgentConfig{
		Role:           "critic",
		Label:          "Critic",
		Instructions:   "Review the poem.",
		VerdictMarkers: []string{"APPROVED", "REVISE"},
	}
}

func quoteConnector(t *testing.T) tool.Connector {
	t.Helper()
	return tool.NewRegistry().Register(
		tool.Definition{Name: "get_lotr_quote", Description: "Fetch a quote"},
		func(ctx context.Context, args map[string]any) (*tool.Output, error) {
			return &tool.Output{Content: "You shall not pass!"}, nil
		},
	)
}

func history(turns ...core.Turn) []core.Turn {
	tr := core.NewTranscript()
	for _, turn := range turns {
		tr.Append(turn)
	}
	return tr.Snapshot()
}

func TestRespondUtterance(t *testing.T) {
	mock := model.NewMockModel("mock").Enqueue(model.MockReply{Text: "a fine first draft"})
	a := New(core.AgentConfig{Role: "poet", Instructions: "Write."}, mock)

	turn, err := a.Respond(context.Background(), history(core.NewUtteranceTurn("user", "write a poem")), RespondOptions{})
	require.NoError(t, err)

	assert.Equal(t, "poet", turn.Speaker)
	assert.Equal(t, core.KindUtterance, turn.Kind)
	assert.Equal(t, "a fine first draft", turn.Content)
	assert.Zero(t, turn.Seq) // sequencing happens on append, not here
}

func TestRespondClassifiesVerdicts(t *testing.T) {
	mock := model.NewMockModel("mock").Enqueue(
		model.MockReply{Text: "APPROVED: vivid imagery"},
		model.MockReply{Text: "revise: the meter stumbles"},
		model.MockReply{Text: "just some thoughts"},
	)
	a := New(criticConfig(), mock)

	h := history(core.NewUtteranceTurn("poet", "draft"))

	turn, err := a.Respond(context.Background(), h, RespondOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.KindVerdict, turn.Kind)

	// Marker matching is case-insensitive.
	turn, err = a.Respond(context.Background(), h, RespondOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.KindVerdict, turn.Kind)

	turn, err = a.Respond(context.Background(), h, RespondOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.KindUtterance, turn.Kind)
}

func TestRespondProducesToolRequest(t *testing.T) {
	mock := model.NewMockModel("mock").Enqueue(model.MockReply{
		ToolCalls: []model.ToolCall{{ID: "call-1", Name: "get_lotr_quote", Arguments: `{"quote_id":"abc"}`}},
	})
	cfg := core.AgentConfig{Role: "gandalf", Capabilities: []string{"get_lotr_quote"}}
	a := New(cfg, mock, func(o *Options) {
		o.Connector = quoteConnector(t)
	})

	turn, err := a.Respond(context.Background(), nil, RespondOptions{AllowTools: true})
	require.NoError(t, err)

	require.Equal(t, core.KindToolRequest, turn.Kind)
	require.NotNil(t, turn.ToolCall)
	assert.Equal(t, "call-1", turn.ToolCall.ID)
	assert.Equal(t, "get_lotr_quote", turn.ToolCall.Name)
	assert.Equal(t, "abc", turn.ToolCall.Arguments["quote_id"])

	// Tool definitions were offered to the model.
	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "get_lotr_quote", reqs[0].Tools[0].Name)
}

func TestRespondToolCallWithoutAccessIsMalformed(t *testing.T) {
	mock := model.NewMockModel("mock").Enqueue(model.MockReply{
		ToolCalls: []model.ToolCall{{ID: "call-1", Name: "get_lotr_quote"}},
	})
	a := New(core.AgentConfig{Role: "poet"}, mock)

	_, err := a.Respond(context.Background(), nil, RespondOptions{AllowTools: false})
	require.Error(t, err)

	tfe, ok := core.AsTurnFormatError(err)
	require.True(t, ok)
	assert.Equal(t, "poet", tfe.Speaker)
}

func TestRespondUnparseableArgumentsIsMalformed(t *testing.T) {
	mock := model.NewMockModel("mock").Enqueue(model.MockReply{
		ToolCalls: []model.ToolCall{{ID: "call-1", Name: "get_lotr_quote", Arguments: `{broken`}},
	})
	cfg := core.AgentConfig{Role: "gandalf", Capabilities: []string{"get_lotr_quote"}}
	a := New(cfg, mock, func(o *Options) {
		o.Connector = quoteConnector(t)
	})

	_, err := a.Respond(context.Background(), nil, RespondOptions{AllowTools: true})
	_, ok := core.AsTurnFormatError(err)
	assert.True(t, ok)
}

func TestRespondEmptyReplyIsMalformed(t *testing.T) {
	mock := model.NewMockModel("mock").Enqueue(model.MockReply{Text: "   \n "})
	a := New(core.AgentConfig{Role: "poet"}, mock)

	_, err := a.Respond(context.Background(), nil, RespondOptions{})
	_, ok := core.AsTurnFormatError(err)
	assert.True(t, ok)
}

func TestRespondRejectsGappedHistory(t *testing.T) {
	mock := model.NewMockModel("mock")
	a := New(core.AgentConfig{Role: "poet"}, mock)

	h := history(
		core.NewUtteranceTurn("user", "a"),
		core.NewUtteranceTurn("poet", "b"),
		core.NewUtteranceTurn("critic", "c"),
	)
	gapped := []core.Turn{h[0], h[2]}

	_, err := a.Respond(context.Background(), gapped, RespondOptions{})
	require.Error(t, err)
	assert.Empty(t, mock.Requests())
}

func TestRespondRetriesTransientErrors(t *testing.T) {
	mock := model.NewMockModel("mock").Enqueue(
		model.MockReply{Err: &model.TransientError{Err: errors.New("rate limited")}},
		model.MockReply{Text: "recovered"},
	)
	a := New(core.AgentConfig{Role: "poet"}, mock, func(o *Options) {
		o.RetryConfig = retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	})

	turn, err := a.Respond(context.Background(), nil, RespondOptions{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", turn.Content)
	assert.Len(t, mock.Requests(), 2)
}

func TestRespondPermanentModelErrorSurfaces(t *testing.T) {
	permanent := errors.New("invalid request")
	mock := model.NewMockModel("mock").Enqueue(model.MockReply{Err: permanent})
	a := New(core.AgentConfig{Role: "poet"}, mock)

	_, err := a.Respond(context.Background(), nil, RespondOptions{})
	assert.ErrorIs(t, err, permanent)
	assert.Len(t, mock.Requests(), 1)
}

func TestBuildRequestPerspective(t *testing.T) {
	mock := model.NewMockModel("mock").Enqueue(model.MockReply{Text: "REVISE: weak ending"})
	a := New(criticConfig(), mock)

	h := history(
		core.NewUtteranceTurn("user", "write a poem"),
		core.NewUtteranceTurn("poet", "the draft"),
		core.NewVerdictTurn("critic", "REVISE: opening line"),
		core.NewUtteranceTurn("poet", "the revised draft"),
	)

	_, err := a.Respond(context.Background(), h, RespondOptions{})
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	msgs := reqs[0].Messages
	require.Len(t, msgs, 4)

	// Other speakers arrive as labeled user messages, own turns as assistant.
	assert.Equal(t, "user", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "[user]")
	assert.Equal(t, "user", msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "[poet] the draft")
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "REVISE: opening line", msgs[2].Content)
	assert.Equal(t, "user", msgs[3].Role)
}

func TestBuildRequestElidesForeignToolTraffic(t *testing.T) {
	mock := model.NewMockModel("mock").Enqueue(model.MockReply{Text: "my view"})
	a := New(core.AgentConfig{Role: "bilbo"}, mock)

	h := history(
		core.NewUtteranceTurn("sauron", "the mystery"),
		core.NewToolRequestTurn("gandalf", core.ToolCall{ID: "1", Name: "get_lotr_quote"}),
		core.NewToolResultTurn("gandalf", core.ToolResult{CallID: "1", Name: "get_lotr_quote", Content: "quote"}),
		core.NewUtteranceTurn("gandalf", "my analysis"),
	)

	_, err := a.Respond(context.Background(), h, RespondOptions{})
	require.NoError(t, err)

	msgs := mock.Requests()[0].Messages
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "[sauron]")
	assert.Contains(t, msgs[1].Content, "[gandalf] my analysis")
}

func TestBuildRequestAppendsCorrective(t *testing.T) {
	mock := model.NewMockModel("mock").Enqueue(model.MockReply{Text: "better now"})
	a := New(core.AgentConfig{Role: "poet"}, mock)

	_, err := a.Respond(context.Background(), nil, RespondOptions{Corrective: "answer in plain text"})
	require.NoError(t, err)

	msgs := mock.Requests()[0].Messages
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "answer in plain text", last.Content)
}

func TestHasToolAccess(t *testing.T) {
	mock := model.NewMockModel("mock")

	noConnector := New(core.AgentConfig{Role: "a", Capabilities: []string{"x"}}, mock)
	assert.False(t, noConnector.HasToolAccess())

	noCaps := New(core.AgentConfig{Role: "a"}, mock, func(o *Options) {
		o.Connector = quoteConnector(t)
	})
	assert.False(t, noCaps.HasToolAccess())

	both := New(core.AgentConfig{Role: "a", Capabilities: []string{"get_lotr_quote"}}, mock, func(o *Options) {
		o.Connector = quoteConnector(t)
	})
	assert.True(t, both.HasToolAccess())
}
