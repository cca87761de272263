package discord

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"nyan-bot/internal/pkg/logger"
	"nyan-bot/internal/repository/memory"
	"nyan-bot/internal/service"
	"nyan-bot/pkg/sequencer"
	"nyan-bot/pkg/stylize"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	kind      string
	content   string
	ephemeral bool
}

type fakeAPI struct {
	mu         sync.Mutex
	calls      []call
	respondErr error
	delivered  chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{delivered: make(chan struct{}, 16)}
}

func (f *fakeAPI) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.respondErr != nil {
		return f.respondErr
	}
	c := call{kind: "respond"}
	if resp.Type == discordgo.InteractionResponseDeferredChannelMessageWithSource {
		c.kind = "defer"
	}
	if resp.Data != nil {
		c.content = resp.Data.Content
		c.ephemeral = resp.Data.Flags&discordgo.MessageFlagsEphemeral != 0
	}
	f.calls = append(f.calls, c)
	return nil
}

func (f *fakeAPI) InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{kind: "edit", content: *edit.Content})
	f.delivered <- struct{}{}
	return &discordgo.Message{}, nil
}

func (f *fakeAPI) FollowupMessageCreate(i *discordgo.Interaction, wait bool, params *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{kind: "followup", content: params.Content})
	f.delivered <- struct{}{}
	return &discordgo.Message{}, nil
}

func (f *fakeAPI) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	long := strings.Repeat("가", 4500)
	chunks := splitMessage(long, MessageLimit)
	require.Len(t, chunks, 3)
	total := 0
	for _, c := range chunks {
		n := utf8.RuneCountInString(c)
		assert.LessOrEqual(t, n, MessageLimit)
		assert.True(t, utf8.ValidString(c))
		total += n
	}
	assert.Equal(t, 4500, total)

	words := splitMessage("aaaa bbbb cccc", 10)
	assert.Equal(t, []string{"aaaa bbbb", "cccc"}, words)
}

func TestInteractionTargetDeferredFlow(t *testing.T) {
	api := newFakeAPI()
	target := NewInteractionTarget(api, &discordgo.Interaction{})
	ctx := context.Background()

	require.NoError(t, target.Acknowledge(ctx))
	require.NoError(t, target.Deliver(ctx, strings.Repeat("a", MessageLimit+5)))

	calls := api.snapshot()
	require.Len(t, calls, 3)
	assert.Equal(t, "defer", calls[0].kind)
	assert.Equal(t, "edit", calls[1].kind)
	assert.Len(t, calls[1].content, MessageLimit)
	assert.Equal(t, call{kind: "followup", content: "aaaaa"}, calls[2])
}

func TestInteractionTargetBusyFlow(t *testing.T) {
	api := newFakeAPI()
	target := NewInteractionTarget(api, &discordgo.Interaction{})
	ctx := context.Background()

	require.NoError(t, target.NotifyBusy(ctx, "wait"))
	require.NoError(t, target.Acknowledge(ctx))
	// the initial response is spent, acknowledging sends nothing
	require.Len(t, api.snapshot(), 1)
	require.NoError(t, target.Deliver(ctx, "answer"))

	assert.Equal(t, []call{
		{kind: "respond", content: "wait", ephemeral: true},
		{kind: "followup", content: "answer"},
	}, api.snapshot())
}

func TestInteractionTargetDeliverWithoutAcknowledge(t *testing.T) {
	api := newFakeAPI()
	api.respondErr = errors.New("unknown interaction")
	target := NewInteractionTarget(api, &discordgo.Interaction{})
	ctx := context.Background()

	assert.Error(t, target.Acknowledge(ctx))

	api.respondErr = nil
	require.NoError(t, target.Deliver(ctx, "answer"))
	assert.Equal(t, []call{{kind: "respond", content: "answer"}}, api.snapshot())
}

func TestCommands(t *testing.T) {
	cmds := Commands("nbz", "nyanmode")
	require.Len(t, cmds, 2)

	ask := cmds[0]
	assert.Equal(t, "nbz", ask.Name)
	require.Len(t, ask.Options, 1)
	assert.Equal(t, optionQuery, ask.Options[0].Name)
	assert.True(t, ask.Options[0].Required)
	assert.Equal(t, "할_말", ask.Options[0].NameLocalizations[discordgo.Korean])

	mode := cmds[1]
	assert.Equal(t, "nyanmode", mode.Name)
	require.Len(t, mode.Options[0].Choices, 2)
	assert.Equal(t, "on", mode.Options[0].Choices[0].Value)
	assert.Equal(t, "off", mode.Options[0].Choices[1].Value)
}

func TestCheckAllowedGuild(t *testing.T) {
	ready := &discordgo.Ready{Guilds: []*discordgo.Guild{{ID: "g1"}, {ID: "g2"}}}
	assert.NoError(t, checkAllowedGuild(ready, "g2"))
	assert.Error(t, checkAllowedGuild(ready, "g3"))
}

type answerCompleter struct {
	answer string
}

func (c answerCompleter) Complete(ctx context.Context, query string) (string, error) {
	return c.answer, nil
}

func newTestDispatcher(api *fakeAPI, answer string) (*Dispatcher, *sequencer.Sequencer) {
	seq := sequencer.New(answerCompleter{answer: answer}, sequencer.WithTransform(stylize.Transform))
	bot := service.NewBotService(seq, memory.NewUsageRepository(), "stub", logger.NewNopLogger())
	gate := service.NewAdmissionGate("guild-1", []string{"111"})
	return NewDispatcher(api, gate, bot, "nbz", "nyanmode", logger.NewNopLogger()), seq
}

func commandInteraction(guildID, userID, name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: guildID,
		Member:  &discordgo.Member{User: &discordgo.User{ID: userID}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    name,
			Options: options,
		},
	}
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func TestDispatcherAsk(t *testing.T) {
	api := newFakeAPI()
	d, _ := newTestDispatcher(api, "Hi. Bye!")

	d.HandleInteraction(context.Background(), commandInteraction("guild-1", "111", "nbz", stringOpt(optionQuery, "hello")))

	select {
	case <-api.delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("answer was not delivered")
	}
	assert.Equal(t, []call{
		{kind: "defer"},
		{kind: "edit", content: "Hi 냥!. Bye 냥!!"},
	}, api.snapshot())
}

func TestDispatcherIgnoresDisallowed(t *testing.T) {
	api := newFakeAPI()
	d, _ := newTestDispatcher(api, "x")

	d.HandleInteraction(context.Background(), commandInteraction("guild-2", "111", "nbz", stringOpt(optionQuery, "hi")))
	d.HandleInteraction(context.Background(), commandInteraction("guild-1", "999", "nbz", stringOpt(optionQuery, "hi")))
	d.HandleInteraction(context.Background(), &discordgo.Interaction{Type: discordgo.InteractionPing})

	assert.Empty(t, api.snapshot())
}

func TestDispatcherStyleMode(t *testing.T) {
	api := newFakeAPI()
	d, seq := newTestDispatcher(api, "x")

	d.HandleInteraction(context.Background(), commandInteraction("guild-1", "111", "nyanmode", stringOpt(optionStatus, "off")))

	assert.False(t, seq.StyleMode())
	assert.Equal(t, []call{{kind: "respond", content: "냥 모드가 비활성화되었습니다.", ephemeral: true}}, api.snapshot())
}
