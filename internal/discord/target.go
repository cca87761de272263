package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// interactionAPI is the slice of *discordgo.Session used to answer interactions.
type interactionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type responseState int

const (
	stateNone responseState = iota
	// deferred "thinking" response, the answer edits it
	stateDeferred
	// ephemeral busy notice, the answer becomes a follow-up.
	// Discord's "thinking" indicator exists only as an initial response, so a
	// queued request gets no separate processing signal: the busy notice is
	// the last thing the user sees until the answer follow-up arrives.
	stateBusyNotice
)

// InteractionTarget answers one slash command interaction.
// An interaction accepts a single initial response, so the target remembers
// which one it sent and continues with an edit or a follow-up.
type InteractionTarget struct {
	api         interactionAPI
	interaction *discordgo.Interaction

	mu    sync.Mutex
	state responseState
}

func NewInteractionTarget(api interactionAPI, interaction *discordgo.Interaction) *InteractionTarget {
	return &InteractionTarget{api: api, interaction: interaction}
}

func (t *InteractionTarget) Acknowledge(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateNone {
		return nil
	}

	err := t.api.InteractionRespond(t.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	t.state = stateDeferred
	return nil
}

func (t *InteractionTarget) NotifyBusy(ctx context.Context, text string) error {
	return t.respondEphemeral(ctx, text)
}

// Reply sends an ephemeral initial response, used for commands that finish immediately.
func (t *InteractionTarget) Reply(ctx context.Context, text string) error {
	return t.respondEphemeral(ctx, text)
}

func (t *InteractionTarget) respondEphemeral(ctx context.Context, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateNone {
		return nil
	}

	err := t.api.InteractionRespond(t.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	t.state = stateBusyNotice
	return nil
}

func (t *InteractionTarget) Deliver(ctx context.Context, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	chunks := splitMessage(text, MessageLimit)
	rest := chunks[1:]

	switch t.state {
	case stateDeferred:
		first := chunks[0]
		if _, err := t.api.InteractionResponseEdit(t.interaction, &discordgo.WebhookEdit{Content: &first}, discordgo.WithContext(ctx)); err != nil {
			return err
		}
	case stateBusyNotice:
		rest = chunks
	default:
		// acknowledgement failed earlier, the initial response is still free
		err := t.api.InteractionRespond(t.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: chunks[0]},
		}, discordgo.WithContext(ctx))
		if err != nil {
			return err
		}
		t.state = stateDeferred
	}

	for _, chunk := range rest {
		if _, err := t.api.FollowupMessageCreate(t.interaction, true, &discordgo.WebhookParams{Content: chunk}, discordgo.WithContext(ctx)); err != nil {
			return err
		}
	}
	return nil
}
