package discord

import "nyan-bot/pkg/utils"

// MessageLimit is the longest message content Discord accepts, in characters.
const MessageLimit = 2000

func splitMessage(text string, limit int) []string {
	return utils.SplitText(text, limit)
}
