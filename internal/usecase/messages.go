package usecase

import (
	"fmt"
	"html"
	"strings"
)

// Reply templates. All texts are Telegram HTML.
const (
	welcomeMessage = "👋 <b>Welcome to Market Digest Bot!</b>\n\n" +
		"I deliver a daily market summary as a silent message every morning.\n\n" +
		"Use /help to see all available commands."

	helpMessage = "📚 <b>Available Commands:</b>\n\n" +
		"/start - Introduce the bot\n" +
		"/subscribe - Receive the daily market summary\n" +
		"/unsubscribe - Stop receiving the daily market summary\n" +
		"/get_latest - Show the most recent summary\n" +
		"/help - Show this list"

	subscribeSuccessMessage = "✅ <b>Successfully subscribed!</b>\n\n" +
		"You will now receive daily market summaries."

	alreadySubscribedMessage = "ℹ️ You are already subscribed to daily market summaries."

	unsubscribeSuccessMessage = "✅ <b>Successfully unsubscribed!</b>\n\n" +
		"You will no longer receive daily market summaries."

	notSubscribedMessage = "ℹ️ You are not currently subscribed."

	noSummaryMessage = "📭 <b>No summary available</b>\n\n" +
		"No market summaries have been generated yet. " +
		"Check back later or subscribe to receive daily summaries automatically."

	subscribeErrorMessage   = "❌ Error subscribing. Please try again later."
	unsubscribeErrorMessage = "❌ Error unsubscribing. Please try again later."
	latestErrorMessage      = "❌ Error retrieving latest summary. Please try again later."
)

// unknownCommandMessage echoes the first token of the unrecognized input.
// The token is HTML-escaped before it is placed inside the code tag.
func unknownCommandMessage(rawText string) string {
	token := strings.TrimSpace(rawText)
	if fields := strings.Fields(rawText); len(fields) > 0 {
		token = fields[0]
	}
	return fmt.Sprintf("❓ Unknown command: <code>%s</code>\n\n"+
		"Use /help to see all available commands.", html.EscapeString(token))
}
