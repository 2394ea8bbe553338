package dispatch

import (
	"fmt"
	"time"

	"github.com/maskchat/pairbot/internal/transport"
)

// Notification texts. The waiting text differs between a fresh find and a
// rejoin; the difference is purely cosmetic.
const (
	textWelcome = "Welcome! You chat anonymously here: nobody sees who you are. " +
		"Send \"find\" to get paired with a stranger."
	textHelp = "find — look for a partner\n" +
		"find_again — leave the current chat and look for a new partner\n" +
		"stop — leave the current chat\n" +
		"report — report your partner and leave the chat\n" +
		"premium — about premium"
	textPremium = "Premium is not available yet."

	textWaitingFresh  = "Looking for a partner. Hold on..."
	textWaitingRejoin = "You left the chat. Looking for a new partner..."
	textMatched       = "Partner found! Say hi. Everything you send is relayed anonymously."

	textAlreadyPaired = "You are already in a chat. Send \"stop\" to leave it first."
	textLeft          = "You left the chat."
	textPartnerLeft   = "Your partner left the chat."
	textReportFiled   = "Report filed. The chat has ended."
	textNotReportable = "There is no active chat to report."

	textBlockedForever = "You have been blocked permanently."
)

// chatOptions are the action buttons offered after a chat ends.
var chatOptions = []transport.Option{
	{ID: transport.OptionFindAgain, Label: "Find a new partner"},
	{ID: transport.OptionReport, Label: "Report"},
	{ID: transport.OptionStop, Label: "Stop"},
}

// notice builds a plain text notification.
func notice(text string) transport.TextMessage {
	return transport.TextMessage{Text: text}
}

// noticeWithOptions builds a notification carrying the post-chat buttons.
func noticeWithOptions(text string) transport.TextMessage {
	return transport.TextMessage{Text: text, Options: chatOptions}
}

// blockedNotice describes the caller's block: remaining time for temporary
// blocks, a terminal wording for permanent ones.
func blockedNotice(until time.Time, permanent bool) transport.TextMessage {
	if permanent {
		return notice(textBlockedForever)
	}
	remaining := time.Until(until).Round(time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return notice(fmt.Sprintf("You are blocked for another %s.", remaining))
}
