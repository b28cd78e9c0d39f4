package views

import (
	"fmt"
	"strings"

	"taskflow-cli/internal/model"
)

const subtitleRunes = 40

// ChannelDisplayName shows a direct channel as the other member's username.
func ChannelDisplayName(ch model.Channel, currentUserID int) string {
	if ch.ChannelType == model.ChannelDirect {
		for _, m := range ch.MembersDetail {
			if m.ID != currentUserID && m.Username != "" {
				return m.Username
			}
		}
	}
	if name := strings.TrimSpace(ch.Name); name != "" {
		return name
	}
	return fmt.Sprintf("Channel %d", ch.ID)
}

// ChannelSubtitle previews the last message.
func ChannelSubtitle(ch model.Channel) string {
	if ch.LastMessage == nil {
		return ""
	}
	text := strings.Join(strings.Fields(ch.LastMessage.Content), " ")
	if text == "" && len(ch.LastMessage.Attachments) > 0 {
		text = "attachment"
	}
	return Truncate(text, subtitleRunes)
}

// Truncate cuts s to n runes and marks the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
