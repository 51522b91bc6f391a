package chat

import "github.com/ent0n29/imagechat/internal/agentapi"

// ExtractReply returns the assistant text of a turn: the first part of the
// first model event that has any parts. Later events are ignored even when
// that part carries no text.
func ExtractReply(events []agentapi.Event) (string, bool) {
	for _, ev := range events {
		if ev.Content == nil || ev.Content.Role != agentapi.RoleModel || len(ev.Content.Parts) == 0 {
			continue
		}
		text := ev.Content.Parts[0].Text
		return text, text != ""
	}
	return "", false
}
