package tenthman

import "strings"

// SanitizeHistory normalizes a raw turn list into a clean ordered history:
// only user/assistant turns with non-empty trimmed content survive, in their
// original relative order. Invalid turns are silently dropped, never fatal.
// Sanitizing an already-sanitized history is a no-op.
func SanitizeHistory(history []ChatTurn) []ChatTurn {
	clean := make([]ChatTurn, 0, len(history))
	for _, turn := range history {
		if turn.Role != RoleUser && turn.Role != RoleAssistant {
			continue
		}
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		clean = append(clean, ChatTurn{Role: turn.Role, Content: content})
	}
	return clean
}

func latestUserTurn(history []ChatTurn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i].Content
		}
	}
	return ""
}
