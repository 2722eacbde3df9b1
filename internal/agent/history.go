package agent

import "github.com/michaelbrown/ibrl/internal/llm"

// estimateTokens returns an approximate token count for a message.
// Uses chars/4 heuristic, accurate enough for context management.
func estimateTokens(m llm.Message) int {
	tokens := len(m.Content) / 4
	// Minimum 1 token per message for role overhead
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}

// estimateHistoryTokens returns approximate total tokens for a message slice.
func estimateHistoryTokens(messages []llm.Message) int {
	total := 0
	for _, m := range messages {
		total += estimateTokens(m)
	}
	return total
}

// trimHistory returns the most recent suffix of history that fits within
// maxTokens and maxMessages (zero disables a limit). The suffix starts at a
// user message so the model never sees an answer without its question. The
// last message is always kept.
func trimHistory(history []llm.Message, maxTokens, maxMessages int) []llm.Message {
	if len(history) == 0 {
		return history
	}

	last := len(history) - 1
	start := last
	tokens := estimateTokens(history[last])
	for i := last - 1; i >= 0; i-- {
		if maxMessages > 0 && len(history)-i > maxMessages {
			break
		}
		t := estimateTokens(history[i])
		if maxTokens > 0 && tokens+t > maxTokens {
			break
		}
		tokens += t
		start = i
	}
	if start == 0 {
		return history
	}

	for i := start; i < last; i++ {
		if history[i].Role == llm.RoleUser {
			return history[i:]
		}
	}
	return history[last:]
}
