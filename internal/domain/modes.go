package domain

import "fmt"

// ResponseMode selects the strategy used to compose a final answer from the
// retrieved passages.
type ResponseMode string

const (
	ResponseTreeSummarize ResponseMode = "tree_summarize"
	ResponseCompact       ResponseMode = "compact"
	ResponseRefine        ResponseMode = "refine"
)

// ParseResponseMode validates a response mode string at the boundary.
func ParseResponseMode(s string) (ResponseMode, error) {
	switch ResponseMode(s) {
	case ResponseTreeSummarize, ResponseCompact, ResponseRefine:
		return ResponseMode(s), nil
	case "":
		return ResponseTreeSummarize, nil
	}
	return "", fmt.Errorf("unknown response mode %q", s)
}

// ChatMode selects how conversational context is combined with retrieval.
type ChatMode string

const (
	ChatContext             ChatMode = "context"
	ChatCondensePlusContext ChatMode = "condense_plus_context"
)

// ParseChatMode validates a chat mode string at the boundary.
func ParseChatMode(s string) (ChatMode, error) {
	switch ChatMode(s) {
	case ChatContext, ChatCondensePlusContext:
		return ChatMode(s), nil
	case "":
		return ChatContext, nil
	}
	return "", fmt.Errorf("unknown chat mode %q", s)
}
