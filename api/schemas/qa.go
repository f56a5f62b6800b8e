package schemas

// MessageRole tags who produced a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ConversationMessage is one turn of a QA conversation. Messages are ordered,
// append-only and live entirely on the client.
type ConversationMessage struct {
	ID          string         `json:"id"`
	Role        MessageRole    `json:"role"`
	Content     string         `json:"content"`
	SenderLabel string         `json:"sender_label,omitempty"`
	// Evidence is the subgraph extract backing an assistant answer, if the
	// backend returned one. Used for visualization only.
	Evidence *GraphSnapshot `json:"evidence,omitempty"`
	// SearchStrategies are opaque descriptors of how the answer was found,
	// shown to the user verbatim.
	SearchStrategies []string `json:"search_strategies,omitempty"`
}

// HistoryEntry is a prior turn sent back to the backend for context.
type HistoryEntry struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// QARequest is the payload for POST /kg/smart-qa/{userID}.
type QARequest struct {
	Query       string         `json:"query"`
	SubgraphIDs []int64        `json:"subgraph_ids"`
	History     []HistoryEntry `json:"history"`
}

// QAContext carries the supporting evidence attached to an answer.
type QAContext struct {
	SearchStrategies []string `json:"search_strategies"`
	Nodes            []Node   `json:"nodes"`
	Relationships    []Edge   `json:"relationships"`
}

// QAResponse is the backend's answer to one QA turn.
type QAResponse struct {
	Answer  string     `json:"answer"`
	Context *QAContext `json:"context,omitempty"`
}
