package llm

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionParams controls a completion request.
type CompletionParams struct {
	MaxTokens   int     // 0 means no explicit limit
	Temperature float64 // 0 is a valid (deterministic-ish) setting
}
