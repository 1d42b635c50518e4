package llm

import "context"

// Role 表示对话消息的发送方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 是一条历史对话消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// WalletContext 描述当前用户连接的钱包。
type WalletContext struct {
	Connected bool   `json:"isConnected"`
	Address   string `json:"address,omitempty"`
	ChainID   int64  `json:"chainId,omitempty"`
	ChainName string `json:"chainName,omitempty"`
}

// Request 描述交给对话后端的一轮对话。
type Request struct {
	Utterance    string
	History      []Message
	Wallet       WalletContext
	Intent       string
	Observations []string
	// References 是知识库中与本轮对话相关的背景资料。
	References []string
}

// Response 是对话后端的回复。
type Response struct {
	Reply string
	Model string
}

// Client 定义了调用大模型的统一接口。
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
