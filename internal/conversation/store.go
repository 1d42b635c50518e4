package conversation

import (
	"context"
	"strings"
	"time"

	xerrors "NovaWallet/internal/errors"
)

// Role 表示消息发送方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn 是会话中的一条消息。
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store 保存每个会话最近的消息。
type Store interface {
	Append(ctx context.Context, sessionID string, turns ...Turn) error
	Recent(ctx context.Context, sessionID string, limit int) ([]Turn, error)
	Clear(ctx context.Context, sessionID string) error
}

// UserUtterances 返回会话中用户发出的文本，按时间顺序。
func UserUtterances(turns []Turn) []string {
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Role == RoleUser && strings.TrimSpace(t.Content) != "" {
			out = append(out, t.Content)
		}
	}
	return out
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "会话 ID 不能为空")
	}
	return nil
}
