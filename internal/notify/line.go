package notify

import (
	"context"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/quizbot-go/internal/lineutil"
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/storage"
)

// LINESender pushes messages with the Messaging API.
type LINESender struct {
	messenger lineutil.Messenger
	sender    *messaging_api.Sender
}

// NewLINESender creates a LINE sender. senderName may be empty.
func NewLINESender(m lineutil.Messenger, senderName string) *LINESender {
	return &LINESender{messenger: m, sender: lineutil.NewSender(senderName, "")}
}

// Platform implements Sender.
func (s *LINESender) Platform() string { return storage.PlatformLINE }

// Send implements Sender.
func (s *LINESender) Send(ctx context.Context, userID string, resp reply.Response) error {
	if err := s.messenger.Push(ctx, userID, lineutil.Render(resp, s.sender)); err != nil {
		return fmt.Errorf("line push: %w", err)
	}
	return nil
}
