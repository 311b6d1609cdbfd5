package lineutil

import (
	"context"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Messenger is the subset of the Messaging API used by the bot.
type Messenger interface {
	Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error
	Push(ctx context.Context, to string, messages []messaging_api.MessageInterface) error
	ShowLoading(ctx context.Context, chatID string, seconds int32) error
}

// APIClient implements Messenger on top of the SDK client.
type APIClient struct {
	api *messaging_api.MessagingApiAPI
}

// NewAPIClient creates a Messaging API client for the channel token.
func NewAPIClient(channelToken string) (*APIClient, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return &APIClient{api: api}, nil
}

// Reply sends messages with a reply token.
func (c *APIClient) Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	_, err := c.api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	return err
}

// Push sends messages to a user without a reply token.
func (c *APIClient) Push(ctx context.Context, to string, messages []messaging_api.MessageInterface) error {
	_, err := c.api.WithContext(ctx).PushMessage(&messaging_api.PushMessageRequest{
		To:       to,
		Messages: messages,
	}, "")
	return err
}

// ShowLoading shows the loading animation in a one-on-one chat.
// LINE requires seconds to be a multiple of 5 between 5 and 60.
func (c *APIClient) ShowLoading(ctx context.Context, chatID string, seconds int32) error {
	_, err := c.api.WithContext(ctx).ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: seconds,
	})
	return err
}
