package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/stringutil"
)

// Render converts a reply into at most MaxMessagesPerReply LINE messages.
// Text blocks become text messages and cards become flex bubbles. Blocks
// past the limit are merged into the last text message; quick replies go
// on the final message.
func Render(resp reply.Response, sender *messaging_api.Sender) []messaging_api.MessageInterface {
	outputs := resp.Outputs
	if len(outputs) == 0 {
		outputs = reply.GenericError().Outputs
	}

	messages := make([]messaging_api.MessageInterface, 0, min(len(outputs), MaxMessagesPerReply))
	for i, o := range outputs {
		if i == MaxMessagesPerReply-1 && len(outputs) > MaxMessagesPerReply {
			rest := reply.Response{Outputs: outputs[i:]}
			messages = append(messages, textMessage(rest.PlainText()))
			break
		}
		messages = append(messages, renderOutput(o))
	}

	qr := quickReply(resp.QuickReplies)
	for i, m := range messages {
		if i < len(messages)-1 {
			decorate(m, sender, nil)
		} else {
			decorate(m, sender, qr)
		}
	}
	return messages
}

func renderOutput(o reply.Output) messaging_api.MessageInterface {
	if o.Kind != reply.KindCard || o.Card == nil {
		return textMessage(o.Text)
	}
	return NewCardMessage(*o.Card)
}

// NewSender returns a sender override, or nil when name is empty.
func NewSender(name, iconURL string) *messaging_api.Sender {
	if name == "" {
		return nil
	}
	return &messaging_api.Sender{Name: name, IconUrl: iconURL}
}

func textMessage(text string) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{Text: stringutil.TruncateRunes(text, MaxTextMessageLength)}
}

func messageAction(label, text string) *messaging_api.MessageAction {
	return &messaging_api.MessageAction{Label: stringutil.TruncateRunes(label, MaxActionLabel), Text: text}
}

func uriAction(label, uri string) *messaging_api.UriAction {
	return &messaging_api.UriAction{Label: stringutil.TruncateRunes(label, MaxActionLabel), Uri: uri}
}

// quickReply turns reply chips into LINE quick reply items, keeping the
// first MaxQuickReplyItemCount. It returns nil for no chips.
func quickReply(chips []reply.QuickReply) *messaging_api.QuickReply {
	if len(chips) == 0 {
		return nil
	}
	chips = chips[:min(len(chips), MaxQuickReplyItemCount)]
	items := make([]messaging_api.QuickReplyItem, len(chips))
	for i, c := range chips {
		items[i] = messaging_api.QuickReplyItem{
			Action: messageAction(stringutil.TruncateRunes(c.Label, MaxQuickReplyLabel), c.Message),
		}
	}
	return &messaging_api.QuickReply{Items: items}
}

func decorate(msg messaging_api.MessageInterface, sender *messaging_api.Sender, qr *messaging_api.QuickReply) {
	switch m := msg.(type) {
	case *messaging_api.TextMessage:
		m.Sender, m.QuickReply = sender, qr
	case *messaging_api.FlexMessage:
		m.Sender, m.QuickReply = sender, qr
	}
}
