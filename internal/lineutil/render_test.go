package lineutil

import (
	"strings"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/quizbot-go/internal/reply"
)

func TestRender_TextWithQuickReplies(t *testing.T) {
	msgs := Render(reply.Text("안녕하세요", reply.Quick("도움말"), reply.Quick("통계")), nil)

	require.Len(t, msgs, 1)
	text, ok := msgs[0].(*messaging_api.TextMessage)
	require.True(t, ok)
	assert.Equal(t, "안녕하세요", text.Text)
	require.NotNil(t, text.QuickReply)
	require.Len(t, text.QuickReply.Items, 2)
	action, ok := text.QuickReply.Items[0].Action.(*messaging_api.MessageAction)
	require.True(t, ok)
	assert.Equal(t, "도움말", action.Text)
}

func TestRender_CardBecomesFlex(t *testing.T) {
	resp := reply.CardResponse(reply.Card{
		Title:       "오늘의 문제",
		Description: "수도는?\n1) 서울\n2) 부산",
		Buttons: []reply.Button{
			reply.MessageButton("1번", "1"),
			reply.URLButton("열기", "https://example.com"),
		},
	}).AddText("번호로 답해 주세요.")

	msgs := Render(resp, nil)

	require.Len(t, msgs, 2)
	flex, ok := msgs[0].(*messaging_api.FlexMessage)
	require.True(t, ok)
	assert.Equal(t, "오늘의 문제\n수도는?\n1) 서울\n2) 부산", flex.AltText)
	bubble, ok := flex.Contents.(*messaging_api.FlexBubble)
	require.True(t, ok)
	assert.NotNil(t, bubble.Header)
	assert.NotNil(t, bubble.Body)
	require.NotNil(t, bubble.Footer)
	require.Len(t, bubble.Footer.Contents, 2)
	btn := bubble.Footer.Contents[1].(*messaging_api.FlexButton)
	uri, ok := btn.Action.(*messaging_api.UriAction)
	require.True(t, ok)
	assert.Equal(t, "https://example.com", uri.Uri)

	_, ok = msgs[1].(*messaging_api.TextMessage)
	assert.True(t, ok)
}

func TestRender_MergesOverflow(t *testing.T) {
	resp := reply.Text("1")
	for _, s := range []string{"2", "3", "4", "5", "6", "7"} {
		resp = resp.AddText(s)
	}

	msgs := Render(resp.WithQuickReplies(reply.Quick("도움말")), nil)

	require.Len(t, msgs, MaxMessagesPerReply)
	last := msgs[len(msgs)-1].(*messaging_api.TextMessage)
	assert.Equal(t, "5\n\n6\n\n7", last.Text)
	assert.NotNil(t, last.QuickReply)
	assert.Nil(t, msgs[0].(*messaging_api.TextMessage).QuickReply)
}

func TestRender_SenderAndEmpty(t *testing.T) {
	sender := NewSender("퀴즈봇", "")
	msgs := Render(reply.Response{}, sender)

	require.Len(t, msgs, 1)
	text := msgs[0].(*messaging_api.TextMessage)
	assert.Equal(t, reply.MsgGenericError, text.Text)
	assert.Equal(t, sender, text.Sender)
	assert.Nil(t, NewSender("", "x"))
}

func TestRender_TruncatesLongText(t *testing.T) {
	msgs := Render(reply.Text(strings.Repeat("가", MaxTextMessageLength+1)), nil)
	assert.Len(t, []rune(msgs[0].(*messaging_api.TextMessage).Text), MaxTextMessageLength)
}

func TestQuickReplyLimit(t *testing.T) {
	chips := make([]reply.QuickReply, 20)
	for i := range chips {
		chips[i] = reply.Quick("도움말")
	}
	assert.Len(t, quickReply(chips).Items, MaxQuickReplyItemCount)
	assert.Nil(t, quickReply(nil))
}
