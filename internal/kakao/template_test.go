package kakao

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/quizbot-go/internal/reply"
)

func TestRender_Card(t *testing.T) {
	resp := reply.CardResponse(reply.Card{
		Title:       "오늘의 문제",
		Description: "1) 가\n2) 나",
		Buttons: []reply.Button{
			reply.MessageButton("1번", "1"),
			reply.URLButton("웹에서 보기", "https://example.com/q/1"),
		},
	}, reply.NumberQuickReplies(2)...)

	out := Render(resp)

	require.Len(t, out.Template.Outputs, 1)
	card := out.Template.Outputs[0].BasicCard
	require.NotNil(t, card)
	assert.Nil(t, out.Template.Outputs[0].SimpleText)
	assert.Equal(t, "오늘의 문제", card.Title)
	assert.Equal(t, []Button{
		{Action: ActionMessage, Label: "1번", MessageText: "1"},
		{Action: ActionWebLink, Label: "웹에서 보기", WebLinkURL: "https://example.com/q/1"},
	}, card.Buttons)
	assert.Len(t, out.Template.QuickReplies, 2)
}

func TestRender_JSONShape(t *testing.T) {
	raw, err := json.Marshal(Render(reply.Text("hi")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"2.0","template":{"outputs":[{"simpleText":{"text":"hi"}}]}}`, string(raw))
}

func TestRender_FoldsExtraOutputs(t *testing.T) {
	resp := reply.Text("a").AddText("b").AddText("c").AddText("d")

	out := Render(resp)

	require.Len(t, out.Template.Outputs, MaxOutputs)
	assert.Equal(t, "a", out.Template.Outputs[0].SimpleText.Text)
	assert.Equal(t, "b", out.Template.Outputs[1].SimpleText.Text)
	assert.Equal(t, "c\n\nd", out.Template.Outputs[2].SimpleText.Text)
}

func TestRender_Limits(t *testing.T) {
	var buttons []reply.Button
	for range 5 {
		buttons = append(buttons, reply.MessageButton("아주 긴 버튼 라벨입니다 정말로요", "x"))
	}
	resp := reply.CardResponse(reply.Card{Title: "t", Buttons: buttons}, reply.NumberQuickReplies(15)...).
		AddText(strings.Repeat("가", MaxSimpleText+10))

	out := Render(resp)

	card := out.Template.Outputs[0].BasicCard
	assert.Len(t, card.Buttons, MaxCardButtons)
	assert.LessOrEqual(t, len([]rune(card.Buttons[0].Label)), MaxButtonLabel)
	assert.Len(t, out.Template.QuickReplies, MaxQuickReplies)
	assert.Len(t, []rune(out.Template.Outputs[1].SimpleText.Text), MaxSimpleText)
}

func TestRender_EmptyFallsBackToApology(t *testing.T) {
	out := Render(reply.Response{})
	require.Len(t, out.Template.Outputs, 1)
	assert.Equal(t, reply.MsgGenericError, out.Template.Outputs[0].SimpleText.Text)
}
