package lineutil

import (
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/stringutil"
)

const vertical = messaging_api.FlexBoxLAYOUT("vertical")

// NewCardMessage renders a card as a single flex bubble: the title in a
// green header, the description as wrapped body text, and buttons stacked
// in the footer. Empty sections are left out since LINE rejects empty text.
func NewCardMessage(card reply.Card) *messaging_api.FlexMessage {
	bubble := &messaging_api.FlexBubble{}
	if card.Title != "" {
		bubble.Header = &messaging_api.FlexBox{
			Layout:          vertical,
			BackgroundColor: ColorHeroBg,
			PaddingAll:      SpacingXL,
			Contents: []messaging_api.FlexComponentInterface{&messaging_api.FlexText{
				Text:        card.Title,
				Weight:      messaging_api.FlexTextWEIGHT("bold"),
				Size:        "lg",
				Color:       ColorHeroText,
				Wrap:        true,
				LineSpacing: LineSpacingLarge,
			}},
		}
	}
	if card.Description != "" {
		bubble.Body = &messaging_api.FlexBox{
			Layout:     vertical,
			PaddingAll: SpacingL,
			Contents: []messaging_api.FlexComponentInterface{&messaging_api.FlexText{
				Text:        card.Description,
				Size:        "sm",
				Color:       ColorText,
				Wrap:        true,
				LineSpacing: LineSpacingNormal,
			}},
		}
	}
	if len(card.Buttons) > 0 {
		buttons := card.Buttons[:min(len(card.Buttons), MaxFooterButtons)]
		contents := make([]messaging_api.FlexComponentInterface, 0, len(buttons))
		for _, b := range buttons {
			contents = append(contents, newCardButton(b))
		}
		bubble.Footer = &messaging_api.FlexBox{Layout: vertical, Spacing: SpacingS, Contents: contents}
	}

	alt := strings.TrimSpace(card.Title + "\n" + card.Description)
	if alt == "" {
		alt = "퀴즈봇"
	}
	return &messaging_api.FlexMessage{
		AltText:  stringutil.TruncateRunes(alt, MaxAltTextLength),
		Contents: bubble,
	}
}

// URL buttons are primary; answer buttons are secondary.
func newCardButton(b reply.Button) *messaging_api.FlexButton {
	btn := &messaging_api.FlexButton{Height: messaging_api.FlexButtonHEIGHT("sm")}
	if b.Action == reply.ActionURL {
		btn.Action = uriAction(b.Label, b.Value)
		btn.Style = messaging_api.FlexButtonSTYLE("primary")
		btn.Color = ColorPrimary
		return btn
	}
	btn.Action = messageAction(b.Label, b.Value)
	btn.Style = messaging_api.FlexButtonSTYLE("secondary")
	return btn
}
