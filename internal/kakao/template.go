package kakao

import (
	"github.com/garyellow/quizbot-go/internal/reply"
	"github.com/garyellow/quizbot-go/internal/stringutil"
)

// Skill response limits enforced by the open builder.
const (
	MaxOutputs       = 3
	MaxQuickReplies  = 10
	MaxCardButtons   = 3
	MaxSimpleText    = 1000
	MaxCardTitle     = 50
	MaxCardDesc      = 230
	MaxButtonLabel   = 14
	MaxQuickReplyLbl = 14
)

const skillVersion = "2.0"

// SkillResponse is the v2.0 skill response envelope.
type SkillResponse struct {
	Version  string   `json:"version"`
	Template Template `json:"template"`
}

// Template holds the rendered outputs.
type Template struct {
	Outputs      []Output     `json:"outputs"`
	QuickReplies []QuickReply `json:"quickReplies,omitempty"`
}

// Output is exactly one of SimpleText or BasicCard.
type Output struct {
	SimpleText *SimpleText `json:"simpleText,omitempty"`
	BasicCard  *BasicCard  `json:"basicCard,omitempty"`
}

// SimpleText is a plain text bubble.
type SimpleText struct {
	Text string `json:"text"`
}

// BasicCard is a titled card with up to three buttons.
type BasicCard struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Buttons     []Button `json:"buttons,omitempty"`
}

// Button actions understood by Kakao.
const (
	ActionMessage = "message"
	ActionWebLink = "webLink"
)

// Button is a card button.
type Button struct {
	Action      string `json:"action"`
	Label       string `json:"label"`
	MessageText string `json:"messageText,omitempty"`
	WebLinkURL  string `json:"webLinkUrl,omitempty"`
}

// QuickReply is a suggestion chip below the outputs.
type QuickReply struct {
	Action      string `json:"action"`
	Label       string `json:"label"`
	MessageText string `json:"messageText"`
}

// Render converts a reply into a skill response. Extra outputs are folded
// into the last text bubble so nothing is silently dropped.
func Render(resp reply.Response) SkillResponse {
	outputs := make([]Output, 0, min(len(resp.Outputs), MaxOutputs))
	for i, o := range resp.Outputs {
		if i >= MaxOutputs-1 && len(resp.Outputs) > MaxOutputs {
			rest := reply.Response{Outputs: resp.Outputs[i:]}
			outputs = append(outputs, simpleText(rest.PlainText()))
			break
		}
		outputs = append(outputs, renderOutput(o))
	}
	if len(outputs) == 0 {
		outputs = append(outputs, simpleText(reply.MsgGenericError))
	}

	var quick []QuickReply
	for i, q := range resp.QuickReplies {
		if i >= MaxQuickReplies {
			break
		}
		quick = append(quick, QuickReply{
			Action:      ActionMessage,
			Label:       stringutil.TruncateRunes(q.Label, MaxQuickReplyLbl),
			MessageText: q.Message,
		})
	}

	return SkillResponse{
		Version:  skillVersion,
		Template: Template{Outputs: outputs, QuickReplies: quick},
	}
}

func renderOutput(o reply.Output) Output {
	if o.Kind != reply.KindCard || o.Card == nil {
		return simpleText(o.Text)
	}

	card := &BasicCard{
		Title:       stringutil.TruncateRunes(o.Card.Title, MaxCardTitle),
		Description: stringutil.TruncateRunes(o.Card.Description, MaxCardDesc),
	}
	for i, b := range o.Card.Buttons {
		if i >= MaxCardButtons {
			break
		}
		card.Buttons = append(card.Buttons, renderButton(b))
	}
	return Output{BasicCard: card}
}

func renderButton(b reply.Button) Button {
	label := stringutil.TruncateRunes(b.Label, MaxButtonLabel)
	if b.Action == reply.ActionURL {
		return Button{Action: ActionWebLink, Label: label, WebLinkURL: b.Value}
	}
	return Button{Action: ActionMessage, Label: label, MessageText: b.Value}
}

func simpleText(text string) Output {
	return Output{SimpleText: &SimpleText{Text: stringutil.TruncateRunes(text, MaxSimpleText)}}
}
