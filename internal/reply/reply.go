// Package reply defines the platform-neutral response envelope produced by
// command handlers. Transports (Kakao skill, LINE) render it into their own
// wire formats.
package reply

import (
	"fmt"
	"strconv"
)

// Kind distinguishes output blocks.
type Kind string

// Output kinds
const (
	KindText Kind = "text"
	KindCard Kind = "card"
)

// ActionType describes what a button does when pressed.
type ActionType string

// Button actions
const (
	ActionMessage ActionType = "message" // sends Value back as an utterance
	ActionURL     ActionType = "url"     // opens Value in a browser
)

// Button is a card button.
type Button struct {
	Label  string     `json:"label"`
	Action ActionType `json:"action"`
	Value  string     `json:"value"`
}

// Card is a titled block with buttons.
type Card struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Buttons     []Button `json:"buttons,omitempty"`
}

// Output is one block of a response.
type Output struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text,omitempty"`
	Card *Card  `json:"card,omitempty"`
}

// QuickReply is a suggestion chip that sends Message when tapped.
type QuickReply struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

// Response is the envelope returned by every handler.
type Response struct {
	Outputs      []Output     `json:"outputs"`
	QuickReplies []QuickReply `json:"quick_replies,omitempty"`
}

// Text builds a single text response.
func Text(text string, quickReplies ...QuickReply) Response {
	return Response{
		Outputs:      []Output{{Kind: KindText, Text: text}},
		QuickReplies: quickReplies,
	}
}

// Textf builds a single formatted text response.
func Textf(format string, args ...any) Response {
	return Text(fmt.Sprintf(format, args...))
}

// CardResponse builds a single card response.
func CardResponse(card Card, quickReplies ...QuickReply) Response {
	return Response{
		Outputs:      []Output{{Kind: KindCard, Card: &card}},
		QuickReplies: quickReplies,
	}
}

// AddText appends a text block.
func (r Response) AddText(text string) Response {
	r.Outputs = append(r.Outputs, Output{Kind: KindText, Text: text})
	return r
}

// AddCard appends a card block.
func (r Response) AddCard(card Card) Response {
	r.Outputs = append(r.Outputs, Output{Kind: KindCard, Card: &card})
	return r
}

// WithQuickReplies replaces the quick replies.
func (r Response) WithQuickReplies(items ...QuickReply) Response {
	r.QuickReplies = items
	return r
}

// IsEmpty reports whether the response has no outputs.
func (r Response) IsEmpty() bool {
	return len(r.Outputs) == 0
}

// PlainText flattens the response into one string, used for logging and
// for channels that only support text.
func (r Response) PlainText() string {
	var s string
	for i, o := range r.Outputs {
		if i > 0 {
			s += "\n\n"
		}
		switch o.Kind {
		case KindCard:
			if o.Card != nil {
				s += o.Card.Title
				if o.Card.Description != "" {
					s += "\n" + o.Card.Description
				}
			}
		default:
			s += o.Text
		}
	}
	return s
}

// MessageButton builds a button that sends text back as an utterance.
func MessageButton(label, text string) Button {
	return Button{Label: label, Action: ActionMessage, Value: text}
}

// URLButton builds a button that opens a link.
func URLButton(label, url string) Button {
	return Button{Label: label, Action: ActionURL, Value: url}
}

// Quick builds a quick reply whose label is also the message.
func Quick(label string) QuickReply {
	return QuickReply{Label: label, Message: label}
}

// NumberQuickReplies returns quick replies "1".."n" for answering options.
func NumberQuickReplies(n int) []QuickReply {
	items := make([]QuickReply, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, Quick(strconv.Itoa(i)))
	}
	return items
}
