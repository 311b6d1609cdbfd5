package webhook

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// directUserID returns the sender of a one-on-one chat event. Group and
// room events, and user sources without an ID, report false: quiz state
// is per account and the bot does not answer for a whole group.
func directUserID(source webhook.SourceInterface) (string, bool) {
	s, ok := source.(webhook.UserSource)
	if !ok || s.UserId == "" {
		return "", false
	}
	return s.UserId, true
}
