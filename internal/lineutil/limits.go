package lineutil

// LINE API limits, counted in runes.
// References: https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength   = 5000
	MaxAltTextLength       = 400
	MaxMessagesPerReply    = 5
	MaxQuickReplyItemCount = 13
	MaxQuickReplyLabel     = 20
	MaxActionLabel         = 20
	MaxFooterButtons       = 6
)
