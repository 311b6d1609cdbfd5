package reply

// Shared user-facing messages.
const (
	MsgGenericError   = "일시적인 오류가 발생했어요. 잠시 후 다시 시도해 주세요."
	MsgUnknownCommand = "무슨 말인지 잘 모르겠어요. '도움말'을 입력하면 사용 가능한 명령어를 볼 수 있어요."
	MsgRateLimited    = "요청이 너무 많아요. 잠시 후 다시 시도해 주세요."
)

// DefaultQuickReplies are offered after help and unknown commands.
func DefaultQuickReplies() []QuickReply {
	return []QuickReply{
		Quick("오늘의 문제"),
		Quick("주간 퀴즈"),
		Quick("통계"),
		Quick("도움말"),
	}
}

// GenericError is the apology returned for internal failures.
func GenericError() Response {
	return Text(MsgGenericError)
}

// Unknown is returned when no command matched.
func Unknown() Response {
	return Text(MsgUnknownCommand, DefaultQuickReplies()...)
}

// RateLimited is returned when a user exceeds their message budget.
func RateLimited() Response {
	return Text(MsgRateLimited)
}
