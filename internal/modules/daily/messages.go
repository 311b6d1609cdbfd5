package daily

// User-facing messages.
const (
	MsgWeeklyRedirect  = "지금은 주간 모드예요. '주간 퀴즈'로 이번 주 문제를 풀어 보세요.\n오늘의 문제를 받으려면 '데일리 모드'라고 입력하세요."
	MsgNotAvailable    = "아직 오늘의 문제가 준비되지 않았어요. 잠시 후 다시 확인해 주세요."
	MsgAlreadyAnswered = "이미 답변했어요. 내일 새로운 문제로 만나요!"
	MsgAlreadySolved   = "이미 풀었어요. 선택한 답: %d번"
	MsgOutOfRange      = "1부터 %d 사이의 번호로 답해 주세요."
	MsgCorrect         = "정답이에요! 🎉"
	MsgIncorrect       = "아쉽지만 오답이에요. 정답은 %d번 (%s)이에요."
	MsgTodayStats      = "오늘 %d명 중 %d명이 맞혔어요 (정답률 %.0f%%)"
	MsgAnswerHint      = "번호를 입력해서 답해 주세요."
)
