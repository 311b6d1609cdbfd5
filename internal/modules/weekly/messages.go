package weekly

// User-facing messages.
const (
	MsgNotFound        = "%d번 주간 퀴즈를 찾을 수 없어요."
	MsgNotPrepared     = "이번 주 퀴즈가 아직 준비되지 않았어요."
	MsgOutOfRange      = "1부터 %d 사이의 번호로 답해 주세요."
	MsgAlreadyAnswered = "%d번은 이미 풀었어요. 다음 문제로 넘어갈게요."
	MsgCorrect         = "%d번 정답이에요! 🎉"
	MsgIncorrect       = "%d번 오답이에요. 정답은 %d번 (%s)이에요."
	MsgCompleted       = "이번 주 퀴즈를 모두 풀었어요! 🎉"
	MsgSummary         = "📅 %d주차 결과\n푼 문제: %d/%d\n맞힌 문제: %d\n정답률: %.0f%%"
	MsgDailyModeHint   = "지금은 데일리 모드예요. 주간 퀴즈만 받고 싶다면 '주간 모드'라고 입력하세요."
	MsgAnswerHint      = "'주간 정답 %d번 (번호)' 형식으로 답하거나 아래 버튼을 눌러 주세요."
)
