package account

// User-facing messages.
const (
	MsgSubscribed        = "구독했어요! 매일 %02d:%02d에 오늘의 문제를 보내드릴게요."
	MsgAlreadySubscribed = "이미 구독 중이에요. 매일 %02d:%02d에 문제를 보내드려요."
	MsgUnsubscribed      = "구독을 해지했어요. 언제든 '구독'으로 다시 받을 수 있어요."
	MsgNotSubscribed     = "구독 중이 아니에요. '구독'이라고 입력하면 매일 문제를 받을 수 있어요."
	MsgModeWeekly        = "주간 모드로 바꿨어요. '주간 퀴즈'로 이번 주 7문제를 풀어 보세요."
	MsgModeDaily         = "데일리 모드로 바꿨어요. '오늘의 문제'로 시작해 보세요."
	MsgAlreadyModeWeekly = "이미 주간 모드예요."
	MsgAlreadyModeDaily  = "이미 데일리 모드예요."
	MsgStats             = "📊 내 기록\n푼 문제: %d\n맞힌 문제: %d\n정답률: %.1f%%\n연속 풀이: %d일"
	MsgStatsSettings     = "학습 방식: %s · 구독: %s"
	MsgStatsTemporary    = "웹 계정과 연동하면 기록을 안전하게 보관할 수 있어요. '연동'이라고 입력해 보세요."
	MsgStatsLLMQuota     = "오늘 남은 AI 대화 횟수: %d회"
	MsgLinkTitle         = "계정 연동 코드"
	MsgLinkFailed        = "연동 코드를 만들 수 없어요. 잠시 후 다시 시도해 주세요."
	MsgLinkBody          = "코드: %s\n\n%d분 안에 웹사이트에 로그인한 뒤 이 코드를 입력해 주세요. 코드는 한 번만 쓸 수 있어요."
	MsgLinkAlreadyLinked = "\n\n이미 웹 계정과 연결되어 있어요. 다른 계정에 입력하면 그 계정으로 옮겨져요."
	MsgLinkButton        = "웹에서 연동하기"
	modeLabelDaily       = "데일리"
	modeLabelWeekly      = "주간"
	subscribedLabelOn    = "켜짐"
	subscribedLabelOff   = "꺼짐"
)
