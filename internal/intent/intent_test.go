package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchLiterals(t *testing.T) {
	m := New()
	tests := []struct {
		input string
		want  Command
		text  string
	}{
		{"연동", CmdLink, ""},
		{"계정 연결 해주세요", CmdLink, "해주세요"},
		{"구독 해지", CmdUnsubscribe, ""},
		{"구독해지할래요", CmdUnsubscribe, "할래요"},
		{"구독 취소", CmdUnsubscribe, ""},
		{"구독", CmdSubscribe, ""},
		{"주간 모드", CmdModeWeekly, ""},
		{"데일리 모드로 바꿔줘", CmdModeDaily, "로 바꿔줘"},
		{"일간 모드", CmdModeDaily, ""},
		{"주간 퀴즈", CmdWeeklyQuiz, ""},
		{"주간 퀴즈 3", CmdWeeklyQuiz, "3"},
		{"주간퀴즈", CmdWeeklyQuiz, ""},
		{"주간 결과", CmdWeeklySummary, ""},
		{"통계", CmdStats, ""},
		{"내 기록 보여줘", CmdStats, "보여줘"},
		{"오늘의 문제", CmdToday, ""},
		{"문제", CmdToday, ""},
		{"도움말", CmdHelp, ""},
		{"HELP", CmdHelp, ""},
		{"사용법", CmdHelp, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := m.Match(tt.input)
			assert.Equal(t, tt.want, got.Command)
			assert.Equal(t, KindLiteral, got.Kind)
			assert.Equal(t, tt.text, got.Text)
		})
	}
}

func TestMatchPrecedence(t *testing.T) {
	m := New()
	tests := []struct {
		name  string
		input string
		want  Command
	}{
		{"literal beats answer pattern", "문제 1", CmdToday},
		{"unsubscribe before subscribe", "구독 해지", CmdUnsubscribe},
		{"link before subscribe", "구독 연동", CmdLink},
		{"weekly mode before weekly quiz", "주간 모드 주간 퀴즈", CmdModeWeekly},
		{"weekly quiz before today", "주간 퀴즈 문제", CmdWeeklyQuiz},
		{"stats before today", "문제 통계", CmdStats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.input).Command)
		})
	}
}

func TestMatchPatterns(t *testing.T) {
	m := New()

	got := m.Match("3")
	assert.Equal(t, CmdAnswer, got.Command)
	assert.Equal(t, KindPattern, got.Kind)
	assert.Equal(t, []int{3}, got.Args)

	got = m.Match(" 12 ")
	assert.Equal(t, CmdAnswer, got.Command)
	assert.Equal(t, 12, got.Int(0))

	got = m.Match("주간 정답 2 번 4")
	assert.Equal(t, CmdWeeklyAnswer, got.Command)
	assert.Equal(t, []int{2, 4}, got.Args)

	got = m.Match("주간정답3번1")
	assert.Equal(t, CmdWeeklyAnswer, got.Command)
	assert.Equal(t, 3, got.Int(0))
	assert.Equal(t, 1, got.Int(1))
	assert.Equal(t, 0, got.Int(2))
}

func TestMatchUnknown(t *testing.T) {
	m := New()
	for _, input := range []string{"", "   ", "\t\n", "0", "01", "-1", "1.5", "안녕", "주간 정답 0 번 1", "99999999999999999999999"} {
		t.Run(input, func(t *testing.T) {
			got := m.Match(input)
			assert.Equal(t, CmdUnknown, got.Command)
			assert.Equal(t, KindNone, got.Kind)
			assert.Nil(t, got.Args)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  오늘의   문제 ", "오늘의 문제"},
		{"３", "3"},
		{"ＨＥＬＰ", "HELP"},
		// decomposed jamo compose to the precomposed syllable
		{"\u1106\u116e\u11ab\u110c\u1166", "문제"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.input))
	}
}

func TestMatchFullWidthDigits(t *testing.T) {
	got := New().Match("２")
	assert.Equal(t, CmdAnswer, got.Command)
	assert.Equal(t, []int{2}, got.Args)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "literal", KindLiteral.String())
	assert.Equal(t, "pattern", KindPattern.String())
	assert.Equal(t, "none", KindNone.String())
}
