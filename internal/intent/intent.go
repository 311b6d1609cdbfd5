// Package intent maps a raw chat utterance to a command.
//
// Matching runs in two stages. The literal table is scanned in order and the
// first row whose phrase is contained in the utterance wins. Only when no
// literal matches are the regular-expression patterns tried, again in order.
// Row order is significant: narrower phrases ("구독 해지") must come before
// broader ones ("구독") they contain.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Command identifies a handler.
type Command string

// Commands
const (
	CmdLink          Command = "link"
	CmdUnsubscribe   Command = "unsubscribe"
	CmdSubscribe     Command = "subscribe"
	CmdModeWeekly    Command = "mode_weekly"
	CmdModeDaily     Command = "mode_daily"
	CmdWeeklyQuiz    Command = "weekly_quiz"
	CmdWeeklySummary Command = "weekly_summary"
	CmdStats         Command = "stats"
	CmdToday         Command = "today"
	CmdHelp          Command = "help"
	CmdAnswer        Command = "answer"
	CmdWeeklyAnswer  Command = "weekly_answer"
	CmdUnknown       Command = "unknown"
)

// Kind records which stage produced a match.
type Kind int

// Match kinds
const (
	KindNone Kind = iota
	KindLiteral
	KindPattern
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindPattern:
		return "pattern"
	default:
		return "none"
	}
}

// Result is the outcome of matching one utterance.
type Result struct {
	Command Command
	Kind    Kind
	// Args holds integer captures for pattern matches.
	Args []int
	// Text is the utterance with the matched phrase removed, trimmed.
	// Literal commands that take an optional argument read it from here.
	Text string
}

// Int returns the i-th integer argument, or 0 if absent.
func (r Result) Int(i int) int {
	if i < 0 || i >= len(r.Args) {
		return 0
	}
	return r.Args[i]
}

type literalRule struct {
	phrases []string
	command Command
}

type patternRule struct {
	re      *regexp.Regexp
	command Command
}

// literals is the authoritative order of the literal table.
var literals = []literalRule{
	{[]string{"연동", "계정 연결"}, CmdLink},
	{[]string{"구독 해지", "구독해지", "구독 취소"}, CmdUnsubscribe},
	{[]string{"구독"}, CmdSubscribe},
	{[]string{"주간 모드", "주간모드"}, CmdModeWeekly},
	{[]string{"데일리 모드", "일간 모드", "데일리모드"}, CmdModeDaily},
	{[]string{"주간 퀴즈", "주간퀴즈"}, CmdWeeklyQuiz},
	{[]string{"주간 결과"}, CmdWeeklySummary},
	{[]string{"통계", "내 기록"}, CmdStats},
	{[]string{"오늘의 문제", "문제"}, CmdToday},
	{[]string{"도움말", "help", "사용법"}, CmdHelp},
}

var patterns = []patternRule{
	{regexp.MustCompile(`^([1-9][0-9]*)$`), CmdAnswer},
	{regexp.MustCompile(`^주간\s*정답\s*([1-9][0-9]*)\s*번\s*([1-9][0-9]*)$`), CmdWeeklyAnswer},
}

// Matcher resolves utterances against the literal table and patterns.
// The zero value is not usable; call New.
type Matcher struct {
	literals []literalRule
	patterns []patternRule
}

// New returns a Matcher with the built-in command table.
func New() *Matcher {
	return &Matcher{literals: literals, patterns: patterns}
}

// Match resolves an utterance. Empty or whitespace-only input is unknown.
func (m *Matcher) Match(utterance string) Result {
	text := Normalize(utterance)
	if text == "" {
		return Result{Command: CmdUnknown, Kind: KindNone}
	}

	lower := asciiLower(text)
	for _, rule := range m.literals {
		for _, phrase := range rule.phrases {
			idx := strings.Index(lower, phrase)
			if idx < 0 {
				continue
			}
			rest := text[:idx] + " " + text[idx+len(phrase):]
			return Result{
				Command: rule.command,
				Kind:    KindLiteral,
				Text:    strings.TrimSpace(collapseSpaces(rest)),
			}
		}
	}

	for _, rule := range m.patterns {
		groups := rule.re.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		args := make([]int, 0, len(groups)-1)
		valid := true
		for _, g := range groups[1:] {
			n, err := strconv.Atoi(g)
			if err != nil {
				// overflowing digit strings
				valid = false
				break
			}
			args = append(args, n)
		}
		if !valid {
			continue
		}
		return Result{Command: rule.command, Kind: KindPattern, Args: args}
	}

	return Result{Command: CmdUnknown, Kind: KindNone, Text: text}
}

// Normalize composes Hangul (NFC), folds full-width ASCII to its narrow
// form, trims, and collapses runs of whitespace into a single space.
func Normalize(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = norm.NFC.String(s)
	s = width.Fold.String(s)
	return strings.TrimSpace(collapseSpaces(s))
}

// asciiLower lowercases only ASCII letters so byte offsets stay aligned
// with the original string.
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
