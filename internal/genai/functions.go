package genai

import (
	"slices"

	"github.com/garyellow/quizbot-go/internal/intent"
	"google.golang.org/genai"
)

// Function names exposed to the model.
const (
	funcSelectCommand = "select_command"
	funcDirectReply   = "direct_reply"

	paramCommand = "command"
	paramMessage = "message"
)

// ClassifiableCommands are the commands an LLM may select. Commands that need
// arguments (answers, link codes) are never guessed.
var ClassifiableCommands = []intent.Command{
	intent.CmdToday,
	intent.CmdWeeklyQuiz,
	intent.CmdWeeklySummary,
	intent.CmdStats,
	intent.CmdSubscribe,
	intent.CmdUnsubscribe,
	intent.CmdModeDaily,
	intent.CmdModeWeekly,
	intent.CmdLink,
	intent.CmdHelp,
}

// IsClassifiable reports whether cmd may come from the classifier.
func IsClassifiable(cmd intent.Command) bool {
	return slices.Contains(ClassifiableCommands, cmd)
}

func commandEnum() []string {
	out := make([]string, len(ClassifiableCommands))
	for i, c := range ClassifiableCommands {
		out[i] = string(c)
	}
	return out
}

// BuildFunctions returns the function declarations shared by all providers.
func BuildFunctions() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        funcSelectCommand,
			Description: "사용자가 원하는 퀴즈봇 명령을 선택합니다.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					paramCommand: {
						Type:        genai.TypeString,
						Description: "실행할 명령 이름",
						Enum:        commandEnum(),
					},
				},
				Required: []string{paramCommand},
			},
		},
		{
			Name:        funcDirectReply,
			Description: "인사, 감사, 잡담, 퀴즈봇과 무관한 질문에 짧게 직접 답합니다.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					paramMessage: {
						Type:        genai.TypeString,
						Description: "사용자에게 보낼 한두 문장의 한국어 답변",
					},
				},
				Required: []string{paramMessage},
			},
		},
	}
}

// toClassification converts a function call into a Classification.
func toClassification(provider Provider, name string, args map[string]any) (*Classification, error) {
	switch name {
	case funcSelectCommand:
		raw, ok := args[paramCommand].(string)
		if !ok {
			return nil, &LLMError{Err: errMissingParam(paramCommand), Provider: provider}
		}
		cmd := intent.Command(raw)
		if !IsClassifiable(cmd) {
			return nil, &LLMError{Err: errUnknownCommand(raw), Provider: provider}
		}
		return &Classification{Command: cmd, Provider: provider, FunctionName: name}, nil
	case funcDirectReply:
		msg, _ := args[paramMessage].(string)
		return &Classification{Command: intent.CmdUnknown, Reply: msg, Provider: provider, FunctionName: name}, nil
	default:
		return nil, &LLMError{Err: errUnknownFunction(name), Provider: provider}
	}
}
