package genai

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/quizbot-go/internal/intent"
	"github.com/garyellow/quizbot-go/internal/metrics"
)

type fakeClassifier struct {
	provider Provider
	results  []*Classification
	errs     []error
	calls    int
	closed   bool
}

func (f *fakeClassifier) Classify(_ context.Context, _ string) (*Classification, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return &Classification{Command: intent.CmdHelp, Provider: f.provider}, nil
}

func (f *fakeClassifier) Provider() Provider { return f.provider }

func (f *fakeClassifier) Close() error {
	f.closed = true
	return nil
}

func noDelay() RetryConfig {
	return RetryConfig{MaxAttempts: 2}
}

func TestToClassification(t *testing.T) {
	t.Run("select command", func(t *testing.T) {
		c, err := toClassification(ProviderGemini, funcSelectCommand, map[string]any{paramCommand: "stats"})
		require.NoError(t, err)
		assert.Equal(t, intent.CmdStats, c.Command)
		assert.Equal(t, ProviderGemini, c.Provider)
	})

	t.Run("argument command rejected", func(t *testing.T) {
		_, err := toClassification(ProviderGemini, funcSelectCommand, map[string]any{paramCommand: "answer"})
		var llmErr *LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, ActionFallback, ClassifyError(err))
	})

	t.Run("missing parameter", func(t *testing.T) {
		_, err := toClassification(ProviderOpenAI, funcSelectCommand, nil)
		require.Error(t, err)
	})

	t.Run("direct reply", func(t *testing.T) {
		c, err := toClassification(ProviderOpenAI, funcDirectReply, map[string]any{paramMessage: "안녕하세요!"})
		require.NoError(t, err)
		assert.Equal(t, intent.CmdUnknown, c.Command)
		assert.Equal(t, "안녕하세요!", c.Reply)
	})

	t.Run("unknown function", func(t *testing.T) {
		_, err := toClassification(ProviderOpenAI, "delete_everything", nil)
		require.Error(t, err)
	})
}

func TestBuildFunctionsEnum(t *testing.T) {
	decls := BuildFunctions()
	require.Len(t, decls, 2)
	enum := decls[0].Parameters.Properties[paramCommand].Enum
	assert.Len(t, enum, len(ClassifiableCommands))
	assert.NotContains(t, enum, string(intent.CmdAnswer))
	assert.NotContains(t, enum, string(intent.CmdWeeklyAnswer))
}

func TestBuildOpenAITools(t *testing.T) {
	tools := buildOpenAITools()
	assert.Len(t, tools, 2)
}

func TestFallbackClassifierRetriesTransient(t *testing.T) {
	transient := &LLMError{Err: errors.New("busy"), StatusCode: http.StatusServiceUnavailable, Provider: ProviderGemini}
	primary := &fakeClassifier{provider: ProviderGemini, errs: []error{transient}}
	m := metrics.New(prometheus.NewRegistry())

	f := NewFallbackClassifier([]Classifier{primary}, noDelay(), m)
	got, err := f.Classify(context.Background(), "오늘 퀴즈 줘")
	require.NoError(t, err)
	assert.Equal(t, intent.CmdHelp, got.Command)
	assert.Equal(t, 2, primary.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("gemini", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("gemini", "success")), 0)
}

func TestFallbackClassifierMovesToNextProvider(t *testing.T) {
	protocol := &LLMError{Err: errors.New("no function call"), Provider: ProviderGemini}
	primary := &fakeClassifier{provider: ProviderGemini, errs: []error{protocol}}
	secondary := &fakeClassifier{provider: ProviderOpenAI, results: []*Classification{{Command: intent.CmdStats, Provider: ProviderOpenAI}}}

	f := NewFallbackClassifier([]Classifier{primary, secondary}, noDelay(), nil)
	got, err := f.Classify(context.Background(), "내 점수 어때")
	require.NoError(t, err)
	assert.Equal(t, intent.CmdStats, got.Command)
	assert.Equal(t, ProviderOpenAI, got.Provider)
	assert.Equal(t, 1, primary.calls)
}

func TestFallbackClassifierStopsOnFatal(t *testing.T) {
	fatal := &LLMError{Err: errors.New("bad key"), StatusCode: http.StatusUnauthorized, Provider: ProviderGemini}
	primary := &fakeClassifier{provider: ProviderGemini, errs: []error{fatal}}
	secondary := &fakeClassifier{provider: ProviderOpenAI}

	f := NewFallbackClassifier([]Classifier{primary, secondary}, noDelay(), nil)
	_, err := f.Classify(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, 0, secondary.calls)
}

func TestFallbackClassifierClose(t *testing.T) {
	a := &fakeClassifier{provider: ProviderGemini}
	b := &fakeClassifier{provider: ProviderOpenAI}
	f := NewFallbackClassifier([]Classifier{a, b}, noDelay(), nil)
	require.NoError(t, f.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Equal(t, ProviderGemini, f.Provider())
}

func TestNewClassifierWithoutKeys(t *testing.T) {
	c, err := NewClassifier(context.Background(), Config{Providers: []Provider{ProviderGemini, ProviderOpenAI}}, nil)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestConfiguredProviders(t *testing.T) {
	cfg := Config{
		Providers: []Provider{ProviderOpenAI, ProviderGemini},
		Gemini:    ProviderConfig{APIKey: "g"},
	}
	assert.Equal(t, []Provider{ProviderGemini}, cfg.ConfiguredProviders())
}
