package claude

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
	"github.com/floodwatch/waterpoint-prioritiser/internal/observability"
)

func f64Ptr(f float64) *float64 { return &f }

func testClassifier(answer string, callErr error) (*Classifier, *sdk.MessageNewParams) {
	var captured sdk.MessageNewParams
	c := &Classifier{
		model:     "claude-haiku-4-5-20251001",
		maxTokens: 256,
		metrics:   observability.NewMetricsForTesting(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		newMessage: func(_ context.Context, params sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
			captured = params
			if callErr != nil {
				return nil, callErr
			}
			return &sdk.Message{
				Content: []sdk.ContentBlockUnion{{Type: "text", Text: answer}},
			}, nil
		},
	}
	return c, &captured
}

func TestClassifier_Classify(t *testing.T) {
	rec := domain.WaterpointRecord{
		ID:         "wp-7",
		District:   "Kurigram",
		SourceType: "tubewell",
		Status:     domain.StatusFunctional,
		Lat:        f64Ptr(25.7439),
		Lon:        f64Ptr(89.275),
	}

	c, captured := testClassifier(`{"flood_risk": "High", "rationale": "Low-lying char land near the main channel."}`, nil)

	assessment, err := c.Classify(context.Background(), rec, f64Ptr(14.2))
	require.NoError(t, err)
	assert.Equal(t, domain.VulnerabilityHigh, assessment.Label)
	assert.Equal(t, "Low-lying char land near the main channel.", assessment.Rationale)

	// The record's attributes reach the model.
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, sdk.Model("claude-haiku-4-5-20251001"), captured.Model)
	assert.Equal(t, int64(256), captured.MaxTokens)
}

func TestClassifier_Classify_APIError(t *testing.T) {
	c, _ := testClassifier("", errors.New("overloaded"))

	_, err := c.Classify(context.Background(), domain.WaterpointRecord{ID: "wp-7"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wp-7")
}

func TestClassifier_Classify_UnusableAnswerIsAbsenceNotError(t *testing.T) {
	c, _ := testClassifier("I cannot assess this waterpoint.", nil)

	assessment, err := c.Classify(context.Background(), domain.WaterpointRecord{ID: "wp-7"}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.VulnerabilityUnclassified, assessment.Label)
}

func TestParseAssessment(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		a, ok := parseAssessment(`{"flood_risk": "Medium", "rationale": "Moderate elevation."}`)
		assert.True(t, ok)
		assert.Equal(t, domain.VulnerabilityMedium, a.Label)
		assert.Equal(t, "Moderate elevation.", a.Rationale)
	})

	t.Run("fenced JSON", func(t *testing.T) {
		a, ok := parseAssessment("```json\n{\"flood_risk\": \"Low\", \"rationale\": \"Elevated embankment site.\"}\n```")
		assert.True(t, ok)
		assert.Equal(t, domain.VulnerabilityLow, a.Label)
	})

	t.Run("JSON wrapped in prose", func(t *testing.T) {
		a, ok := parseAssessment("Here is my assessment:\n{\"flood_risk\": \"high\", \"rationale\": \"ok\"}\nLet me know.")
		assert.True(t, ok)
		assert.Equal(t, domain.VulnerabilityHigh, a.Label)
	})

	t.Run("moderate alias", func(t *testing.T) {
		a, ok := parseAssessment(`{"flood_risk": "moderate", "rationale": ""}`)
		assert.True(t, ok)
		assert.Equal(t, domain.VulnerabilityMedium, a.Label)
	})

	t.Run("unrecognized label", func(t *testing.T) {
		a, ok := parseAssessment(`{"flood_risk": "catastrophic", "rationale": "r"}`)
		assert.False(t, ok)
		assert.Equal(t, domain.VulnerabilityUnclassified, a.Label)
		assert.Equal(t, "r", a.Rationale, "rationale survives for audit")
	})

	t.Run("not JSON", func(t *testing.T) {
		a, ok := parseAssessment("no structured answer")
		assert.False(t, ok)
		assert.Equal(t, domain.VulnerabilityUnclassified, a.Label)
	})
}

func TestUserPrompt_AbsentFieldsStated(t *testing.T) {
	prompt := userPrompt(domain.WaterpointRecord{ID: "wp-1", Status: domain.StatusUnknown}, nil)

	assert.Contains(t, prompt, "Waterpoint wp-1")
	assert.Contains(t, prompt, "Source type: not recorded")
	assert.Contains(t, prompt, "Location: not recorded")
	assert.Contains(t, prompt, "Terrain elevation: not available")
}
