// Package claude implements domain.VulnerabilityClassifier using the
// Anthropic Messages API. The model's answer is parsed into the small
// recognized label set; anything it says beyond the label travels only in
// the audit rationale and never influences tiering.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
	"github.com/floodwatch/waterpoint-prioritiser/internal/observability"
)

const systemPrompt = `You assess the flood vulnerability of drinking-water infrastructure in the monsoon floodplain districts of northern Bangladesh. Given one waterpoint's attributes, classify its flood vulnerability as exactly one of High, Medium, or Low. Consider terrain elevation (low-lying sites flood first), source type (dug wells contaminate more easily than sealed boreholes), and functionality status. Respond with a valid JSON object: {"flood_risk": "<High|Medium|Low>", "rationale": "<one or two sentences>"}`

// Classifier calls the Messages API once per waterpoint.
type Classifier struct {
	model     string
	maxTokens int64
	metrics   *observability.Metrics
	logger    *slog.Logger

	// newMessage is the API call, a field so tests can stub the network.
	newMessage func(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// NewClassifier creates a classifier. The API key is injected here and
// held by the underlying SDK client only.
func NewClassifier(apiKey, model string, maxTokens int64, metrics *observability.Metrics, logger *slog.Logger) *Classifier {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &Classifier{
		model:      model,
		maxTokens:  maxTokens,
		metrics:    metrics,
		logger:     logger,
		newMessage: client.Messages.New,
	}
}

// Classify requests a vulnerability judgment for one waterpoint.
func (c *Classifier) Classify(ctx context.Context, rec domain.WaterpointRecord, elevation *float64) (domain.VulnerabilityAssessment, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: sdk.Float(0),
		System:      []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(userPrompt(rec, elevation))),
		},
	}

	start := time.Now()
	msg, err := c.newMessage(ctx, params)
	c.metrics.ProviderDuration.WithLabelValues("vulnerability").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.EnrichmentRequests.WithLabelValues("vulnerability", "error").Inc()
		return domain.VulnerabilityAssessment{}, fmt.Errorf("classify waterpoint %s: %w", rec.ID, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	assessment, ok := parseAssessment(text.String())
	if !ok {
		c.metrics.EnrichmentRequests.WithLabelValues("vulnerability", "empty").Inc()
		c.logger.Warn("unclassifiable vulnerability answer",
			"waterpoint_id", rec.ID,
			"answer_len", text.Len(),
		)
		return assessment, nil
	}

	c.metrics.EnrichmentRequests.WithLabelValues("vulnerability", "success").Inc()
	return assessment, nil
}

// userPrompt renders the waterpoint attributes the model judges from.
// Absent fields are stated as such rather than omitted, so the model
// does not invent values for them.
func userPrompt(rec domain.WaterpointRecord, elevation *float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Waterpoint %s", rec.ID)
	if rec.District != "" {
		fmt.Fprintf(&b, " in %s district", rec.District)
	}
	b.WriteString(".\n")

	if rec.SourceType != "" {
		fmt.Fprintf(&b, "Source type: %s\n", rec.SourceType)
	} else {
		b.WriteString("Source type: not recorded\n")
	}
	fmt.Fprintf(&b, "Status: %s\n", rec.Status)

	if rec.Lat != nil && rec.Lon != nil {
		fmt.Fprintf(&b, "Location: %.5f, %.5f\n", *rec.Lat, *rec.Lon)
	} else {
		b.WriteString("Location: not recorded\n")
	}

	if elevation != nil {
		fmt.Fprintf(&b, "Terrain elevation: %.1f m\n", *elevation)
	} else {
		b.WriteString("Terrain elevation: not available\n")
	}
	return b.String()
}

// parseAssessment extracts the label and rationale from the model's
// answer. Returns ok=false with an Unclassified assessment when the
// answer cannot be used; the caller treats that as absence, never as an
// error that would fail the record.
func parseAssessment(text string) (domain.VulnerabilityAssessment, bool) {
	var parsed struct {
		FloodRisk string `json:"flood_risk"`
		Rationale string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &parsed); err != nil {
		return domain.VulnerabilityAssessment{Label: domain.VulnerabilityUnclassified}, false
	}

	label := domain.ParseVulnerabilityLabel(parsed.FloodRisk)
	if !label.Classified() {
		return domain.VulnerabilityAssessment{
			Label:     domain.VulnerabilityUnclassified,
			Rationale: strings.TrimSpace(parsed.Rationale),
		}, false
	}

	return domain.VulnerabilityAssessment{
		Label:     label,
		Rationale: strings.TrimSpace(parsed.Rationale),
	}, true
}

// extractJSON tolerates markdown code fences and prose around the JSON
// object models occasionally emit despite instructions.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
