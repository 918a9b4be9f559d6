package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"julianmorley.ca/pureview/api/pkg/global"
	"julianmorley.ca/pureview/api/pkg/models"
)

const SalesReportSystemPrompt = `You are a business analyst for PureView, a small online furniture and decor shop.
Generate concise, actionable insights from order data. Focus on:
- How orders move through pending, processing and shipped
- Daily demand and revenue trends
- Specific recommendations for the store owner
Keep responses to 3 paragraphs maximum.`

// SalesInsights asks the model to comment on an order summary.
func (i *Insights) SalesInsights(ctx context.Context, summary *models.SalesSummary) (string, error) {
	if summary == nil {
		return "", global.Validation("summary is required")
	}
	prompt, err := formatSalesPrompt(summary)
	if err != nil {
		return "", err
	}
	return i.generateCompletion(ctx, SalesReportSystemPrompt, prompt)
}

func formatSalesPrompt(summary *models.SalesSummary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	return fmt.Sprintf(`Analyze the following order summary and provide business insights:

%s

Please provide:
1. Highlights for the period
2. Orders that look stuck before shipping
3. Next steps for the owner`, string(data)), nil
}
