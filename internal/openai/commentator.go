package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"stockReturnsBot/internal/finance"
)

const defaultModel = "gpt-4"

// digestRows caps how many table rows are sent to the model.
const digestRows = 30

// Commentator writes a short descriptive narrative of a portfolio table.
type Commentator struct {
	cli   oa.Client
	model oa.ChatModel
}

func NewCommentator(apiKey string, opts ...option.RequestOption) *Commentator {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Commentator{cli: oa.NewClient(opts...), model: defaultModel}
}

func (c *Commentator) Describe(ctx context.Context, t *finance.PortfolioTable) (string, error) {
	if t == nil || t.Len() == 0 {
		return "", errors.New("empty portfolio table")
	}
	systemPrompt := `You describe the historical behaviour of a weighted basket of securities from the table you are given.
Stick to what the numbers show: overall change, the largest daily moves, and which holdings drove the combined value.
Do not give investment advice, forecasts or recommendations. Plain text, at most 8 short bullet points.`

	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: c.model,
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(digest(t)),
		},
		MaxTokens: oa.Int(600), // keeps the reply inside one telegram message
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// digest renders the allocation, its summary and the most recent rows as compact text.
func digest(t *finance.PortfolioTable) string {
	var b strings.Builder
	sum := t.Summary()

	b.WriteString("Allocation (weight multiplies each daily close):\n")
	for i, s := range t.Symbols {
		fmt.Fprintf(&b, "- %s x %g\n", s, t.Weights[i])
	}
	fmt.Fprintf(&b, "Period: %s to %s, %d trading days\n", sum.From, sum.To, sum.Days)
	fmt.Fprintf(&b, "Combined: %.4f -> %.4f, total return %.2f%%\n", sum.StartCombined, sum.EndCombined, sum.TotalReturn*100)

	if best, worst, ok := extremes(t); ok {
		fmt.Fprintf(&b, "Best day: %s %+.2f%%; worst day: %s %+.2f%%\n",
			t.Rows[best].Date, t.Rows[best].DailyReturn*100, t.Rows[worst].Date, t.Rows[worst].DailyReturn*100)
	}

	rows := t.Rows
	if len(rows) > digestRows {
		fmt.Fprintf(&b, "Last %d of %d rows:\n", digestRows, len(rows))
		rows = rows[len(rows)-digestRows:]
	}
	b.WriteString("date | " + strings.Join(t.Symbols, " | ") + " | combined | daily\n")
	for _, r := range rows {
		cells := make([]string, 0, len(r.Weighted)+3)
		cells = append(cells, r.Date.String())
		for _, v := range r.Weighted {
			cells = append(cells, num(v, "%.2f"))
		}
		cells = append(cells, num(r.Combined, "%.2f"), num(r.DailyReturn*100, "%+.2f%%"))
		b.WriteString(strings.Join(cells, " | ") + "\n")
	}
	return b.String()
}

// extremes returns the rows with the highest and lowest defined daily return.
func extremes(t *finance.PortfolioTable) (best, worst int, ok bool) {
	for i, r := range t.Rows {
		if !finance.Defined(r.DailyReturn) {
			continue
		}
		if !ok {
			best, worst, ok = i, i, true
			continue
		}
		if r.DailyReturn > t.Rows[best].DailyReturn {
			best = i
		}
		if r.DailyReturn < t.Rows[worst].DailyReturn {
			worst = i
		}
	}
	return best, worst, ok
}

func num(v float64, format string) string {
	if !finance.Defined(v) {
		return "-"
	}
	return fmt.Sprintf(format, v)
}
