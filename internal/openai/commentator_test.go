package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockReturnsBot/internal/date"
	"stockReturnsBot/internal/finance"
)

type barSource map[string][]finance.Bar

func (s barSource) History(ctx context.Context, symbol string, start, end date.Date) ([]finance.Bar, error) {
	return s[symbol], nil
}

func sampleTable(t *testing.T) *finance.PortfolioTable {
	t.Helper()
	day := date.MustParse("2024-01-02")
	src := barSource{}
	for i, c := range []float64{100, 110, 121} {
		src["A"] = append(src["A"], finance.Bar{Date: day.Add(i), Close: c})
	}
	for i, c := range []float64{50, 45, 40} {
		src["B"] = append(src["B"], finance.Bar{Date: day.Add(i), Close: c})
	}
	store := finance.NewDataStore(src, zerolog.Nop())
	require.NoError(t, store.Fetch(context.Background(), []string{"A", "B"}, day, day.Add(3)))
	table, err := finance.NewAggregator(store).Allocate([]string{"A", "B"}, []float64{0.5, 0.5})
	require.NoError(t, err)
	return table
}

func TestDigest(t *testing.T) {
	out := digest(sampleTable(t))
	assert.Contains(t, out, "- A x 0.5")
	assert.Contains(t, out, "Period: 2024-01-02 to 2024-01-04, 3 trading days")
	assert.Contains(t, out, "Combined: 75.0000 -> 80.5000")
	assert.Contains(t, out, "Best day: 2024-01-04")
	assert.Contains(t, out, "2024-01-02 | 50.00 | 25.00 | 75.00 | -")
}

func TestDescribe(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		require.Len(t, req.Messages, 2)
		prompt = req.Messages[1].Content

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  - A rose 21%  "}}]}`))
	}))
	defer srv.Close()

	c := NewCommentator("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	text, err := c.Describe(context.Background(), sampleTable(t))
	require.NoError(t, err)
	assert.Equal(t, "- A rose 21%", text)
	assert.Contains(t, prompt, "Combined: 75.0000 -> 80.5000")
}

func TestDescribeEmptyTable(t *testing.T) {
	_, err := NewCommentator("k").Describe(context.Background(), &finance.PortfolioTable{})
	assert.Error(t, err)
}
