package finance

import (
	"errors"
	"fmt"
	"strings"
)

// RenderPortfolioChart draws the normalized combined value (Combined_N) of a table as a PNG.
// The title lists the allocation and the headline figures.
func RenderPortfolioChart(t *PortfolioTable) ([]byte, error) {
	if t == nil || t.Len() < 2 {
		return nil, errors.New("not enough data points")
	}
	sum := t.Summary()

	var composition []string
	for i, symbol := range t.Symbols {
		composition = append(composition, fmt.Sprintf("%s ×%g", symbol, t.Weights[i]))
	}
	cacheKey := fmt.Sprintf("port-%s-%s-%s-%d-%g", strings.Join(composition, ","), sum.From, sum.To, sum.Days, sum.EndCombined)
	if img, ok := chartImages.get(cacheKey); ok {
		return img, nil
	}

	title := fmt.Sprintf("Portfolio (%s)", strings.Join(composition, ", "))
	subtitle := fmt.Sprintf("%s → %s | Total: %.2f%% | Last day: %.2f%% | Last log: %.4f",
		sum.From, sum.To, sum.TotalReturn*100, sum.LastDailyReturn*100, sum.LastLogReturn)

	img, err := renderLine(title+"\n"+subtitle, t.Dates(), t.CombinedN())
	if err != nil {
		return nil, err
	}
	chartImages.put(cacheKey, img)
	return img, nil
}
