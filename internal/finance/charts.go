package finance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vicanso/go-charts/v2"

	"stockReturnsBot/internal/date"
)

// RenderSeriesChart draws the close line of a stored series as a PNG.
func RenderSeriesChart(s TimeSeries) ([]byte, error) {
	if s.Len() < 2 {
		return nil, errors.New("not enough data points")
	}
	last := s.Rows[s.Len()-1].Date
	cacheKey := fmt.Sprintf("series-%s-%s-%s-%d", s.Symbol, s.Start, last, s.Len())
	if img, ok := chartImages.get(cacheKey); ok {
		return img, nil
	}
	title := fmt.Sprintf("%s • 1d • %s → %s", strings.ToUpper(s.Symbol), s.Rows[0].Date, last)
	img, err := renderLine(title, s.Dates(), s.Closes())
	if err != nil {
		return nil, err
	}
	chartImages.put(cacheKey, img)
	return img, nil
}

// renderLine draws one line, skipping undefined points, with a padded y range.
func renderLine(title string, days []date.Date, values []float64) ([]byte, error) {
	var (
		labels     []string
		ys         []float64
		yMin, yMax float64
	)
	for i, v := range values {
		if !Defined(v) {
			continue
		}
		if len(ys) == 0 || v < yMin {
			yMin = v
		}
		if len(ys) == 0 || v > yMax {
			yMax = v
		}
		labels = append(labels, dayLabel(days[i], len(days)))
		ys = append(ys, v)
	}
	if len(ys) < 2 {
		return nil, errors.New("no valid data points")
	}

	pad := (yMax - yMin) * 0.05
	if pad == 0 {
		pad = yMax * 0.05
	}
	yMin -= pad
	yMax += pad

	splitNum := 6
	if len(labels) <= 30 {
		splitNum = max(len(labels)/3, 3)
	}

	p, err := charts.LineRender(
		[][]float64{ys},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

func dayLabel(d date.Date, points int) string {
	if points <= 60 {
		return d.Time().Format("Jan 02")
	}
	return d.Time().Format("Jan '06")
}
