package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/aeropinn/internal/trainer"
)

var palette = []string{"#00ff00", "#ff8800", "#33aaff", "#ff3366", "#cccc00", "#cc66ff"}

// Series is one named curve.
type Series struct {
	Name   string
	Values []float64
}

// SVGOptions controls the rendered chart.
type SVGOptions struct {
	Width, Height int
	// LogScale plots log10 of every value; non-positive points are skipped.
	LogScale bool
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 800, Height: 400, LogScale: true}
}

// HistorySeries extracts the named columns of a training history.
func HistorySeries(h trainer.History, columns ...string) ([]Series, error) {
	out := make([]Series, 0, len(columns))
	for _, col := range columns {
		vals, err := h.Column(col)
		if err != nil {
			return nil, err
		}
		out = append(out, Series{Name: col, Values: vals})
	}
	return out, nil
}

// WriteSVG draws every series against its index on shared axes.
func WriteSVG(w io.Writer, series []Series, opts SVGOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("svg: invalid size %dx%d", opts.Width, opts.Height)
	}
	scaled, maxLen := make([][]float64, len(series)), 0
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i, s := range series {
		scaled[i] = make([]float64, len(s.Values))
		for j, v := range s.Values {
			if opts.LogScale {
				if v > 0 {
					v = math.Log10(v)
				} else {
					v = math.NaN()
				}
			}
			scaled[i][j] = v
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
		if len(s.Values) > maxLen {
			maxLen = len(s.Values)
		}
	}
	if maxLen < 2 || math.IsInf(minY, 1) {
		return fmt.Errorf("svg: need at least two finite points")
	}

	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY
	rangeX := float64(maxLen - 1)
	width, height := float64(opts.Width), float64(opts.Height)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, opts.Width, opts.Height, opts.Width, opts.Height)

	for i, s := range scaled {
		color := palette[i%len(palette)]
		var path strings.Builder
		pen := false
		for j, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				pen = false
				continue
			}
			x := float64(j) / rangeX * width
			y := height - (v-minY)/rangeY*height
			if pen {
				fmt.Fprintf(&path, " L%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&path, " M%.1f,%.1f", x, y)
				pen = true
			}
		}
		if path.Len() == 0 {
			continue
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="%s"/>
`, color, strings.TrimSpace(path.String()))
		fmt.Fprintf(&sb, `<text x="10" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 18+16*i, color, series[i].Name)
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
