// Package plot renders learning curves of experiments to image files
package plot

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"
)

const (
	width  = 900
	height = 600

	// Margins around the plotting area, leaving room for axis labels
	// and the title
	marginLeft   = 80.0
	marginRight  = 30.0
	marginTop    = 50.0
	marginBottom = 60.0

	ticks = 5
)

// Series is a single named learning curve: the sequence of episodic
// returns of one agent, together with the colour to render it with
type Series struct {
	Label   string
	Values  []float64
	R, G, B float64
}

// Smooth returns the moving average of values over the argument
// window. The first window-1 points average over the shorter prefix
// that is available.
func Smooth(values []float64, window int) []float64 {
	if window <= 1 {
		return values
	}

	smoothed := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := window
		if i+1 < window {
			n = i + 1
		}
		smoothed[i] = sum / float64(n)
	}
	return smoothed
}

// LearningCurve renders the argument series as learning curves on a
// single set of axes and saves the figure as a PNG at filename. The
// horizontal axis is the episode number and the vertical axis the
// episodic return. Each series is smoothed with a moving average over
// the argument window before plotting.
func LearningCurve(filename, title string, window int,
	series ...Series) error {
	if len(series) == 0 {
		return fmt.Errorf("learningCurve: at least one series is " +
			"required")
	}

	smoothed := make([][]float64, len(series))
	maxEpisodes := 0
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for i, s := range series {
		if len(s.Values) == 0 {
			return fmt.Errorf("learningCurve: series %q has no data",
				s.Label)
		}
		smoothed[i] = Smooth(s.Values, window)
		if len(smoothed[i]) > maxEpisodes {
			maxEpisodes = len(smoothed[i])
		}
		for _, v := range smoothed[i] {
			yMin = math.Min(yMin, v)
			yMax = math.Max(yMax, v)
		}
	}
	if yMax == yMin {
		yMax = yMin + 1
	}

	plotWidth := float64(width) - marginLeft - marginRight
	plotHeight := float64(height) - marginTop - marginBottom

	// A single-episode series has no horizontal extent
	episodeSpan := float64(maxEpisodes - 1)
	if episodeSpan == 0 {
		episodeSpan = 1
	}

	toX := func(episode int) float64 {
		frac := float64(episode) / episodeSpan
		return marginLeft + frac*plotWidth
	}
	toY := func(value float64) float64 {
		frac := (value - yMin) / (yMax - yMin)
		return float64(height) - marginBottom - frac*plotHeight
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Axes
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1.5)
	dc.DrawLine(marginLeft, marginTop, marginLeft,
		float64(height)-marginBottom)
	dc.DrawLine(marginLeft, float64(height)-marginBottom,
		float64(width)-marginRight, float64(height)-marginBottom)
	dc.Stroke()

	// Ticks and grid lines
	for i := 0; i <= ticks; i++ {
		frac := float64(i) / float64(ticks)

		x := marginLeft + frac*plotWidth
		episode := int(frac * float64(maxEpisodes-1))
		dc.SetRGB(0.85, 0.85, 0.85)
		dc.SetLineWidth(0.5)
		dc.DrawLine(x, marginTop, x, float64(height)-marginBottom)
		dc.Stroke()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(fmt.Sprintf("%d", episode), x,
			float64(height)-marginBottom+15, 0.5, 0.5)

		value := yMin + frac*(yMax-yMin)
		y := toY(value)
		dc.SetRGB(0.85, 0.85, 0.85)
		dc.DrawLine(marginLeft, y, float64(width)-marginRight, y)
		dc.Stroke()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(fmt.Sprintf("%.1f", value),
			marginLeft-10, y, 1.0, 0.5)
	}

	// Axis labels and title
	dc.DrawStringAnchored("Episode", marginLeft+plotWidth/2,
		float64(height)-20, 0.5, 0.5)
	dc.DrawStringAnchored(title, float64(width)/2, marginTop/2, 0.5,
		0.5)
	dc.Push()
	dc.RotateAbout(-math.Pi/2, 20, marginTop+plotHeight/2)
	dc.DrawStringAnchored("Return", 20, marginTop+plotHeight/2, 0.5,
		0.5)
	dc.Pop()

	// Learning curves
	for i, s := range series {
		dc.SetRGB(s.R, s.G, s.B)
		dc.SetLineWidth(2)
		for episode, value := range smoothed[i] {
			dc.LineTo(toX(episode), toY(value))
		}
		dc.Stroke()
	}

	// Legend
	legendX := marginLeft + 15.0
	legendY := marginTop + 15.0
	for _, s := range series {
		dc.SetRGB(s.R, s.G, s.B)
		dc.SetLineWidth(2)
		dc.DrawLine(legendX, legendY, legendX+30, legendY)
		dc.Stroke()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(s.Label, legendX+40, legendY, 0, 0.5)
		legendY += 20
	}

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("learningCurve: could not save figure: %v",
			err)
	}
	return nil
}
