package monitor

import (
	"bytes"
	"sync"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// TimeSeries plots a rolling window of sampled values against block count.
type TimeSeries struct {
	mu          sync.Mutex
	buf         []float64
	size        int
	name        string
	yLabel      string
	yMin, yMax  float64
	plotOptions []PlotOptions
}

func NewTimeSeries(name, yLabel string, size int, yMin, yMax float64) *TimeSeries {
	return &TimeSeries{
		size:   size,
		name:   name,
		yLabel: yLabel,
		yMin:   yMin,
		yMax:   yMax,
	}
}

func (t *TimeSeries) Name() string {
	return t.name
}

func (t *TimeSeries) AddPlotOption(opt PlotOptions) {
	t.plotOptions = append(t.plotOptions, opt)
}

// Append adds samples to the rolling window.
func (t *TimeSeries) Append(values ...float64) {
	t.mu.Lock()
	t.buf = append(t.buf, values...)
	if len(t.buf) > t.size {
		t.buf = t.buf[len(t.buf)-t.size:]
	}
	t.mu.Unlock()
}

func (t *TimeSeries) GetImage() *ImageContainer {
	t.mu.Lock()
	buf := make([]float64, len(t.buf))
	copy(buf, t.buf)
	t.mu.Unlock()

	if len(buf) == 0 {
		return nil
	}

	p := plotWithDefaults()
	p.Title.Text = t.name
	p.Y.Label.Text = t.yLabel
	p.Y.Min = t.yMin
	p.Y.Max = t.yMax
	p.X.Label.Text = "blocks"

	for _, opt := range t.plotOptions {
		opt(p)
	}

	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(buf))
	for i, v := range buf {
		xys[i] = plotter.XY{X: float64(i), Y: v}
	}
	if err := plotutil.AddLines(p, t.yLabel, xys); err != nil {
		return nil
	}

	var imageData bytes.Buffer
	w, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return nil
	}
	w.WriteTo(&imageData)
	return &ImageContainer{name: t.name, data: imageData.Bytes()}
}
