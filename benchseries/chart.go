// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const pointRad = 4

// Plot returns a line chart of s. Points that moved by more than
// threshold are drawn red if they increased and green if they
// decreased, since larger times and counts are worse.
func (s *Series) Plot(threshold float64) (*plot.Plot, error) {
	if len(s.Points) == 0 {
		return nil, errEmpty
	}

	pl := plot.New()
	pl.Title.Text = s.Test
	pl.Y.Label.Text = s.Stat
	if s.Unit != "" {
		pl.Y.Label.Text += " (" + s.Unit + ")"
	}
	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	pl.Add(grid)

	xys := make(plotter.XYs, len(s.Points))
	var labels []string
	for i, p := range s.Points {
		xys[i].X = float64(i)
		xys[i].Y = p.Value
		labels = append(labels, p.Label)
	}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, err
	}
	points.Shape = draw.CircleGlyph{}
	points.Radius = vg.Points(pointRad)
	pl.Add(line, points)

	var up, down plotter.XYs
	for _, c := range s.Changes(threshold) {
		if c.Ratio > 1 {
			up = append(up, xys[c.Index])
		} else {
			down = append(down, xys[c.Index])
		}
	}
	for _, m := range []struct {
		xys plotter.XYs
		clr color.Color
	}{
		{up, red(0xFF)},
		{down, green(0xFF)},
	} {
		if len(m.xys) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(m.xys)
		if err != nil {
			return nil, err
		}
		sc.Shape = draw.CircleGlyph{}
		sc.Radius = vg.Points(pointRad + 1)
		sc.Color = m.clr
		pl.Add(sc)
	}

	pl.NominalX(labels...)
	pl.X.Tick.Label.Rotation = -math.Pi / 8
	pl.X.Tick.Label.YAlign = draw.YTop
	pl.X.Tick.Label.XAlign = draw.XLeft

	// Keep zero on the axis so small changes don't look dramatic.
	if pl.Y.Min > 0 {
		pl.Y.Min = 0
	}
	return pl, nil
}

// WritePNG draws the chart of s to w as a PNG image.
func (s *Series) WritePNG(w io.Writer, threshold float64) error {
	pl, err := s.Plot(threshold)
	if err != nil {
		return err
	}
	// Heuristic width and height, in centimeters.
	width := math.Max(12, 1.5*float64(2+len(s.Points)))
	height := math.Max(8, width/3)
	can := vgimg.PngCanvas{Canvas: vgimg.NewWith(
		vgimg.UseWH(vg.Length(width)*vg.Centimeter, vg.Length(height)*vg.Centimeter),
		vgimg.UseDPI(96),
		vgimg.UseBackgroundColor(color.White))}
	pl.Draw(draw.New(can))
	_, err = can.WriteTo(w)
	return err
}

func red(alpha uint8) color.Color {
	return color.NRGBA{0xFF, 0, 0, alpha}
}

func green(alpha uint8) color.Color {
	return color.NRGBA{0, 0xA0, 0, alpha}
}
