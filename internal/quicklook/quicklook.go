// Package quicklook renders pixel histograms of simulated maps as PNG
// images for visual inspection.
package quicklook

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/signalsfoundry/freefree-simulator/core"
	"github.com/signalsfoundry/freefree-simulator/internal/logging"
	"github.com/signalsfoundry/freefree-simulator/model"
)

// Extension is appended to the map path, minus its own extension.
const Extension = ".png"

const defaultBins = 50

// ErrNoFinitePixels indicates a map without any unmasked pixel.
var ErrNoFinitePixels = errors.New("map has no finite pixels")

// Writer decorates a map writer with a histogram image written next to
// every map.
type Writer struct {
	Next core.MapWriter
	// Bins defaults to 50.
	Bins int
	Log  logging.Logger
}

// PlotPath returns the image path that accompanies mapPath.
func PlotPath(mapPath string) string {
	return strings.TrimSuffix(mapPath, filepath.Ext(mapPath)) + Extension
}

// WriteMap writes the map through Next, then its histogram. A map with no
// finite pixels is written without an image. Without opts.Overwrite an
// existing image fails the call before the map is written.
func (w *Writer) WriteMap(ctx context.Context, path string, m *model.SkyMap, hdr *model.Header, opts model.WriteOptions) (model.WriteResult, error) {
	img := PlotPath(path)
	if !opts.Overwrite {
		if _, err := os.Stat(img); err == nil {
			return model.WriteResult{}, fmt.Errorf("quick-look %q exists and overwrite is disabled: %w", img, fs.ErrExist)
		}
	}

	res, err := w.Next.WriteMap(ctx, path, m, hdr, opts)
	if err != nil {
		return res, err
	}

	log := w.Log
	if log == nil {
		log = logging.Noop()
	}

	err = Histogram(img, m, title(hdr, m), w.Bins)
	switch {
	case errors.Is(err, ErrNoFinitePixels):
		log.Warn(ctx, "skipping quick-look of fully masked map", logging.Path(res.Path))
		return res, nil
	case err != nil:
		return res, err
	}
	log.Debug(ctx, "wrote quick-look", logging.Path(img))
	return res, nil
}

func title(hdr *model.Header, m *model.SkyMap) string {
	t := "Pixel distribution"
	if c, ok := hdr.Get("COMP"); ok {
		t = fmt.Sprint(c.Value)
	}
	if c, ok := hdr.Get("FREQ"); ok {
		t += fmt.Sprintf(" at %v MHz", c.Value)
	}
	return fmt.Sprintf("%s (Nside %d)", t, m.NSide)
}

// Histogram saves a histogram of the finite pixels of m to path. The image
// format follows the file extension.
func Histogram(path string, m *model.SkyMap, title string, bins int) error {
	if bins <= 0 {
		bins = defaultBins
	}
	values := make(plotter.Values, 0, m.Len())
	for _, v := range m.Pixels {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return ErrNoFinitePixels
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = fmt.Sprintf("Pixel value [%s]", m.Unit)
	p.Y.Label.Text = "Pixels"

	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return fmt.Errorf("build histogram: %w", err)
	}
	h.FillColor = plotter.DefaultLineStyle.Color
	p.Add(h)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save quick-look %q: %w", path, err)
	}
	return nil
}
