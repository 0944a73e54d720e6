// Package fitsmap reads and writes HEALPix full-sky maps stored as FITS
// binary tables, the layout produced by healpy's write_map.
package fitsmap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/signalsfoundry/freefree-simulator/internal/healpix"
	"github.com/signalsfoundry/freefree-simulator/model"
)

// Extension is the file extension of maps written by this package.
const Extension = ".fits"

// UNSEEN is the HEALPix sentinel for missing pixels. It is mapped to NaN on
// load.
const UNSEEN = -1.6375e30

var (
	// ErrNoMapTable indicates the file has no binary table extension.
	ErrNoMapTable = errors.New("no HEALPix binary table in file")
	// ErrMissingNSide indicates the NSIDE keyword is absent or malformed.
	ErrMissingNSide = errors.New("missing or invalid NSIDE keyword")
)

// ErrInvalidKeyword reports a header key that does not fit a FITS keyword.
var ErrInvalidKeyword = errors.New("invalid FITS keyword")

// reserved keys describe the pixel layout and cannot be overridden by the
// caller's header.
var reserved = map[string]bool{
	"PIXTYPE":  true,
	"ORDERING": true,
	"NSIDE":    true,
	"FIRSTPIX": true,
	"LASTPIX":  true,
	"INDXSCHM": true,
	"OBJECT":   true,
	"DATASUM":  true,
	"EXTNAME":  true,
}

// Loader reads maps from FITS files on the local filesystem.
type Loader struct{}

// LoadMap reads the first column of the first binary table in path. The
// returned map is RING ordered; NESTED files are reordered. The unit is
// taken from the column's TUNIT keyword when present.
func (Loader) LoadMap(ctx context.Context, path string) (*model.SkyMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map %q: %w", path, err)
	}
	defer f.Close()

	ff, err := fitsio.Open(f)
	if err != nil {
		return nil, fmt.Errorf("read FITS %q: %w", path, err)
	}
	defer ff.Close()

	var tbl *fitsio.Table
	for _, hdu := range ff.HDUs() {
		if t, ok := hdu.(*fitsio.Table); ok && hdu.Type() == fitsio.BINARY_TBL {
			tbl = t
			break
		}
	}
	if tbl == nil {
		return nil, fmt.Errorf("%q: %w", path, ErrNoMapTable)
	}

	hdr := tbl.Header()
	nside, ok := intCard(hdr.Get("NSIDE"))
	if !ok {
		if nside, ok = intCard(ff.HDU(0).Header().Get("NSIDE")); !ok {
			return nil, fmt.Errorf("%q: %w", path, ErrMissingNSide)
		}
	}

	ordering := model.OrderingRing
	if c := hdr.Get("ORDERING"); c != nil {
		if s, ok := c.Value.(string); ok && strings.HasPrefix(strings.ToUpper(strings.TrimSpace(s)), "NEST") {
			ordering = model.OrderingNested
		}
	}

	cols := tbl.Cols()
	if len(cols) == 0 {
		return nil, fmt.Errorf("%q: %w", path, ErrNoMapTable)
	}
	pixels, err := readFirstColumn(tbl, cols[0])
	if err != nil {
		return nil, fmt.Errorf("read pixels of %q: %w", path, err)
	}

	m := &model.SkyMap{
		Pixels:   pixels,
		NSide:    nside,
		Unit:     strings.TrimSpace(cols[0].Unit),
		Ordering: ordering,
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return healpix.ToRing(m)
}

func readFirstColumn(tbl *fitsio.Table, col fitsio.Column) ([]float64, error) {
	repeat, code, err := parseFormat(col.Format)
	if err != nil {
		return nil, err
	}
	nrows := tbl.NumRows()
	rows, err := tbl.Read(0, nrows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]float64, 0, int(nrows)*repeat)
	for rows.Next() {
		switch {
		case code == 'E' && repeat == 1:
			var v float32
			if err := rows.Scan(&v); err != nil {
				return nil, err
			}
			out = append(out, float64(v))
		case code == 'D' && repeat == 1:
			var v float64
			if err := rows.Scan(&v); err != nil {
				return nil, err
			}
			out = append(out, v)
		case code == 'E':
			v := make([]float32, repeat)
			if err := rows.Scan(&v); err != nil {
				return nil, err
			}
			for _, x := range v {
				out = append(out, float64(x))
			}
		case code == 'D':
			v := make([]float64, repeat)
			if err := rows.Scan(&v); err != nil {
				return nil, err
			}
			out = append(out, v...)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, v := range out {
		if v <= UNSEEN*0.999 && v >= UNSEEN*1.001 {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// parseFormat splits a TFORM value such as "1024E" into repeat count and
// type code. Only float columns are supported.
func parseFormat(format string) (int, byte, error) {
	format = strings.TrimSpace(format)
	if format == "" {
		return 0, 0, fmt.Errorf("empty column format")
	}
	code := format[len(format)-1]
	if code != 'E' && code != 'D' {
		return 0, 0, fmt.Errorf("unsupported column format %q", format)
	}
	repeat := 1
	if n := format[:len(format)-1]; n != "" {
		r, err := strconv.Atoi(n)
		if err != nil || r < 1 {
			return 0, 0, fmt.Errorf("invalid column format %q", format)
		}
		repeat = r
	}
	return repeat, code, nil
}

func intCard(c *fitsio.Card) (int, bool) {
	if c == nil {
		return 0, false
	}
	switch v := c.Value.(type) {
	case int:
		return v, v > 0
	case int64:
		return int(v), v > 0
	case float64:
		if v == math.Trunc(v) && v > 0 {
			return int(v), true
		}
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil && n > 0
	}
	return 0, false
}

// Writer persists maps as FITS binary tables.
type Writer struct {
	// Column names the pixel column; defaults to TEMPERATURE.
	Column string
}

// WriteMap writes m to path. Without opts.Overwrite an existing file is an
// error wrapping fs.ErrExist.
func (w Writer) WriteMap(ctx context.Context, path string, m *model.SkyMap, hdr *model.Header, opts model.WriteOptions) (model.WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return model.WriteResult{}, err
	}
	if err := m.Validate(); err != nil {
		return model.WriteResult{}, fmt.Errorf("write map %q: %w", path, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return model.WriteResult{}, fmt.Errorf("output %q exists and overwrite is disabled: %w", path, err)
		}
		return model.WriteResult{}, fmt.Errorf("create %q: %w", path, err)
	}

	res, werr := w.encode(f, m, hdr, opts)
	if cerr := f.Close(); werr == nil && cerr != nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(path)
		return model.WriteResult{}, fmt.Errorf("write map %q: %w", path, werr)
	}
	res.Path = path
	return res, nil
}

func (w Writer) encode(f *os.File, m *model.SkyMap, hdr *model.Header, opts model.WriteOptions) (model.WriteResult, error) {
	var res model.WriteResult

	ff, err := fitsio.Create(f)
	if err != nil {
		return res, err
	}

	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return res, err
	}
	if err := ff.Write(phdu); err != nil {
		return res, err
	}

	name := w.Column
	if name == "" {
		name = "TEMPERATURE"
	}
	format := "D"
	if opts.Float32 {
		format = "E"
	}
	tbl, err := fitsio.NewTable("xtension", []fitsio.Column{
		{Name: name, Format: format, Unit: m.Unit},
	}, fitsio.BINARY_TBL)
	if err != nil {
		return res, err
	}

	ordering := m.Ordering
	if ordering == "" {
		ordering = model.OrderingRing
	}
	cards := []fitsio.Card{
		{Name: "PIXTYPE", Value: "HEALPIX", Comment: "HEALPIX pixelisation"},
		{Name: "ORDERING", Value: string(ordering), Comment: "Pixel ordering scheme, either RING or NESTED"},
		{Name: "NSIDE", Value: m.NSide, Comment: "Resolution parameter of HEALPIX"},
		{Name: "FIRSTPIX", Value: 0, Comment: "First pixel # (0 based)"},
		{Name: "LASTPIX", Value: m.Len() - 1, Comment: "Last pixel # (0 based)"},
		{Name: "INDXSCHM", Value: "IMPLICIT", Comment: "Indexing: IMPLICIT or EXPLICIT"},
		{Name: "OBJECT", Value: "FULLSKY", Comment: "Sky coverage, either FULLSKY or PARTIAL"},
	}
	for _, c := range hdr.Cards() {
		if reserved[c.Key] {
			continue
		}
		if c.Key == "" || len(c.Key) > 8 {
			return res, fmt.Errorf("%w: %q", ErrInvalidKeyword, c.Key)
		}
		cards = append(cards, fitsio.Card{Name: c.Key, Value: c.Value, Comment: c.Comment})
	}
	if opts.Checksum {
		res.DataSum = strconv.FormatUint(uint64(DataSum(m.Pixels, opts.Float32)), 10)
		cards = append(cards, fitsio.Card{Name: "DATASUM", Value: res.DataSum, Comment: "data unit checksum"})
	}
	if err := tbl.Header().Append(cards...); err != nil {
		return res, err
	}

	if opts.Float32 {
		for _, v := range m.Pixels {
			x := float32(v)
			if err := tbl.Write(&x); err != nil {
				return res, err
			}
		}
	} else {
		for _, v := range m.Pixels {
			x := v
			if err := tbl.Write(&x); err != nil {
				return res, err
			}
		}
	}

	if err := ff.Write(tbl); err != nil {
		return res, err
	}
	return res, ff.Close()
}

// DataSum computes the FITS ones' complement 32-bit checksum of the data
// unit holding pixels as a single big-endian float column. Zero padding
// does not change the sum.
func DataSum(pixels []float64, float32Column bool) uint32 {
	var sum uint64
	for _, v := range pixels {
		if float32Column {
			sum += uint64(math.Float32bits(float32(v)))
		} else {
			bits := math.Float64bits(v)
			sum += bits >> 32
			sum += bits & 0xffffffff
		}
		if sum>>32 != 0 {
			sum = sum&0xffffffff + sum>>32
		}
	}
	for sum>>32 != 0 {
		sum = sum&0xffffffff + sum>>32
	}
	return uint32(sum)
}
