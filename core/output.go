package core

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/signalsfoundry/freefree-simulator/internal/units"
	"github.com/signalsfoundry/freefree-simulator/model"
	"github.com/signalsfoundry/freefree-simulator/timectrl"
)

const (
	// ComponentName identifies the emission component in logs and records.
	ComponentName = "Galactic free-free"
	// FileTypeFITS is the only supported output file type.
	FileTypeFITS = "fits"
	// DefaultFilenamePattern names output files by prefix and frequency.
	DefaultFilenamePattern = "{prefix}_{frequency:06.2f}"

	creator = "github.com/signalsfoundry/freefree-simulator/core"
)

// OutputPath returns the file the map at freq is written to.
func (p *Pipeline) OutputPath(freq float64) (string, error) {
	if ft := strings.ToLower(p.cfg.FileType); ft != FileTypeFITS {
		return "", &UnsupportedFormatError{Format: p.cfg.FileType}
	}
	pattern := p.cfg.FilenamePattern
	if pattern == "" {
		pattern = DefaultFilenamePattern
	}
	name, err := formatPattern(pattern, map[string]any{
		"prefix":    p.cfg.Prefix,
		"frequency": freq,
	})
	if err != nil {
		return "", err
	}
	return filepath.Join(p.cfg.OutputDir, name+"."+FileTypeFITS), nil
}

// formatPattern substitutes {name} and {name:verb} tokens, where verb is a
// printf verb without the leading '%' (e.g. "06.2f").
func formatPattern(pattern string, values map[string]any) (string, error) {
	var b strings.Builder
	rest := pattern
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("filename pattern %q: unclosed '{'", pattern)
		}
		b.WriteString(rest[:open])
		token := rest[open+1 : open+end]
		rest = rest[open+end+1:]

		key, verb, _ := strings.Cut(token, ":")
		v, ok := values[key]
		if !ok {
			return "", fmt.Errorf("filename pattern %q: unknown token %q", pattern, key)
		}
		switch {
		case verb != "":
			fmt.Fprintf(&b, "%"+verb, v)
		default:
			if f, isFloat := v.(float64); isFloat {
				b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
			} else {
				b.WriteString(fmt.Sprint(v))
			}
		}
	}
}

// headerTemplate builds the frequency-independent header once.
func (p *Pipeline) headerTemplate() *model.Header {
	if p.header == nil {
		p.header = model.NewHeader(
			model.Card{Key: "COMP", Value: ComponentName + " emission", Comment: "Emission component"},
			model.Card{Key: "UNIT", Value: units.Kelvin, Comment: "Map unit"},
			model.Card{Key: "CREATOR", Value: creator, Comment: "File creator"},
		)
	}
	return p.header
}

// frequencyHeader specialises the template for one frequency.
func (p *Pipeline) frequencyHeader(freq float64, clock timectrl.Clock) (*model.Header, error) {
	mhz, err := units.ToMHz(freq, p.cfg.FrequencyUnit)
	if err != nil {
		return nil, err
	}
	hdr := p.headerTemplate().Clone()
	hdr.Set("FREQ", mhz, "Frequency [ MHz ]")
	hdr.Set("DATE", timectrl.FormatISO8601(clock.Now()), "File creation date")
	return hdr, nil
}
