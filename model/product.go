package model

import "time"

// Product describes one simulated map written to disk.
type Product struct {
	RunID         string
	Component     string
	Frequency     float64
	FrequencyUnit string
	Path          string
	NSide         int
	Unit          string
	Float32       bool
	DataSum       string
	CreatedAt     time.Time
}

// WriteResult reports what a map writer produced.
type WriteResult struct {
	Path string
	// DataSum is the FITS DATASUM of the data unit; empty unless a
	// checksum was requested.
	DataSum string
}
