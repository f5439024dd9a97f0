// Package domain defines the raw catalog record types and the validation
// gate applied at catalog load time. Malformed records are rejected here,
// one at a time, so a single bad entry never aborts a catalog load.
package domain

import "encoding/json"

// BrandRecord is one entry in the catalog data file: a brand name and its
// model entries. Models are kept raw so that one undecodable model can be
// dropped without losing its siblings.
type BrandRecord struct {
	Brand  string            `json:"brand"`
	Models []json.RawMessage `json:"models"`
}

// ModelRecord is a single model entry as it appears in the catalog file.
// Type and year fields are loosely typed: catalogs in the wild carry years
// as numbers or strings and occasionally put garbage in type.
type ModelRecord struct {
	Name      string `json:"name"`
	Type      any    `json:"type"`
	StartYear any    `json:"startYear"`
	EndYear   any    `json:"endYear"`
	IsCurrent bool   `json:"isCurrent"`
	SoundLink string `json:"soundLink"`
}

// DefaultType is the type label assigned when a model carries no usable one.
const DefaultType = "Unknown"

// DefaultMinYear is the lower bound of the selectable year interval when the
// catalog contains no usable production years.
const DefaultMinYear = 1900
