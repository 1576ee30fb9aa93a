// Package data bundles the default trait and perk datasets.
package data

import "embed"

//go:embed traits/*.yaml perks.json
var FS embed.FS
