// Package testutil holds fixtures and fakes shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SiteMap is a small two-floor map payload in the JSON wire format. P3
// exists on floor 2 only; P2 rides on truck T7.
const SiteMap = `{
  "Parks": [
    {"Id": 1, "M": 1, "T": 2, "G": "north", "L": 1.2, "W": 0.8, "BPI": "R1",
     "A": 0, "X": 1, "Y": 2, "Name": "P1", "AL": "1,2"},
    {"Id": 2, "L": 1.2, "W": 0.8, "X": 3, "Y": 2, "Name": "P2", "TId": "T7"},
    {"Id": 3, "L": 1.2, "W": 0.8, "X": 5, "Y": 2, "Name": "P3", "AL": "2"},
    {"Id": 4, "L": 1.2, "W": 0.8, "X": 7, "Y": 2, "Name": "P4"}
  ],
  "Paths": [
    {"Id": 10, "BKI": "P1", "F": 0, "G": "north", "I": "R1",
     "P": [{"X": 1, "Y": 2, "R": 0}, {"X": 3, "Y": 2, "R": 0}]},
    {"Id": 11, "F": 1, "I": "M",
     "P": [{"X": 0, "Y": 0, "R": 0}, {"X": 1, "Y": 2, "R": 0}, {"X": 2, "Y": 3, "R": 1}]}
  ],
  "Marks": [{"Id": 5, "X": 0.5, "Y": 0.5, "W": 0.1, "H": 0.1}],
  "Lines": [{"Id": 6, "X1": 0, "Y1": 0, "X2": 1, "Y2": 0, "C": "#ff0000", "W": 2}],
  "Texts": [{"Id": 7, "X": 1, "Y": 1, "A": 0.5, "S": "Dock A", "C": "#ffffff", "Z": 14}]
}`

// WriteSiteMap writes SiteMap into a temporary directory and returns its
// path.
func WriteSiteMap(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.json")
	if err := os.WriteFile(path, []byte(SiteMap), 0o644); err != nil {
		t.Fatalf("failed to write map fixture: %v", err)
	}
	return path
}
