package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agv-mapview/backend/internal/models"
)

func TestParseStyleSheet(t *testing.T) {
	content := `
background: "#000000"
park:
  selected:
    color: "#ff00ff"
    width: 4
    opacity: 1
path:
  move:
    color: "#00ff00"
    width: 6
    opacity: 0.5
tag:
  status:
    locked: "#123456"
candidate:
  dash: [2, 2]
`
	path := filepath.Join(t.TempDir(), "styles.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	sheet, err := ParseStyleSheet(path)
	if err != nil {
		t.Fatalf("ParseStyleSheet failed: %v", err)
	}

	if sheet.Background != "#000000" {
		t.Errorf("expected background #000000, got %s", sheet.Background)
	}
	if sheet.Park.Selected.Color != "#ff00ff" || sheet.Park.Selected.Width != 4 {
		t.Errorf("unexpected selected style: %+v", sheet.Park.Selected)
	}
	if sheet.Path.Move.Opacity != 0.5 {
		t.Errorf("expected move opacity 0.5, got %v", sheet.Path.Move.Opacity)
	}
	if got := sheet.Tag.Status[models.ParkStatusLocked]; got != "#123456" {
		t.Errorf("expected locked colour #123456, got %s", got)
	}
	if len(sheet.Candidate.Dash) != 2 || sheet.Candidate.Dash[0] != 2 {
		t.Errorf("unexpected dash %v", sheet.Candidate.Dash)
	}

	// Untouched keys keep defaults.
	defaults := models.DefaultStyleSheet()
	if sheet.Path.Control != defaults.Path.Control {
		t.Errorf("control style changed: %+v", sheet.Path.Control)
	}
	if sheet.Tag.Status[models.ParkStatusEmpty] != defaults.Tag.Status[models.ParkStatusEmpty] {
		t.Errorf("empty status colour changed")
	}
}

func TestParseStyleSheetRejectsUnknownStatus(t *testing.T) {
	_, err := ParseStyleSheetFromReader(strings.NewReader("tag:\n  status:\n    flying: \"#fff\"\n"))
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestParseStyleSheetMissingFile(t *testing.T) {
	if _, err := ParseStyleSheet(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
