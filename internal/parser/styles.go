package parser

import (
	"fmt"
	"io"
	"os"

	"github.com/agv-mapview/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// ParseStyleSheet parses a YAML style sheet file. Keys absent from the file
// keep their built-in defaults.
func ParseStyleSheet(filePath string) (*models.StyleSheet, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseStyleSheetFromReader(file)
}

// ParseStyleSheetFromReader parses a style sheet from an io.Reader.
func ParseStyleSheetFromReader(r io.Reader) (*models.StyleSheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	sheet := models.DefaultStyleSheet()
	if err := yaml.Unmarshal(data, sheet); err != nil {
		return nil, fmt.Errorf("parse style sheet: %w", err)
	}
	for status := range sheet.Tag.Status {
		if !status.Valid() {
			return nil, fmt.Errorf("parse style sheet: unknown park status %q", status)
		}
	}
	return sheet, nil
}
