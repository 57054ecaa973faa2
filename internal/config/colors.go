package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultColors maps a semantic label to the color used for it.
var DefaultColors = map[string]string{
	"name":     "blue",
	"neutral":  "blue",
	"good":     "green",
	"bad":      "red",
	"error":    "magenta",
	"unknown":  "cyan",
	"warning":  "yellow",
	"instance": "yellow",
	"number":   "green",
	"prompt":   "blue",
	"yes":      "green",
	"no":       "red",
	"dim":      "bright_black",
}

// BaseColors returns a fresh copy of DefaultColors with blue remapped to cyan.
func BaseColors() map[string]string {
	colors := make(map[string]string, len(DefaultColors))
	for label, color := range DefaultColors {
		if color == "blue" {
			color = "cyan"
		}
		colors[label] = color
	}
	return colors
}

// ReadUserColors returns the effective label->color table: BaseColors, then
// entries from colors.yml when present.
func (s *Store) ReadUserColors() (map[string]string, error) {
	colors := BaseColors()

	data, err := os.ReadFile(s.ColorsFile())
	if os.IsNotExist(err) {
		return colors, nil
	}
	if err != nil {
		return nil, err
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("invalid colors file: %w", err)
	}
	for label, color := range overrides {
		colors[symbol(label)] = symbol(color)
	}
	return colors, nil
}

func symbol(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), ":")
}
