package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/estimate"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// selection is a parsed selection file. JSON files parse as YAML.
type selection struct {
	Type       estimate.ProjectType
	Addition   estimate.AdditionInput
	Renovation estimate.RenovationInput
}

func loadSelection(path string) (selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return selection{}, fmt.Errorf("reading selection: %w", err)
	}
	return parseSelection(data)
}

func parseSelection(data []byte) (selection, error) {
	var head struct {
		Type string `yaml:"type"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return selection{}, fmt.Errorf("parsing selection: %w", err)
	}

	sel := selection{Type: estimate.ProjectType(strings.ToLower(strings.TrimSpace(head.Type)))}
	var target any
	switch sel.Type {
	case estimate.ProjectAddition:
		target = &sel.Addition
	case estimate.ProjectRenovation:
		target = &sel.Renovation
	default:
		return selection{}, fmt.Errorf("selection type %q must be %q or %q", head.Type, estimate.ProjectAddition, estimate.ProjectRenovation)
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return selection{}, fmt.Errorf("parsing %s selection: %w", sel.Type, err)
	}
	if err := validate.Struct(target); err != nil {
		return selection{}, fmt.Errorf("invalid %s selection: %w", sel.Type, err)
	}
	return sel, nil
}
