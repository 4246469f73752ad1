package ingest

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed config/codes.yaml
var codesYAML embed.FS

// codeTables holds the feed's abbreviation-to-label mappings. The tables are
// static for the life of the process and loaded once from the embedded YAML.
type codeTables struct {
	Categories map[string]string `yaml:"categories"`
	Values     map[string]string `yaml:"values"`
}

var codes = mustLoadCodes()

func mustLoadCodes() codeTables {
	raw, err := codesYAML.ReadFile("config/codes.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded codes.yaml missing: %v", err))
	}
	var t codeTables
	if err := yaml.Unmarshal(raw, &t); err != nil {
		panic(fmt.Sprintf("embedded codes.yaml invalid: %v", err))
	}
	return t
}

// CategoryLabel maps a characteristic category code (e.g. "CHAU") to its
// display label. Unknown codes are returned unchanged.
func CategoryLabel(code string) string {
	if label, ok := codes.Categories[code]; ok {
		return label
	}
	return code
}

// ValueLabel maps a characteristic value code (e.g. "PELC") to its display
// label. Unknown codes are returned unchanged.
func ValueLabel(code string) string {
	if label, ok := codes.Values[code]; ok {
		return label
	}
	return code
}

// categoryProximity is the category code whose values feed the proximity
// list instead of the characteristics list.
const categoryProximity = "PROX"
