package extraction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// wireExample mirrors the on-disk example format. Intervals in example files
// are ignored; examples only feed prompt rendering.
type wireExample struct {
	Text        string           `json:"text" yaml:"text"`
	Extractions []WireExtraction `json:"extractions" yaml:"extractions"`
}

// LoadExamples reads few-shot examples from a YAML or JSON file. The format
// is a list of {text, extractions} objects using the wire field names.
func LoadExamples(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read examples file: %w", err)
	}

	var wires []wireExample
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &wires); err != nil {
			return nil, fmt.Errorf("failed to parse examples JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &wires); err != nil {
			return nil, fmt.Errorf("failed to parse examples YAML: %w", err)
		}
	}

	examples := make([]Example, 0, len(wires))
	for i, w := range wires {
		if strings.TrimSpace(w.Text) == "" {
			return nil, fmt.Errorf("example %d has empty text", i)
		}
		ex := Example{Text: w.Text}
		for j, we := range w.Extractions {
			if strings.TrimSpace(we.Class) == "" || strings.TrimSpace(we.Text) == "" {
				return nil, fmt.Errorf("example %d extraction %d needs a non-empty class and text", i, j)
			}
			ex.Extractions = append(ex.Extractions, Extraction{
				Class:      strings.TrimSpace(we.Class),
				Text:       strings.TrimSpace(we.Text),
				Attributes: we.Attributes,
			})
		}
		examples = append(examples, ex)
	}
	return examples, nil
}
