package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a scene encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatSWC  Format = "swc"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".swc":
		return FormatSWC, nil
	default:
		return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

// Load reads a scene file, choosing the decoder by extension. SWC files
// become a single-neuron scene with the default membranes.
func Load(path string) (*Scene, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene: %w", err)
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		s.AssignIDs()
	}
	return s, nil
}

// Parse decodes a scene in the given format and assigns missing neuron ids.
func Parse(data []byte, format Format) (*Scene, error) {
	s := &Scene{}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(s); err != nil {
			return nil, fmt.Errorf("parsing json scene: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parsing yaml scene: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parsing toml scene: %w", err)
		}
	case FormatSWC:
		swc, err := ParseSWC(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		s.Neurons = []Neuron{swc.Neuron("")}
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	s.AssignIDs()
	return s, nil
}

// Marshal encodes s in the given format. SWC is read-only.
func Marshal(s *Scene, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	case FormatYAML:
		return yaml.Marshal(s)
	case FormatTOML:
		return toml.Marshal(s)
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
}

// Save writes s to path in the format implied by its extension.
func Save(path string, s *Scene) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := Marshal(s, format)
	if err != nil {
		return fmt.Errorf("encoding scene: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing scene: %w", err)
	}
	return nil
}
