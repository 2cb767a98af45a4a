package settings

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Codec encodes and decodes the content of a settings file.
type Codec interface {
	// Name is the format name used in configuration ("toml", "yaml").
	Name() string
	// Extension is the file extension including the leading dot.
	Extension() string
	Marshal(data map[string]any) ([]byte, error)
	Unmarshal(raw []byte) (map[string]any, error)
}

// TOMLCodec stores settings as TOML tables; groups map to tables.
type TOMLCodec struct{}

func (TOMLCodec) Name() string      { return "toml" }
func (TOMLCodec) Extension() string { return ".toml" }

func (TOMLCodec) Marshal(data map[string]any) ([]byte, error) {
	return toml.Marshal(data)
}

func (TOMLCodec) Unmarshal(raw []byte) (map[string]any, error) {
	data := make(map[string]any)
	if err := toml.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// YAMLCodec stores settings as YAML mappings.
type YAMLCodec struct{}

func (YAMLCodec) Name() string      { return "yaml" }
func (YAMLCodec) Extension() string { return ".yaml" }

func (YAMLCodec) Marshal(data map[string]any) ([]byte, error) {
	return yaml.Marshal(data)
}

func (YAMLCodec) Unmarshal(raw []byte) (map[string]any, error) {
	data := make(map[string]any)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	// yaml.v3 decodes an empty document into a nil map
	if data == nil {
		data = make(map[string]any)
	}
	return data, nil
}

// Formats returns the supported format names.
func Formats() []string {
	return []string{"toml", "yaml"}
}

// CodecFor returns the codec registered for a format name.
func CodecFor(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "toml":
		return TOMLCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported settings format %q", format)
	}
}
