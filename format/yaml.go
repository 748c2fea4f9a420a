package format

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v2"
)

type yamlCodec struct{}

func init() {
	register(yamlCodec{})
}

func (yamlCodec) Name() string {
	return "yaml"
}

func (yamlCodec) Extensions() []string {
	return []string{".yaml", ".yml"}
}

func (yamlCodec) Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func (yamlCodec) Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &doc, nil
}
