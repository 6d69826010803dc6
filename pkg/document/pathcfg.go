package document

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/flowcanvas/flowcanvas/pkg/errors"
)

type pathMetadata struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description,omitempty"`
}

type allowedConnection struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Via  string `yaml:"via,omitempty"`
}

// ParsePathConfig decodes a vvf.config.yaml document.
//
// The path-based form has no explicit node list: every entry under nodeTypes
// becomes a node (ID = type name) and allowedConnections become edges between
// them. The original nodeTypes key order is recorded so serialization does
// not re-sort the file.
func ParsePathConfig(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid config YAML")
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New(errors.ErrCodeParse, "config must be a YAML mapping")
	}
	mapping := root.Content[0]

	doc := &Document{
		Format:    FormatPathConfig,
		NodeTypes: map[string]TypeStyle{},
	}
	var (
		sawMetadata bool
		connections []allowedConnection
	)

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]
		switch key.Value {
		case "metadata":
			var meta pathMetadata
			if err := value.Decode(&meta); err != nil {
				return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid metadata block")
			}
			doc.Name = meta.Name
			doc.Version = meta.Version
			doc.Description = meta.Description
			sawMetadata = true
		case "nodeTypes":
			if value.Kind != yaml.MappingNode {
				return nil, errors.New(errors.ErrCodeParse, "nodeTypes must be a mapping")
			}
			for j := 0; j+1 < len(value.Content); j += 2 {
				name := value.Content[j].Value
				var style TypeStyle
				if err := value.Content[j+1].Decode(&style); err != nil {
					return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid nodeType %q", name)
				}
				doc.NodeTypes[name] = style
				doc.NodeTypeOrder = append(doc.NodeTypeOrder, name)
			}
		case "allowedConnections":
			if err := value.Decode(&connections); err != nil {
				return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid allowedConnections block")
			}
		case "display":
			if err := value.Decode(&doc.Display); err != nil {
				return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid display block")
			}
		}
	}

	if !sawMetadata {
		return nil, errors.New(errors.ErrCodeParse, "config missing metadata block")
	}
	if doc.Name == "" {
		return nil, errors.New(errors.ErrCodeParse, "config missing metadata.name")
	}

	for _, name := range doc.NodeTypeOrder {
		doc.Nodes = append(doc.Nodes, Node{
			ID:  name,
			Ext: NodeExt{Type: name},
		})
	}
	for _, c := range connections {
		doc.Edges = append(doc.Edges, Edge{
			FromNode: c.From,
			ToNode:   c.To,
			Type:     c.Via,
		})
	}

	return doc, nil
}

// MarshalPathConfig encodes a document as vvf.config.yaml with 2-space
// indentation, preserving the original nodeTypes key order. Node positions are
// not part of the path-based format and are dropped on serialization.
func MarshalPathConfig(d *Document) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	meta := pathMetadata{Name: d.Name, Version: d.Version, Description: d.Description}
	if err := appendMappingEntry(mapping, "metadata", meta); err != nil {
		return nil, err
	}

	if len(d.NodeTypeOrder) > 0 {
		types := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, name := range d.NodeTypeOrder {
			style, ok := d.NodeTypes[name]
			if !ok {
				continue
			}
			var value yaml.Node
			if err := value.Encode(style); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode nodeType %q", name)
			}
			types.Content = append(types.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
				&value,
			)
		}
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "nodeTypes"},
			types,
		)
	}

	if len(d.Edges) > 0 {
		connections := make([]allowedConnection, 0, len(d.Edges))
		for _, e := range d.Edges {
			connections = append(connections, allowedConnection{From: e.FromNode, To: e.ToNode, Via: e.Type})
		}
		if err := appendMappingEntry(mapping, "allowedConnections", connections); err != nil {
			return nil, err
		}
	}

	if d.Display != (Display{}) {
		if err := appendMappingEntry(mapping, "display", d.Display); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	return buf.Bytes(), nil
}

func appendMappingEntry(mapping *yaml.Node, key string, v any) error {
	var value yaml.Node
	if err := value.Encode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %s", key)
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&value,
	)
	return nil
}
