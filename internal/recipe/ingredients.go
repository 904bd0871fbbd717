package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"

	"gopkg.in/yaml.v3"
)

// Ingredients is a name-keyed registry that remembers insertion order.
// The zero value is ready to use.
type Ingredients struct {
	names []string
	index map[string]*Ingredient
}

// NewIngredients returns an empty registry.
func NewIngredients() *Ingredients {
	return &Ingredients{index: make(map[string]*Ingredient)}
}

// Put stores ing under ing.Name. An existing entry keeps its position.
func (s *Ingredients) Put(ing Ingredient) {
	if s.index == nil {
		s.index = make(map[string]*Ingredient)
	}
	if ing.Annotations == nil {
		ing.Annotations = []string{}
	}
	if _, ok := s.index[ing.Name]; !ok {
		s.names = append(s.names, ing.Name)
	}
	s.index[ing.Name] = &ing
}

// Get returns the entry for name. The pointer aliases registry storage.
func (s *Ingredients) Get(name string) (*Ingredient, bool) {
	ing, ok := s.index[name]
	return ing, ok
}

// Len returns the number of entries.
func (s *Ingredients) Len() int {
	return len(s.names)
}

// Names returns entry names in insertion order.
func (s *Ingredients) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// All iterates entries in insertion order.
func (s *Ingredients) All() iter.Seq2[string, *Ingredient] {
	return func(yield func(string, *Ingredient) bool) {
		for _, name := range s.names {
			if !yield(name, s.index[name]) {
				return
			}
		}
	}
}

// Clone returns a deep copy.
func (s *Ingredients) Clone() *Ingredients {
	out := NewIngredients()
	for _, ing := range s.All() {
		c := *ing
		c.Annotations = append([]string{}, ing.Annotations...)
		if ing.Quantity != nil {
			c.Quantity = StrPtr(*ing.Quantity)
		}
		if ing.Unit != nil {
			c.Unit = StrPtr(*ing.Unit)
		}
		out.Put(c)
	}
	return out
}

// MarshalJSON encodes the registry as an object in insertion order.
func (s Ingredients) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encodeJSON(name)
		if err != nil {
			return nil, err
		}
		val, err := encodeJSON(s.index[name])
		if err != nil {
			return nil, fmt.Errorf("encode ingredient %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, keeping key order.
func (s *Ingredients) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	out := Ingredients{}
	if tok == nil {
		*s = out
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("ingredients: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("ingredients: expected key, got %v", tok)
		}
		var ing Ingredient
		if err := dec.Decode(&ing); err != nil {
			return fmt.Errorf("decode ingredient %q: %w", name, err)
		}
		ing.Name = name
		out.Put(ing)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalYAML encodes the registry as a mapping in insertion order.
func (s Ingredients) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, name := range s.names {
		val := &yaml.Node{}
		if err := val.Encode(s.index[name]); err != nil {
			return nil, fmt.Errorf("encode ingredient %q: %w", name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			val,
		)
	}
	return node, nil
}

// UnmarshalYAML decodes a mapping, keeping key order.
func (s *Ingredients) UnmarshalYAML(value *yaml.Node) error {
	out := Ingredients{}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("ingredients: expected mapping at line %d", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		name := value.Content[i].Value
		var ing Ingredient
		if err := value.Content[i+1].Decode(&ing); err != nil {
			return fmt.Errorf("decode ingredient %q: %w", name, err)
		}
		ing.Name = name
		out.Put(ing)
	}
	*s = out
	return nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
