package fieldtype

import "fmt"

// CharConstraints are the extra constraints enforced for CHAR fields.
type CharConstraints struct {
	ExactLength  int  `json:"exact_length,omitempty"`
	MaxLength    int  `json:"max_length,omitempty"`
	Alphanumeric bool `json:"alphanumeric,omitempty"`
}

// FieldDef describes one checkable field of the master data model. Key and
// Category are fixed at construction; a definition is never mutated after
// registration, only cloned with overrides.
type FieldDef struct {
	Key             string           `json:"key"`
	SourceTable     string           `json:"source_table,omitempty"`
	SourceField     string           `json:"source_field,omitempty"`
	Category        Category         `json:"category"`
	Dependencies    []string         `json:"dependencies,omitempty"`
	WhitelistSource string           `json:"whitelist_source,omitempty"`
	Mandatory       bool             `json:"mandatory"`
	CharConstraints *CharConstraints `json:"char_constraints,omitempty"`
	Description     string           `json:"description,omitempty"`
}

// NewFieldDef constructs a FieldDef and rejects definitions without a key or
// with an unknown category.
func NewFieldDef(key string, category Category) (*FieldDef, error) {
	if key == "" {
		return nil, fmt.Errorf("field definition requires a key")
	}
	if !category.Valid() {
		return nil, fmt.Errorf("field definition %s requires a valid category", key)
	}
	return &FieldDef{Key: key, Category: category}, nil
}

// Validate checks the construction invariants of a definition built as a
// literal.
func (d *FieldDef) Validate() error {
	if d.Key == "" {
		return fmt.Errorf("field definition requires a key")
	}
	if !d.Category.Valid() {
		return fmt.Errorf("field definition %s requires a valid category", d.Key)
	}
	return nil
}

// Clone returns a deep copy of the definition.
func (d *FieldDef) Clone() *FieldDef {
	out := *d
	if d.Dependencies != nil {
		out.Dependencies = append([]string(nil), d.Dependencies...)
	}
	if d.CharConstraints != nil {
		cc := *d.CharConstraints
		out.CharConstraints = &cc
	}
	return &out
}

// CloneWith returns a copy of the definition with the given mutation applied.
// Key and Category changes are ignored so the construction invariants hold.
func (d *FieldDef) CloneWith(mutate func(*FieldDef)) *FieldDef {
	out := d.Clone()
	key, category := out.Key, out.Category
	mutate(out)
	out.Key = key
	out.Category = category
	return out
}
