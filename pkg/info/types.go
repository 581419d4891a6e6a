package info

import (
	"encoding/json"
	"fmt"
)

// HiddenAdapter is the reserved adapter tag that removes a field from the export.
const HiddenAdapter = "Hidden"

// CaseType describes a case type known to the info service. ShortCode is the
// two-character suffix carried by every case UUID of this type; Type is the
// code callers use to request exports (e.g. "MIN").
type CaseType struct {
	DisplayName string `json:"displayName" yaml:"display_name"`
	ShortCode   string `json:"shortCode" yaml:"short_code"`
	Type        string `json:"type" yaml:"type"`
}

// User is an entry in the user directory.
type User struct {
	ID        string `json:"id" yaml:"id"`
	Username  string `json:"username" yaml:"username"`
	FirstName string `json:"firstName" yaml:"first_name"`
	LastName  string `json:"lastName" yaml:"last_name"`
	Email     string `json:"email" yaml:"email"`
}

// Unit is the business unit a team belongs to.
type Unit struct {
	ID        string `json:"uuid" yaml:"id"`
	Name      string `json:"displayName" yaml:"name"`
	ShortCode string `json:"shortCode,omitempty" yaml:"short_code,omitempty"`
}

// Team is an entry in the team directory.
type Team struct {
	ID   string `json:"uuid" yaml:"id"`
	Name string `json:"displayName" yaml:"name"`
	Unit *Unit  `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Topic is a case topic known to the casework service.
type Topic struct {
	ID   string `json:"uuid" yaml:"id"`
	Name string `json:"displayName" yaml:"name"`
}

// FieldDefinition describes one dynamic export column for a case type. Name
// matches a key in the case payload's data map; DisplayName is the CSV
// header; Adapters is the ordered chain of adapter tags applied to the value.
type FieldDefinition struct {
	Name        string   `json:"name" yaml:"name"`
	DisplayName string   `json:"displayName" yaml:"display_name"`
	Adapters    []string `json:"adapters,omitempty" yaml:"adapters,omitempty"`
}

// Hidden reports whether the field carries the reserved Hidden tag.
func (f FieldDefinition) Hidden() bool {
	for _, tag := range f.Adapters {
		if tag == HiddenAdapter {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts adapters either as plain tags or as the info
// service's [{"type": "..."}] objects.
func (f *FieldDefinition) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name        string            `json:"name"`
		DisplayName string            `json:"displayName"`
		Adapters    []json.RawMessage `json:"adapters"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	f.Name = wire.Name
	f.DisplayName = wire.DisplayName
	f.Adapters = nil

	for i, raw := range wire.Adapters {
		var tag string
		if err := json.Unmarshal(raw, &tag); err == nil {
			f.Adapters = append(f.Adapters, tag)
			continue
		}
		var obj struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return fmt.Errorf("field %q adapter %d: %w", wire.Name, i, err)
		}
		f.Adapters = append(f.Adapters, obj.Type)
	}
	return nil
}

// ExportView is the info service's export schema for one case type.
type ExportView struct {
	Code        string            `json:"code"`
	DisplayName string            `json:"displayName"`
	Fields      []FieldDefinition `json:"fields"`
}
