package export

import (
	"log/slog"

	"casework-hq/auditexport/pkg/info"
)

// Headers returns the display names of the visible fields, in order.
func Headers(defs []info.FieldDefinition) []string {
	headers := make([]string, 0, len(defs))
	for _, def := range defs {
		if def.Hidden() {
			continue
		}
		headers = append(headers, def.DisplayName)
	}
	return headers
}

// Converter applies each visible field's adapter chain to decoded case data.
// Chains are resolved when the converter is built, so a converter never
// meets an unknown tag while rows are being written.
type Converter struct {
	fields    []convertField
	onFailure func(*AdapterConversionError)
	logger    *slog.Logger
}

type convertField struct {
	name  string
	chain []FieldAdapter
}

// NewConverter resolves the adapter chain of every visible field. It returns
// an *UnknownAdapterTypeError for a tag the registry does not know. Hidden
// fields are skipped before their chains are looked at.
func NewConverter(defs []info.FieldDefinition, registry *Registry) (*Converter, error) {
	c := &Converter{
		logger: slog.Default().With("component", "export.converter"),
	}

	for _, def := range defs {
		if def.Hidden() {
			continue
		}
		chain := make([]FieldAdapter, 0, len(def.Adapters))
		for _, tag := range def.Adapters {
			adapter, ok := registry.Lookup(tag)
			if !ok {
				return nil, NewUnknownAdapterTypeError(def.Name, tag)
			}
			chain = append(chain, adapter)
		}
		c.fields = append(c.fields, convertField{name: def.Name, chain: chain})
	}

	return c, nil
}

// OnFailure registers a callback for adapter steps that failed.
func (c *Converter) OnFailure(fn func(*AdapterConversionError)) {
	c.onFailure = fn
}

// Row converts decoded case data into cells aligned with Headers.
func (c *Converter) Row(data map[string]interface{}) []string {
	row := make([]string, len(c.fields))
	for i, field := range c.fields {
		row[i] = FormatValue(c.applyChain(field, data[field.name]))
	}
	return row
}

// applyChain runs value through the field's adapters. A failed step keeps the
// value it was given and the chain continues from there.
func (c *Converter) applyChain(field convertField, value interface{}) interface{} {
	result := value
	for _, adapter := range field.chain {
		converted, err := adapter.Convert(result)
		if err != nil {
			convErr := NewAdapterConversionError(field.name, adapter.Type(), result, err)
			c.logger.Error("unable to convert value",
				"field", field.name,
				"adapter", adapter.Type(),
				"value", result,
				"error", err)
			if c.onFailure != nil {
				c.onFailure(convErr)
			}
			continue
		}
		result = converted
	}
	return result
}
