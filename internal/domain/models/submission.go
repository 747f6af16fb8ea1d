package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

const (
	keyCollectionDate = "collectionDate"
	keyProductionLine = "productionLine"
	keySKU            = "sku"
	keyBagWeight      = "bagWeight"
	keyPanelParameter = "panelParameter"
	keyAcrisson       = "acrisson"
)

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports a malformed submission payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NullableFloat is a patch value that may explicitly clear a field.
type NullableFloat struct {
	Set   bool
	Value *float64
}

// Patch is a partial record update. Nil pointers and unset values leave the
// stored field untouched.
type Patch struct {
	CollectionDate *string
	ProductionLine *string
	SKU            *string
	BagWeight      *float64
	PanelParameter NullableFloat
	Acrisson       NullableFloat
	Measurements   map[string]float64
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.CollectionDate == nil && p.ProductionLine == nil && p.SKU == nil &&
		p.BagWeight == nil && !p.PanelParameter.Set && !p.Acrisson.Set &&
		len(p.Measurements) == 0
}

// Apply returns a copy of r with the patch applied. ID, Group and CreatedAt
// are never modified.
func (p Patch) Apply(r Record) Record {
	out := r.Clone()
	if p.CollectionDate != nil {
		out.CollectionDate = *p.CollectionDate
	}
	if p.ProductionLine != nil {
		out.ProductionLine = *p.ProductionLine
	}
	if p.SKU != nil {
		out.SKU = *p.SKU
	}
	if p.BagWeight != nil {
		out.BagWeight = *p.BagWeight
	}
	if p.PanelParameter.Set {
		out.PanelParameter = cloneFloat(p.PanelParameter.Value)
	}
	if p.Acrisson.Set {
		out.Acrisson = cloneFloat(p.Acrisson.Value)
	}
	for k, v := range p.Measurements {
		out.Measurements[k] = v
	}
	return out
}

// DecodeSubmission validates a create payload and applies defaults: sku ""
// and every omitted measurement 0. The panel parameter and acrisson readings
// are required on lines that carry them and dropped on the others.
func DecodeSubmission(group Group, raw map[string]any) (Record, error) {
	schema := SchemaFor(group)
	verr := &ValidationError{}

	rec := Record{
		Group:        group,
		Measurements: make(map[string]float64, len(schema.Measurements)),
	}

	rec.CollectionDate = requiredString(verr, raw, keyCollectionDate)
	if rec.CollectionDate != "" && !ValidDate(rec.CollectionDate) {
		verr.add(keyCollectionDate, "must be a date in YYYY-MM-DD format")
	}

	rec.ProductionLine = requiredString(verr, raw, keyProductionLine)
	if rec.ProductionLine != "" && !schema.HasLine(rec.ProductionLine) {
		verr.add(keyProductionLine, "unknown line %s for %s", rec.ProductionLine, group)
	}

	if v, ok := optionalString(verr, raw, keySKU); ok {
		rec.SKU = v
	}
	if v, ok := optionalNumber(verr, raw, keyBagWeight); ok {
		rec.BagWeight = v
	}

	panel, panelSet := nullableNumber(verr, raw, keyPanelParameter)
	acrisson, acrissonSet := nullableNumber(verr, raw, keyAcrisson)
	if schema.HasLine(rec.ProductionLine) && schema.CarriesSpecialFields(rec.ProductionLine) {
		if !panelSet || panel == nil {
			verr.add(keyPanelParameter, "required for line %s", rec.ProductionLine)
		}
		if !acrissonSet || acrisson == nil {
			verr.add(keyAcrisson, "required for line %s", rec.ProductionLine)
		}
		rec.PanelParameter = panel
		rec.Acrisson = acrisson
	}

	for _, f := range schema.Measurements {
		rec.Measurements[f.Key] = 0
		if v, ok := optionalNumber(verr, raw, f.Key); ok {
			rec.Measurements[f.Key] = v
		}
	}

	if err := verr.orNil(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// DecodePatch validates a partial update payload. Every field is optional;
// unknown keys are ignored.
func DecodePatch(group Group, raw map[string]any) (Patch, error) {
	schema := SchemaFor(group)
	verr := &ValidationError{}
	var p Patch

	if v, ok := optionalString(verr, raw, keyCollectionDate); ok {
		if !ValidDate(v) {
			verr.add(keyCollectionDate, "must be a date in YYYY-MM-DD format")
		}
		p.CollectionDate = &v
	}
	if v, ok := optionalString(verr, raw, keyProductionLine); ok {
		if !schema.HasLine(v) {
			verr.add(keyProductionLine, "unknown line %s for %s", v, group)
		}
		p.ProductionLine = &v
	}
	if v, ok := optionalString(verr, raw, keySKU); ok {
		p.SKU = &v
	}
	if v, ok := optionalNumber(verr, raw, keyBagWeight); ok {
		p.BagWeight = &v
	}
	if v, ok := nullableNumber(verr, raw, keyPanelParameter); ok {
		p.PanelParameter = NullableFloat{Set: true, Value: v}
	}
	if v, ok := nullableNumber(verr, raw, keyAcrisson); ok {
		p.Acrisson = NullableFloat{Set: true, Value: v}
	}
	for _, f := range schema.Measurements {
		if v, ok := optionalNumber(verr, raw, f.Key); ok {
			if p.Measurements == nil {
				p.Measurements = make(map[string]float64)
			}
			p.Measurements[f.Key] = v
		}
	}

	if err := verr.orNil(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

func requiredString(verr *ValidationError, raw map[string]any, key string) string {
	value, present := raw[key]
	if !present || value == nil {
		verr.add(key, "is required")
		return ""
	}
	s, ok := value.(string)
	if !ok {
		verr.add(key, "must be a string")
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		verr.add(key, "is required")
	}
	return s
}

func optionalString(verr *ValidationError, raw map[string]any, key string) (string, bool) {
	value, present := raw[key]
	if !present || value == nil {
		return "", false
	}
	s, ok := value.(string)
	if !ok {
		verr.add(key, "must be a string")
		return "", false
	}
	return strings.TrimSpace(s), true
}

func optionalNumber(verr *ValidationError, raw map[string]any, key string) (float64, bool) {
	value, present := raw[key]
	if !present || value == nil {
		return 0, false
	}
	f, ok := toFloat(value)
	if !ok {
		verr.add(key, "must be a number")
		return 0, false
	}
	return f, true
}

// nullableNumber distinguishes an absent key from an explicit null.
func nullableNumber(verr *ValidationError, raw map[string]any, key string) (*float64, bool) {
	value, present := raw[key]
	if !present {
		return nil, false
	}
	if value == nil {
		return nil, true
	}
	f, ok := toFloat(value)
	if !ok {
		verr.add(key, "must be a number or null")
		return nil, false
	}
	return &f, true
}

func toFloat(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
