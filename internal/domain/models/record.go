package models

import (
	"encoding/json"
	"sort"
	"time"
)

// DateLayout is the storage and wire format of collection dates.
const DateLayout = "2006-01-02"

// Record is one daily measurement submission for a production line.
type Record struct {
	ID             int64
	Group          Group
	CollectionDate string
	ProductionLine string
	SKU            string
	BagWeight      float64
	PanelParameter *float64
	Acrisson       *float64
	Measurements   map[string]float64
	CreatedAt      time.Time
}

// Clone returns a deep copy so callers can hand records out of a shared map.
func (r Record) Clone() Record {
	out := r
	out.PanelParameter = cloneFloat(r.PanelParameter)
	out.Acrisson = cloneFloat(r.Acrisson)
	out.Measurements = make(map[string]float64, len(r.Measurements))
	for k, v := range r.Measurements {
		out.Measurements[k] = v
	}
	return out
}

// Measurement returns the named reading, zero when absent.
func (r Record) Measurement(key string) float64 {
	return r.Measurements[key]
}

// MarshalJSON renders the record as a flat object with every measurement of
// its schema present.
func (r Record) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":             r.ID,
		"collectionDate": r.CollectionDate,
		"productionLine": r.ProductionLine,
		"sku":            r.SKU,
		"bagWeight":      r.BagWeight,
		"panelParameter": r.PanelParameter,
		"acrisson":       r.Acrisson,
		"createdAt":      r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.Group == Group1 || r.Group == Group2 {
		for _, f := range SchemaFor(r.Group).Measurements {
			out[f.Key] = r.Measurements[f.Key]
		}
	} else {
		for k, v := range r.Measurements {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// SortRecords orders records by collection date descending, then id
// descending, matching the listing order of every store.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CollectionDate != records[j].CollectionDate {
			return records[i].CollectionDate > records[j].CollectionDate
		}
		return records[i].ID > records[j].ID
	})
}

// SortByLine orders records by production line ascending.
func SortByLine(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ProductionLine < records[j].ProductionLine
	})
}

// ValidDate reports whether value is a YYYY-MM-DD calendar date.
func ValidDate(value string) bool {
	_, err := time.Parse(DateLayout, value)
	return err == nil
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
