package models

// DayGroup is the derived view of every record sharing a collection date.
type DayGroup struct {
	Date   string   `json:"date"`
	Group1 []Record `json:"group1"`
	Group2 []Record `json:"group2"`
	Total  int      `json:"total"`
}

// RecordRef identifies a stored record across both groups.
type RecordRef struct {
	Group Group  `json:"group"`
	ID    int64  `json:"id"`
	Line  string `json:"productionLine"`
}

// FailedDeletion is a record the whole-day delete could not remove.
type FailedDeletion struct {
	RecordRef
	Reason string `json:"reason"`
}

// DayDeletion accumulates the per-record outcome of deleting a whole day.
type DayDeletion struct {
	Date    string           `json:"date"`
	Deleted []RecordRef      `json:"deleted"`
	Failed  []FailedDeletion `json:"failed"`
}

// Complete reports whether every targeted record was removed.
func (d DayDeletion) Complete() bool {
	return len(d.Failed) == 0
}
