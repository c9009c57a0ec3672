package models

import "time"

// Source records how many rows one worksheet contributed to a Table, in load
// order. Rows of a source are contiguous in Table.Records.
type Source struct {
	Sheet string `json:"sheet"`
	Count int    `json:"count"`
}

// Table is the normalized roster assembled from every source worksheet.
type Table struct {
	Columns  []string     `json:"columns"`
	Records  []Registrant `json:"records"`
	Sources  []Source     `json:"sources"`
	LoadedAt time.Time    `json:"loaded_at"`
}

// Find returns the index of the record with the given id, or -1.
func (t *Table) Find(id string) int {
	for i := range t.Records {
		if t.Records[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can mutate records without touching a
// cached table.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns:  append([]string(nil), t.Columns...),
		Records:  make([]Registrant, len(t.Records)),
		Sources:  append([]Source(nil), t.Sources...),
		LoadedAt: t.LoadedAt,
	}
	for i, r := range t.Records {
		if r.Extra != nil {
			extra := make(map[string]string, len(r.Extra))
			for k, v := range r.Extra {
				extra[k] = v
			}
			r.Extra = extra
		}
		out.Records[i] = r
	}
	return out
}

// Split partitions the records back into their source worksheets using the
// source row counts. A short table fills earlier sources first.
func (t *Table) Split() map[string][]Registrant {
	out := make(map[string][]Registrant, len(t.Sources))
	offset := 0
	for _, src := range t.Sources {
		start := min(offset, len(t.Records))
		end := min(offset+src.Count, len(t.Records))
		out[src.Sheet] = t.Records[start:end]
		offset += src.Count
	}
	return out
}
