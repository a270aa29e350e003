package feed

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// OriginalColumn is the reserved column holding the entity's compact JSON.
// It is never flattened and never listed among a RecordSet's columns.
const OriginalColumn = "original_json"

// Record is one flattened entity. Columns are sparse: a missing column
// means "no value".
type Record struct {
	keys     []string
	cells    map[string]Scalar
	original []byte
}

// NewRecord builds a record from cells. A later cell with an already seen
// key replaces the earlier one.
func NewRecord(cells []Cell, original []byte) Record {
	r := Record{
		keys:     make([]string, 0, len(cells)),
		cells:    make(map[string]Scalar, len(cells)),
		original: slices.Clone(original),
	}
	for _, c := range cells {
		if c.Key == OriginalColumn {
			continue
		}
		if _, seen := r.cells[c.Key]; !seen {
			r.keys = append(r.keys, c.Key)
		}
		r.cells[c.Key] = c.Value
	}
	return r
}

// Keys returns the record's columns in the order they were flattened.
func (r Record) Keys() []string { return slices.Clone(r.keys) }

func (r Record) Has(col string) bool {
	_, ok := r.cells[col]
	return ok
}

func (r Record) Get(col string) (Scalar, bool) {
	s, ok := r.cells[col]
	return s, ok
}

// String returns the textual value of col when it is present and not null.
func (r Record) String(col string) (string, bool) {
	s, ok := r.cells[col]
	if !ok || s.IsNull() {
		return "", false
	}
	return s.String(), true
}

func (r Record) Float(col string) (float64, bool) {
	s, ok := r.cells[col]
	if !ok {
		return 0, false
	}
	return s.Float64()
}

func (r Record) Int(col string) (int64, bool) {
	s, ok := r.cells[col]
	if !ok {
		return 0, false
	}
	return s.Int64()
}

// Original returns the reserved column's JSON.
func (r Record) Original() []byte { return slices.Clone(r.original) }

func (r Record) Equal(o Record) bool {
	if len(r.cells) != len(o.cells) || string(r.original) != string(o.original) {
		return false
	}
	for k, v := range r.cells {
		ov, ok := o.cells[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// RecordSet is an immutable, ordered, sparse table of records. Its columns
// are the union of every record's keys in first-seen order.
type RecordSet struct {
	records     []Record
	columns     []string
	columnSet   map[string]struct{}
	fingerprint uint64
}

// NewRecordSet derives the column union from records.
func NewRecordSet(records []Record) *RecordSet {
	var columns []string
	seen := make(map[string]struct{})
	for _, r := range records {
		for _, k := range r.keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}
	return newRecordSet(slices.Clone(records), columns, seen)
}

func newRecordSet(records []Record, columns []string, columnSet map[string]struct{}) *RecordSet {
	rs := &RecordSet{records: records, columns: columns, columnSet: columnSet}
	rs.fingerprint = fingerprint(records, columns)
	return rs
}

// Empty returns a set with no records and no columns.
func Empty() *RecordSet { return NewRecordSet(nil) }

func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.records)
}

func (rs *RecordSet) IsEmpty() bool { return rs.Len() == 0 }

func (rs *RecordSet) At(i int) Record { return rs.records[i] }

// Records returns the records; the slice is a copy.
func (rs *RecordSet) Records() []Record {
	if rs == nil {
		return nil
	}
	return slices.Clone(rs.records)
}

func (rs *RecordSet) Columns() []string {
	if rs == nil {
		return nil
	}
	return slices.Clone(rs.columns)
}

func (rs *RecordSet) HasColumn(col string) bool {
	if rs == nil {
		return false
	}
	_, ok := rs.columnSet[col]
	return ok
}

// Get returns the value of col in record i.
func (rs *RecordSet) Get(i int, col string) (Scalar, bool) {
	if rs == nil || i < 0 || i >= len(rs.records) {
		return Scalar{}, false
	}
	return rs.records[i].Get(col)
}

// Fingerprint identifies the content of the set.
func (rs *RecordSet) Fingerprint() uint64 {
	if rs == nil {
		return fingerprint(nil, nil)
	}
	return rs.fingerprint
}

// Where returns a new set with the records matching keep. The column list
// is inherited, so a filtered set keeps its parent's schema.
func (rs *RecordSet) Where(keep func(Record) bool) *RecordSet {
	if rs == nil {
		return Empty()
	}
	kept := make([]Record, 0, len(rs.records))
	for _, r := range rs.records {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	return newRecordSet(kept, slices.Clone(rs.columns), rs.columnSet)
}

// Clone returns an equal set that shares no slices with rs.
func (rs *RecordSet) Clone() *RecordSet {
	return rs.Where(func(Record) bool { return true })
}

// Equal reports whether both sets hold equal records in the same order.
func (rs *RecordSet) Equal(o *RecordSet) bool {
	if rs.Len() != o.Len() {
		return false
	}
	for i := 0; i < rs.Len(); i++ {
		if !rs.records[i].Equal(o.records[i]) {
			return false
		}
	}
	return true
}

// fingerprint covers the column list too: filtered sets inherit columns
// that their records may not carry.
func fingerprint(records []Record, columns []string) uint64 {
	d := xxhash.New()
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(records)))
	_, _ = d.Write(n[:])
	for _, c := range columns {
		_, _ = d.WriteString(c)
		_, _ = d.Write([]byte{0x1f})
	}
	_, _ = d.Write([]byte{0x1d})
	for _, r := range records {
		_, _ = d.Write(r.original)
		_, _ = d.Write([]byte{0x1d})
		for _, k := range r.keys {
			v := r.cells[k]
			_, _ = d.WriteString(k)
			_, _ = d.Write([]byte{0x1f, byte(v.kind)})
			_, _ = d.WriteString(v.text)
			_, _ = d.Write([]byte{0x1e})
		}
	}
	return d.Sum64()
}
