package sheet

import "strings"

// Schema resolves logical fields against the header row a sheet actually has.
type Schema struct {
	header []string
	byLbl  map[string]int
	fields map[Field]int
}

func NewSchema(header []string) Schema {
	s := Schema{
		header: NormalizeHeader(header),
		byLbl:  map[string]int{},
		fields: map[Field]int{},
	}
	for idx, label := range s.header {
		if label == "" {
			continue
		}
		if _, dup := s.byLbl[label]; !dup {
			s.byLbl[label] = idx
		}
	}
	for _, col := range Columns {
		if idx, ok := s.byLbl[col.Label]; ok {
			s.fields[col.Field] = idx
		}
	}
	return s
}

func NormalizeHeader(row []string) []string {
	header := make([]string, len(row))
	for i, col := range row {
		header[i] = strings.TrimPrefix(strings.TrimSpace(col), "\ufeff")
	}
	return header
}

func (s Schema) Header() []string {
	return append([]string(nil), s.header...)
}

func (s Schema) Width() int {
	return len(s.header)
}

func (s Schema) Index(field Field) (int, bool) {
	idx, ok := s.fields[field]
	return idx, ok
}

func (s Schema) IndexOfLabel(label string) (int, bool) {
	idx, ok := s.byLbl[strings.TrimSpace(label)]
	return idx, ok
}

func (s Schema) Has(field Field) bool {
	_, ok := s.fields[field]
	return ok
}

// Missing returns the labels of fields that are absent from the header.
func (s Schema) Missing(fields ...Field) []string {
	var missing []string
	for _, f := range fields {
		if !s.Has(f) {
			missing = append(missing, LabelOf(f))
		}
	}
	return missing
}

// Without returns the header with the given field's column removed.
func (s Schema) Without(field Field) []string {
	idx, ok := s.Index(field)
	if !ok {
		return s.Header()
	}
	out := make([]string, 0, len(s.header)-1)
	out = append(out, s.header[:idx]...)
	return append(out, s.header[idx+1:]...)
}

// Projection maps every column of s to the index of the same label in src,
// or -1 when src has no such column.
func (s Schema) Projection(src Schema) []int {
	mapping := make([]int, len(s.header))
	for i, label := range s.header {
		mapping[i] = -1
		if idx, ok := src.IndexOfLabel(label); ok && label != "" {
			mapping[i] = idx
		}
	}
	return mapping
}

// Project rebuilds cells from a row laid out by the projection's source schema.
func Project(cells []string, mapping []int) []string {
	out := make([]string, len(mapping))
	for i, srcIdx := range mapping {
		if srcIdx >= 0 && srcIdx < len(cells) {
			out[i] = cells[srcIdx]
		}
	}
	return out
}

// Record is one row read through a Schema.
type Record struct {
	Schema Schema
	Cells  []string
}

func (r Record) Get(field Field) string {
	idx, ok := r.Schema.Index(field)
	if !ok || idx >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[idx])
}

// Set writes value when the schema has the field, growing Cells as needed.
func (r *Record) Set(field Field, value string) bool {
	idx, ok := r.Schema.Index(field)
	if !ok {
		return false
	}
	for len(r.Cells) <= idx {
		r.Cells = append(r.Cells, "")
	}
	r.Cells[idx] = value
	return true
}

// Build lays out values keyed by field according to the schema.
func (s Schema) Build(values map[Field]string) []string {
	cells := make([]string, len(s.header))
	for field, value := range values {
		if idx, ok := s.fields[field]; ok {
			cells[idx] = value
		}
	}
	return cells
}
