package types

import (
	"encoding/binary"
	"fmt"
)

// SchemaMagicNum tags every serialized schema for corruption detection.
const SchemaMagicNum uint32 = 0x00031FEB

// Schema owns an ordered list of columns.
type Schema struct {
	Columns   []*Column
	IsManaged bool // whether this schema owns (vs. shallow-views) its columns
}

func NewSchema(columns []*Column) *Schema {
	return &Schema{Columns: columns, IsManaged: true}
}

func (s *Schema) ColumnCount() int { return len(s.Columns) }

func (s *Schema) GetColumn(i int) *Column { return s.Columns[i] }

// GetColumnIndex resolves a column name to its position, or reports
// failure via the bool return.
func (s *Schema) GetColumnIndex(name string) (int, bool) {
	for i, c := range s.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// KeySchema returns a shallow, non-owning view over the subset of columns
// named by indices — used to build an index's key schema without copying
// the table schema's columns.
func (s *Schema) KeySchema(indices []int) *Schema {
	cols := make([]*Column, len(indices))
	for i, idx := range indices {
		cols[i] = s.Columns[idx] // shared pointer: non-owning view
	}
	return &Schema{Columns: cols, IsManaged: false}
}

// DeepCopy returns a schema owning independent copies of every column.
func (s *Schema) DeepCopy() *Schema {
	cols := make([]*Column, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = c.Clone()
	}
	return &Schema{Columns: cols, IsManaged: true}
}

func (s *Schema) SerializedSize() int {
	size := 4 + 4 // magic + count
	for _, c := range s.Columns {
		size += c.SerializedSize()
	}
	size += 1 // is_manage
	return size
}

func (s *Schema) SerializeTo(buf []byte) int {
	offset := 0
	binary.LittleEndian.PutUint32(buf[offset:], SchemaMagicNum)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(s.Columns)))
	offset += 4
	for _, c := range s.Columns {
		offset += c.SerializeTo(buf[offset:])
	}
	buf[offset] = boolToByte(s.IsManaged)
	offset++
	return offset
}

// Equal compares two schemas field-by-field (used by round-trip tests).
func (s *Schema) Equal(other *Schema) bool {
	if s.IsManaged != other.IsManaged || len(s.Columns) != len(other.Columns) {
		return false
	}
	for i, c := range s.Columns {
		o := other.Columns[i]
		if c.Name != o.Name || c.Type != o.Type || c.Length != o.Length ||
			c.TableIndex != o.TableIndex || c.Nullable != o.Nullable || c.Unique != o.Unique {
			return false
		}
	}
	return true
}

func DeserializeSchema(buf []byte) (*Schema, int, error) {
	offset := 0
	magic := binary.LittleEndian.Uint32(buf[offset:])
	if magic != SchemaMagicNum {
		return nil, 0, fmt.Errorf("types: corrupt schema (bad magic %#x)", magic)
	}
	offset += 4

	count := binary.LittleEndian.Uint32(buf[offset:])
	offset += 4

	columns := make([]*Column, count)
	for i := uint32(0); i < count; i++ {
		col, n, err := DeserializeColumn(buf[offset:])
		if err != nil {
			return nil, 0, err
		}
		columns[i] = col
		offset += n
	}

	isManaged := buf[offset] != 0
	offset++

	return &Schema{Columns: columns, IsManaged: isManaged}, offset, nil
}
