// Package record implements the Row (tuple) codec over a types.Schema.
// Grounded on original_source/src/record/row.cpp.
package record

import (
	"encoding/binary"
	"fmt"

	"github.com/jobala/petro/storage/disk"
	"github.com/jobala/petro/types"
)

// RowId physically identifies a row: (PageId, SlotNumber).
type RowId struct {
	PageId  disk.PageId
	SlotNum uint32
}

var InvalidRowId = RowId{PageId: disk.InvalidPageId, SlotNum: 0}

func (r RowId) IsValid() bool { return r.PageId != disk.InvalidPageId }

// Pack folds the RowId into a single uint64 for use as a map key.
func (r RowId) Pack() uint64 {
	return uint64(uint32(r.PageId))<<32 | uint64(r.SlotNum)
}

func UnpackRowId(v uint64) RowId {
	return RowId{PageId: disk.PageId(int32(v >> 32)), SlotNum: uint32(v)}
}

// Row owns an ordered list of Values plus an optional RowId.
type Row struct {
	Fields []types.Value
	Rid    RowId
}

func NewRow(fields []types.Value) *Row {
	return &Row{Fields: fields, Rid: InvalidRowId}
}

func (r *Row) SetRowId(rid RowId) { r.Rid = rid }
func (r *Row) GetField(i int) types.Value { return r.Fields[i] }

// GetKeyFromRow projects this row onto keySchema's columns (identified by
// name against tableSchema), producing a composite key row. Grounded on
// original_source's Row::GetKeyFromRow.
func (r *Row) GetKeyFromRow(tableSchema, keySchema *types.Schema) (*Row, error) {
	fields := make([]types.Value, keySchema.ColumnCount())
	for i, col := range keySchema.Columns {
		idx, ok := tableSchema.GetColumnIndex(col.Name)
		if !ok {
			return nil, fmt.Errorf("record: column %q not in table schema", col.Name)
		}
		fields[i] = r.Fields[idx]
	}
	return NewRow(fields), nil
}

func nullBitmapSize(fieldCount int) int {
	return (fieldCount + 7) / 8
}

// SerializedSize returns field_count(4) + null_bitmap + Σ non-null field
// sizes.
func (r *Row) SerializedSize(schema *types.Schema) int {
	n := len(r.Fields)
	size := 4 + nullBitmapSize(n)
	for i, f := range r.Fields {
		size += f.SerializedSize(schema.GetColumn(i))
	}
	return size
}

// SerializeTo writes `field_count | null_bitmap | non-null fields…` to buf,
// returning the number of bytes written.
func (r *Row) SerializeTo(buf []byte, schema *types.Schema) (int, error) {
	if schema.ColumnCount() != len(r.Fields) {
		return 0, fmt.Errorf("record: row has %d fields, schema has %d columns", len(r.Fields), schema.ColumnCount())
	}

	offset := 0
	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(r.Fields)))
	offset += 4

	bitmapSize := nullBitmapSize(len(r.Fields))
	bitmap := buf[offset : offset+bitmapSize]
	for i := range bitmap {
		bitmap[i] = 0
	}
	for i, f := range r.Fields {
		if f.Null {
			bitmap[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	offset += bitmapSize

	for _, f := range r.Fields {
		offset += f.SerializeTo(buf[offset:])
	}

	return offset, nil
}

// DeserializeFrom reads a row previously written by SerializeTo.
func (r *Row) DeserializeFrom(buf []byte, schema *types.Schema) (int, error) {
	offset := 0
	fieldCount := binary.LittleEndian.Uint32(buf[offset:])
	offset += 4

	bitmapSize := nullBitmapSize(int(fieldCount))
	bitmap := buf[offset : offset+bitmapSize]
	offset += bitmapSize

	fields := make([]types.Value, fieldCount)
	for i := uint32(0); i < fieldCount; i++ {
		isNull := bitmap[i/8]&(1<<(7-uint(i%8))) != 0
		v, n, err := types.DeserializeValue(buf[offset:], schema.GetColumn(int(i)).Type, isNull)
		if err != nil {
			return 0, err
		}
		fields[i] = v
		offset += n
	}

	r.Fields = fields
	return offset, nil
}

// Equal compares two rows field-by-field (used by round-trip tests).
func (r *Row) Equal(other *Row) bool {
	if len(r.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range r.Fields {
		if !f.Equal(other.Fields[i]) {
			return false
		}
	}
	return true
}
