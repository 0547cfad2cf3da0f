package types

import (
	"encoding/binary"
	"fmt"
)

// ColumnMagicNum tags every serialized column for corruption detection.
// Grounded on original_source's COLUMN_MAGIC_NUM.
const ColumnMagicNum uint32 = 0x00033810

// Column describes one field of a schema: name, type, byte length (for
// char; implied for int/float), nullability, uniqueness, and its
// positional index within the owning schema.
type Column struct {
	Name       string
	Type       Kind
	Length     uint32 // byte length for Char; 4 for Int/Float
	TableIndex uint32
	Nullable   bool
	Unique     bool
}

func NewIntColumn(name string, index uint32, nullable, unique bool) *Column {
	return &Column{Name: name, Type: KindInt, Length: 4, TableIndex: index, Nullable: nullable, Unique: unique}
}

func NewFloatColumn(name string, index uint32, nullable, unique bool) *Column {
	return &Column{Name: name, Type: KindFloat, Length: 4, TableIndex: index, Nullable: nullable, Unique: unique}
}

func NewCharColumn(name string, length, index uint32, nullable, unique bool) *Column {
	return &Column{Name: name, Type: KindChar, Length: length, TableIndex: index, Nullable: nullable, Unique: unique}
}

// Clone returns a deep copy; schemas hand these out rather than shared
// pointers when ownership must not be implied.
func (c *Column) Clone() *Column {
	cp := *c
	return &cp
}

// SerializedSize is the fixed wire layout: magic | name_len | name | type |
// len | table_ind | nullable | unique.
func (c *Column) SerializedSize() int {
	return 4 + 4 + len(c.Name) + 4 + 4 + 4 + 1 + 1
}

func (c *Column) SerializeTo(buf []byte) int {
	offset := 0
	binary.LittleEndian.PutUint32(buf[offset:], ColumnMagicNum)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(c.Name)))
	offset += 4
	copy(buf[offset:], c.Name)
	offset += len(c.Name)
	binary.LittleEndian.PutUint32(buf[offset:], uint32(c.Type))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], c.Length)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], c.TableIndex)
	offset += 4
	buf[offset] = boolToByte(c.Nullable)
	offset++
	buf[offset] = boolToByte(c.Unique)
	offset++
	return offset
}

func DeserializeColumn(buf []byte) (*Column, int, error) {
	offset := 0
	magic := binary.LittleEndian.Uint32(buf[offset:])
	if magic != ColumnMagicNum {
		return nil, 0, fmt.Errorf("types: corrupt column (bad magic %#x)", magic)
	}
	offset += 4

	nameLen := binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	name := string(buf[offset : offset+int(nameLen)])
	offset += int(nameLen)

	kind := Kind(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	length := binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	tableInd := binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	nullable := buf[offset] != 0
	offset++
	unique := buf[offset] != 0
	offset++

	return &Column{
		Name:       name,
		Type:       kind,
		Length:     length,
		TableIndex: tableInd,
		Nullable:   nullable,
		Unique:     unique,
	}, offset, nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
