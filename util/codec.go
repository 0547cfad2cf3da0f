package util

import (
	"fmt"

	"github.com/vmihailenco/msgpack"
)

// ToByteSlice msgpack-encodes obj into a zero-padded page-sized buffer,
// returning an error if the encoding is longer than pageSize.
// Used for page kinds whose exact byte layout isn't otherwise pinned
// (B+ tree node pages, catalog/table/index metadata records) — layout-
// critical pages (bitmap, table/slotted page, row, schema, column) use
// encoding/binary directly instead, see their own codec files.
func ToByteSlice[T any](obj T, pageSize int) ([]byte, error) {
	res := make([]byte, pageSize)

	data, err := msgpack.Marshal(obj)
	if err != nil {
		return nil, err
	}
	if len(data) > pageSize {
		return nil, fmt.Errorf("util: encoded size %d exceeds page size %d", len(data), pageSize)
	}
	copy(res, data)

	return res, nil
}

// ToStruct msgpack-decodes data (a page-sized buffer, trailing zero bytes
// ignored by the msgpack reader) into a T.
func ToStruct[T any](data []byte) (T, error) {
	var res T

	if err := msgpack.Unmarshal(data, &res); err != nil {
		return res, err
	}

	return res, nil
}
