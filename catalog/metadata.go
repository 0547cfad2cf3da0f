// Package catalog persists table and index metadata: which tables and
// indexes exist, their schemas, and where their first pages live, so a
// database can be reopened without rescanning every page. Grounded on
// original_source/src/catalog/catalog.cpp (no jobala-petro equivalent exists —
// jobala-petro has no catalog layer, so this package's shape follows the
// reference implementation directly, expressed idiomatically in Go).
package catalog

import (
	"github.com/jobala/petro/storage/disk"
	"github.com/jobala/petro/types"
	"github.com/jobala/petro/util"
)

// TableMetadata is the persisted record naming one table: its name, schema,
// and the first page of its heap.
type TableMetadata struct {
	TableId      uint32
	TableName    string
	FirstPageId  disk.PageId
	Schema       *types.Schema
}

func (m *TableMetadata) encode(pageSize int) ([]byte, error) {
	return util.ToByteSlice(m, pageSize)
}

func decodeTableMetadata(buf []byte) (*TableMetadata, error) {
	return util.ToStruct[*TableMetadata](buf)
}

// IndexMetadata is the persisted record naming one index: which table it
// indexes and which columns (by position in the table's schema) form its
// key. The index's root page id is not stored here; it lives in the index
// roots page (index.SaveRoot/index.LoadRoot).
type IndexMetadata struct {
	IndexId   uint32
	IndexName string
	TableId   uint32
	KeyColumnIndices []int
}

func (m *IndexMetadata) encode(pageSize int) ([]byte, error) {
	return util.ToByteSlice(m, pageSize)
}

func decodeIndexMetadata(buf []byte) (*IndexMetadata, error) {
	return util.ToStruct[*IndexMetadata](buf)
}
