package catalog

import (
	"github.com/jobala/petro/index"
	"github.com/jobala/petro/storage/heap"
	"github.com/jobala/petro/types"
)

// TableInfo bundles a live table's name, schema, and heap.
type TableInfo struct {
	TableId   uint32
	TableName string
	Schema    *types.Schema
	Heap      *heap.TableHeap
}

// IndexInfo bundles a live index's name, key schema, tree, and the table
// it indexes.
type IndexInfo struct {
	IndexId   uint32
	IndexName string
	TableId   uint32
	KeySchema *types.Schema
	KeyManager *index.KeyManager
	Tree      *index.Tree
}
