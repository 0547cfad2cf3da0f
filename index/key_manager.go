package index

import (
	"github.com/jobala/petro/record"
	"github.com/jobala/petro/types"
)

// KeyManager compares composite index keys — rows projected onto an
// index's key schema — field by field in schema order, short-circuiting
// on the first non-equal field.
type KeyManager struct {
	schema *types.Schema
}

func NewKeyManager(schema *types.Schema) *KeyManager {
	return &KeyManager{schema: schema}
}

func (km *KeyManager) Schema() *types.Schema { return km.schema }

// Compare returns -1/0/1 comparing two key rows.
func (km *KeyManager) Compare(a, b *record.Row) int {
	for i := range a.Fields {
		if c := a.Fields[i].Compare(b.Fields[i]); c != 0 {
			return c
		}
	}
	return 0
}
