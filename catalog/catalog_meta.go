package catalog

import (
	"encoding/binary"
	"fmt"

	"github.com/jobala/petro/storage/disk"
)

// meta is the catalog meta page's body: every live table/index id mapped
// to the page holding its TableMetadata/IndexMetadata record. Wire format:
// magic | n_tables | n_indexes | (table_id, meta_page_id)×n_tables |
// (index_id, meta_page_id)×n_indexes — pinned with encoding/binary rather
// than msgpack since it is the catalog's root of trust and must decode
// identically across versions.
type meta struct {
	tableMetaPages map[uint32]disk.PageId
	indexMetaPages map[uint32]disk.PageId
}

func newMeta() *meta {
	return &meta{tableMetaPages: make(map[uint32]disk.PageId), indexMetaPages: make(map[uint32]disk.PageId)}
}

func (m *meta) serializedSize() int {
	return 4 + 4 + 4 + 8*len(m.tableMetaPages) + 8*len(m.indexMetaPages)
}

func (m *meta) serializeTo(buf []byte) {
	offset := 0
	binary.LittleEndian.PutUint32(buf[offset:], disk.CatalogMetadataMagicNum)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(m.tableMetaPages)))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(m.indexMetaPages)))
	offset += 4
	for id, pageId := range m.tableMetaPages {
		binary.LittleEndian.PutUint32(buf[offset:], id)
		offset += 4
		binary.LittleEndian.PutUint32(buf[offset:], uint32(pageId))
		offset += 4
	}
	for id, pageId := range m.indexMetaPages {
		binary.LittleEndian.PutUint32(buf[offset:], id)
		offset += 4
		binary.LittleEndian.PutUint32(buf[offset:], uint32(pageId))
		offset += 4
	}
}

func deserializeMeta(buf []byte) (*meta, error) {
	offset := 0
	magic := binary.LittleEndian.Uint32(buf[offset:])
	if magic != disk.CatalogMetadataMagicNum {
		return nil, fmt.Errorf("catalog: corrupt meta page (bad magic %#x)", magic)
	}
	offset += 4

	nTables := binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	nIndexes := binary.LittleEndian.Uint32(buf[offset:])
	offset += 4

	m := newMeta()
	for i := uint32(0); i < nTables; i++ {
		id := binary.LittleEndian.Uint32(buf[offset:])
		offset += 4
		pageId := disk.PageId(int32(binary.LittleEndian.Uint32(buf[offset:])))
		offset += 4
		m.tableMetaPages[id] = pageId
	}
	for i := uint32(0); i < nIndexes; i++ {
		id := binary.LittleEndian.Uint32(buf[offset:])
		offset += 4
		pageId := disk.PageId(int32(binary.LittleEndian.Uint32(buf[offset:])))
		offset += 4
		m.indexMetaPages[id] = pageId
	}
	return m, nil
}

// isBlank reports whether buf holds an as-yet-unwritten meta page (all
// zero bytes), distinguishing "new database" from "corrupt magic".
func isBlank(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
