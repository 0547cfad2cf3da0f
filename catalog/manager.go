package catalog

import (
	"fmt"

	"github.com/jobala/petro/buffer"
	"github.com/jobala/petro/index"
	"github.com/jobala/petro/record"
	"github.com/jobala/petro/storage/disk"
	"github.com/jobala/petro/storage/heap"
	"github.com/jobala/petro/types"
	"github.com/jobala/petro/util"
)

// Manager owns every live table and index's metadata and in-memory handles,
// persisting enough on the catalog meta page (disk.CatalogMetaPageId) and
// per-object metadata pages to reconstruct everything on reopen.
type Manager struct {
	bpm *buffer.PoolManager

	meta *meta

	nextTableId uint32
	nextIndexId uint32

	tableNames map[string]uint32
	tables     map[uint32]*TableInfo

	indexNames map[string]map[string]uint32 // table name -> index name -> index id
	indexes    map[uint32]*IndexInfo
}

// NewManager either bootstraps a fresh catalog meta page (init=true, for a
// brand new database file) or loads every table and index recorded on an
// existing one.
func NewManager(bpm *buffer.PoolManager, init bool) (*Manager, error) {
	m := &Manager{
		bpm:        bpm,
		tableNames: make(map[string]uint32),
		tables:     make(map[uint32]*TableInfo),
		indexNames: make(map[string]map[string]uint32),
		indexes:    make(map[uint32]*IndexInfo),
	}

	if init {
		m.meta = newMeta()
		if err := m.FlushCatalogMetaPage(); err != nil {
			return nil, err
		}
		return m, nil
	}

	guard, err := bpm.FetchPage(disk.CatalogMetaPageId)
	if err != nil {
		return nil, err
	}
	if isBlank(guard.Data()) {
		m.meta = newMeta()
		if dropErr := guard.Drop(); dropErr != nil {
			return nil, dropErr
		}
		return m, nil
	}

	cm, err := deserializeMeta(guard.Data())
	if dropErr := guard.Drop(); dropErr != nil {
		return nil, dropErr
	}
	if err != nil {
		return nil, err
	}
	m.meta = cm

	for tableId, pageId := range cm.tableMetaPages {
		if err := m.LoadTable(tableId, pageId); err != nil {
			return nil, err
		}
		if tableId >= m.nextTableId {
			m.nextTableId = tableId + 1
		}
	}
	for indexId, pageId := range cm.indexMetaPages {
		if err := m.LoadIndex(indexId, pageId); err != nil {
			return nil, err
		}
		if indexId >= m.nextIndexId {
			m.nextIndexId = indexId + 1
		}
	}

	return m, nil
}

// FlushCatalogMetaPage writes the current table/index id -> meta-page-id
// map to disk.
func (m *Manager) FlushCatalogMetaPage() error {
	guard, err := m.bpm.FetchPageForWrite(disk.CatalogMetaPageId)
	if err != nil {
		return err
	}
	m.meta.serializeTo(guard.Data())
	if err := guard.Drop(); err != nil {
		return err
	}
	return m.bpm.FlushPage(disk.CatalogMetaPageId)
}

// CreateTable allocates a fresh heap for schema and records it under name.
func (m *Manager) CreateTable(name string, schema *types.Schema) (*TableInfo, error) {
	if _, exists := m.tableNames[name]; exists {
		return nil, fmt.Errorf("%w: table %q", util.ErrTableAlreadyExist, name)
	}

	th, err := heap.NewTableHeap(m.bpm, schema)
	if err != nil {
		return nil, err
	}

	tableId := m.nextTableId
	m.nextTableId++

	metaPageId, guard, err := m.bpm.NewPage()
	if err != nil {
		return nil, err
	}
	tm := &TableMetadata{TableId: tableId, TableName: name, FirstPageId: th.FirstPageId(), Schema: schema}
	data, err := tm.encode(disk.PageSize)
	if err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return nil, dropErr
		}
		return nil, err
	}
	copy(guard.Data(), data)
	if err := guard.Drop(); err != nil {
		return nil, err
	}

	info := &TableInfo{TableId: tableId, TableName: name, Schema: schema, Heap: th}
	m.tableNames[name] = tableId
	m.tables[tableId] = info
	m.meta.tableMetaPages[tableId] = metaPageId

	if err := m.FlushCatalogMetaPage(); err != nil {
		return nil, err
	}
	return info, nil
}

// GetTable resolves a table by name.
func (m *Manager) GetTable(name string) (*TableInfo, error) {
	id, ok := m.tableNames[name]
	if !ok {
		return nil, fmt.Errorf("%w: table %q", util.ErrTableNotExist, name)
	}
	return m.tables[id], nil
}

// GetTableById resolves a table by its internal id.
func (m *Manager) GetTableById(id uint32) (*TableInfo, error) {
	info, ok := m.tables[id]
	if !ok {
		return nil, fmt.Errorf("%w: table id %d", util.ErrTableNotExist, id)
	}
	return info, nil
}

// GetTables returns every live table, in no particular order.
func (m *Manager) GetTables() []*TableInfo {
	out := make([]*TableInfo, 0, len(m.tables))
	for _, info := range m.tables {
		out = append(out, info)
	}
	return out
}

// CreateIndex builds a new index over table's keyColumns, backfilling
// entries for every row already in the table.
func (m *Manager) CreateIndex(tableName, indexName string, keyColumns []string) (*IndexInfo, error) {
	if _, err := m.GetIndex(tableName, indexName); err == nil {
		return nil, fmt.Errorf("%w: index %q on %q", util.ErrIndexAlreadyExist, indexName, tableName)
	}

	table, ok := m.tableNames[tableName]
	if !ok {
		return nil, fmt.Errorf("%w: table %q", util.ErrTableNotExist, tableName)
	}
	tableInfo := m.tables[table]

	indices := make([]int, len(keyColumns))
	for i, col := range keyColumns {
		idx, ok := tableInfo.Schema.GetColumnIndex(col)
		if !ok {
			return nil, fmt.Errorf("%w: %q", util.ErrColumnNameNotExist, col)
		}
		indices[i] = idx
	}

	keySchema := tableInfo.Schema.KeySchema(indices)
	km := index.NewKeyManager(keySchema)
	tree := index.NewTree(m.bpm, km)

	it, err := tableInfo.Heap.Begin(nil)
	if err != nil {
		return nil, err
	}
	row := &record.Row{}
	for it.Valid() {
		if _, err := it.Row(row); err != nil {
			return nil, err
		}
		keyRow, err := row.GetKeyFromRow(tableInfo.Schema, keySchema)
		if err != nil {
			return nil, err
		}
		if err := tree.Insert(keyRow, row.Rid, nil); err != nil {
			return nil, err
		}
		if err := it.Next(); err != nil {
			return nil, err
		}
	}

	indexId := m.nextIndexId
	m.nextIndexId++

	if err := index.SaveRoot(m.bpm, indexId, tree.RootPageId()); err != nil {
		return nil, err
	}

	metaPageId, guard, err := m.bpm.NewPage()
	if err != nil {
		return nil, err
	}
	im := &IndexMetadata{IndexId: indexId, IndexName: indexName, TableId: table, KeyColumnIndices: indices}
	data, err := im.encode(disk.PageSize)
	if err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return nil, dropErr
		}
		return nil, err
	}
	copy(guard.Data(), data)
	if err := guard.Drop(); err != nil {
		return nil, err
	}

	info := &IndexInfo{IndexId: indexId, IndexName: indexName, TableId: table, KeySchema: keySchema, KeyManager: km, Tree: tree}
	if m.indexNames[tableName] == nil {
		m.indexNames[tableName] = make(map[string]uint32)
	}
	m.indexNames[tableName][indexName] = indexId
	m.indexes[indexId] = info
	m.meta.indexMetaPages[indexId] = metaPageId

	if err := m.FlushCatalogMetaPage(); err != nil {
		return nil, err
	}
	return info, nil
}

// GetIndex resolves an index by table and index name.
func (m *Manager) GetIndex(tableName, indexName string) (*IndexInfo, error) {
	if _, ok := m.tableNames[tableName]; !ok {
		return nil, fmt.Errorf("%w: table %q", util.ErrTableNotExist, tableName)
	}
	names, ok := m.indexNames[tableName]
	if !ok {
		return nil, fmt.Errorf("%w: %q on %q", util.ErrIndexNotFound, indexName, tableName)
	}
	id, ok := names[indexName]
	if !ok {
		return nil, fmt.Errorf("%w: %q on %q", util.ErrIndexNotFound, indexName, tableName)
	}
	return m.indexes[id], nil
}

// GetTableIndexes returns every index defined on tableName.
func (m *Manager) GetTableIndexes(tableName string) ([]*IndexInfo, error) {
	names, ok := m.indexNames[tableName]
	if !ok {
		return nil, fmt.Errorf("%w: no indexes on %q", util.ErrIndexNotFound, tableName)
	}
	out := make([]*IndexInfo, 0, len(names))
	for _, id := range names {
		out = append(out, m.indexes[id])
	}
	return out, nil
}

// DropTable removes a table and every index defined on it.
func (m *Manager) DropTable(name string) error {
	tableId, ok := m.tableNames[name]
	if !ok {
		return fmt.Errorf("%w: table %q", util.ErrTableNotExist, name)
	}

	if indexes, err := m.GetTableIndexes(name); err == nil {
		for _, idx := range indexes {
			if err := m.DropIndex(name, idx.IndexName); err != nil {
				return err
			}
		}
	}

	if err := m.tables[tableId].Heap.DeleteTable(); err != nil {
		return err
	}

	delete(m.tableNames, name)
	delete(m.tables, tableId)

	metaPageId := m.meta.tableMetaPages[tableId]
	if _, err := m.bpm.DeletePage(metaPageId); err != nil {
		return err
	}
	delete(m.meta.tableMetaPages, tableId)

	return m.FlushCatalogMetaPage()
}

// DropIndex removes a single index from a table.
func (m *Manager) DropIndex(tableName, indexName string) error {
	names, ok := m.indexNames[tableName]
	if !ok {
		return fmt.Errorf("%w: table %q", util.ErrTableNotExist, tableName)
	}
	indexId, ok := names[indexName]
	if !ok {
		return fmt.Errorf("%w: %q on %q", util.ErrIndexNotFound, indexName, tableName)
	}

	delete(names, indexName)
	delete(m.indexes, indexId)

	metaPageId := m.meta.indexMetaPages[indexId]
	if _, err := m.bpm.DeletePage(metaPageId); err != nil {
		return err
	}
	delete(m.meta.indexMetaPages, indexId)

	if err := index.DeleteRoot(m.bpm, indexId); err != nil {
		return err
	}

	return m.FlushCatalogMetaPage()
}

// LoadTable reads one table's metadata record and registers it in memory;
// NewManager calls it at startup for every table in the catalog meta page.
func (m *Manager) LoadTable(tableId uint32, metaPageId disk.PageId) error {
	if _, exists := m.tables[tableId]; exists {
		return fmt.Errorf("%w: table id %d already loaded", util.ErrFailed, tableId)
	}

	guard, err := m.bpm.FetchPage(metaPageId)
	if err != nil {
		return err
	}
	tm, err := decodeTableMetadata(guard.Data())
	if dropErr := guard.Drop(); dropErr != nil {
		return dropErr
	}
	if err != nil {
		return err
	}

	th := heap.OpenTableHeap(m.bpm, tm.Schema, tm.FirstPageId)
	m.tableNames[tm.TableName] = tableId
	m.tables[tableId] = &TableInfo{TableId: tableId, TableName: tm.TableName, Schema: tm.Schema, Heap: th}
	return nil
}

// LoadIndex reads one index's metadata record, resumes its tree at its
// persisted root, and registers it in memory.
func (m *Manager) LoadIndex(indexId uint32, metaPageId disk.PageId) error {
	if _, exists := m.indexes[indexId]; exists {
		return fmt.Errorf("%w: index id %d already loaded", util.ErrFailed, indexId)
	}

	guard, err := m.bpm.FetchPage(metaPageId)
	if err != nil {
		return err
	}
	im, err := decodeIndexMetadata(guard.Data())
	if dropErr := guard.Drop(); dropErr != nil {
		return dropErr
	}
	if err != nil {
		return err
	}
	if im.IndexId != indexId {
		return fmt.Errorf("%w: index metadata id mismatch", util.ErrFailed)
	}

	tableInfo, ok := m.tables[im.TableId]
	if !ok {
		return fmt.Errorf("%w: table id %d for index %q", util.ErrTableNotExist, im.TableId, im.IndexName)
	}

	keySchema := tableInfo.Schema.KeySchema(im.KeyColumnIndices)
	km := index.NewKeyManager(keySchema)
	tree := index.NewTree(m.bpm, km)

	root, err := index.LoadRoot(m.bpm, indexId)
	if err != nil {
		return err
	}
	tree.SetRoot(root)

	if m.indexNames[tableInfo.TableName] == nil {
		m.indexNames[tableInfo.TableName] = make(map[string]uint32)
	}
	m.indexNames[tableInfo.TableName][im.IndexName] = indexId
	m.indexes[indexId] = &IndexInfo{
		IndexId:    indexId,
		IndexName:  im.IndexName,
		TableId:    im.TableId,
		KeySchema:  keySchema,
		KeyManager: km,
		Tree:       tree,
	}
	return nil
}
