// Package disk multiplexes fixed-size pages inside a single database file,
// using a two-level bitmap-based free-space directory.
package disk

// PageId is a 32-bit logical page number. INVALID_PAGE_ID means "no page".
type PageId = int32

const InvalidPageId PageId = -1

// PageSize is the canonical on-disk/in-memory page size.
const PageSize = 4096

// CatalogMetaPageId and IndexRootsPageId are the two reserved pages at the
// front of every database file.
const (
	CatalogMetaPageId PageId = 0
	IndexRootsPageId  PageId = 1
)

// CatalogMetadataMagicNum is a stable 32-bit constant used to detect a
// corrupt catalog meta page on load.
const CatalogMetadataMagicNum uint32 = 0x89849284
