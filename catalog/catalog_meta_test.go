package catalog

import (
	"testing"

	"github.com/jobala/petro/storage/disk"
)

func TestMetaRoundTrip(t *testing.T) {
	t.Run("serialize then deserialize preserves every entry", func(t *testing.T) {
		m := newMeta()
		m.tableMetaPages[1] = 10
		m.tableMetaPages[2] = 20
		m.indexMetaPages[5] = 50

		buf := make([]byte, m.serializedSize())
		m.serializeTo(buf)

		got, err := deserializeMeta(buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.tableMetaPages) != 2 || got.tableMetaPages[1] != 10 || got.tableMetaPages[2] != 20 {
			t.Fatalf("unexpected table meta pages: %+v", got.tableMetaPages)
		}
		if len(got.indexMetaPages) != 1 || got.indexMetaPages[5] != 50 {
			t.Fatalf("unexpected index meta pages: %+v", got.indexMetaPages)
		}
	})

	t.Run("deserialize rejects a corrupt magic number", func(t *testing.T) {
		m := newMeta()
		buf := make([]byte, m.serializedSize())
		m.serializeTo(buf)
		buf[0] ^= 0xFF

		if _, err := deserializeMeta(buf); err == nil {
			t.Fatalf("expected an error for a corrupt magic number")
		}
	})

	t.Run("a blank page is reported as blank", func(t *testing.T) {
		buf := make([]byte, disk.PageSize)
		if !isBlank(buf) {
			t.Fatalf("expected an all-zero page to be reported blank")
		}
		buf[0] = 1
		if isBlank(buf) {
			t.Fatalf("expected a non-zero page to not be reported blank")
		}
	})
}
