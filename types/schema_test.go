package types

import "testing"

func testSchema() *Schema {
	return NewSchema([]*Column{
		NewIntColumn("id", 0, false, true),
		NewCharColumn("name", 32, 1, false, false),
		NewFloatColumn("score", 2, true, false),
	})
}

func TestSchema(t *testing.T) {
	t.Run("round trips through serialize/deserialize", func(t *testing.T) {
		s := testSchema()
		buf := make([]byte, s.SerializedSize())
		n := s.SerializeTo(buf)
		if n != len(buf) {
			t.Fatalf("expected to write %d bytes, wrote %d", len(buf), n)
		}

		got, consumed, err := DeserializeSchema(buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if consumed != n {
			t.Fatalf("expected to consume %d bytes, consumed %d", n, consumed)
		}
		if !s.Equal(got) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, s)
		}
	})

	t.Run("GetColumnIndex resolves by name and reports absence", func(t *testing.T) {
		s := testSchema()
		idx, ok := s.GetColumnIndex("name")
		if !ok || idx != 1 {
			t.Fatalf("expected name at index 1, got idx=%d ok=%v", idx, ok)
		}
		if _, ok := s.GetColumnIndex("missing"); ok {
			t.Fatalf("expected missing column to report absent")
		}
	})

	t.Run("KeySchema is a non-owning view sharing column pointers", func(t *testing.T) {
		s := testSchema()
		ks := s.KeySchema([]int{0})
		if ks.IsManaged {
			t.Fatalf("expected a key schema view to be unmanaged")
		}
		if ks.GetColumn(0) != s.GetColumn(0) {
			t.Fatalf("expected key schema to share the underlying column pointer")
		}
	})

	t.Run("DeepCopy produces independently mutable columns", func(t *testing.T) {
		s := testSchema()
		cp := s.DeepCopy()
		cp.GetColumn(0).Name = "renamed"
		if s.GetColumn(0).Name == "renamed" {
			t.Fatalf("expected deep copy to not alias the original column")
		}
		if !cp.IsManaged {
			t.Fatalf("expected deep copy to be managed")
		}
	})

	t.Run("deserialize rejects a corrupt magic number", func(t *testing.T) {
		s := testSchema()
		buf := make([]byte, s.SerializedSize())
		s.SerializeTo(buf)
		buf[0] ^= 0xFF

		if _, _, err := DeserializeSchema(buf); err == nil {
			t.Fatalf("expected an error for a corrupt magic number")
		}
	})
}
