package types

import "testing"

func TestValue(t *testing.T) {
	t.Run("null values of the same kind are equal regardless of payload", func(t *testing.T) {
		a := NewNull(KindInt)
		b := NewInt(7)
		b.Null = true
		if !a.Equal(b) {
			t.Fatalf("expected two nulls of the same kind to be equal")
		}
	})

	t.Run("values of different kinds are never equal", func(t *testing.T) {
		if NewInt(1).Equal(NewFloat(1)) {
			t.Fatalf("int and float values must not compare equal")
		}
	})

	t.Run("compare orders char values lexicographically", func(t *testing.T) {
		if NewChar("apple").Compare(NewChar("banana")) >= 0 {
			t.Fatalf("expected apple < banana")
		}
		if NewChar("banana").Compare(NewChar("apple")) <= 0 {
			t.Fatalf("expected banana > apple")
		}
	})

	t.Run("a null value serializes to zero bytes", func(t *testing.T) {
		v := NewNull(KindChar)
		col := NewCharColumn("name", 32, 0, true, false)
		if n := v.SerializedSize(col); n != 0 {
			t.Fatalf("expected 0 bytes for a null field, got %d", n)
		}
		buf := make([]byte, 4)
		if n := v.SerializeTo(buf); n != 0 {
			t.Fatalf("expected SerializeTo to write 0 bytes for null, got %d", n)
		}
	})

	t.Run("char round trips through serialize/deserialize with its length prefix", func(t *testing.T) {
		v := NewChar("hello")
		buf := make([]byte, v.SerializedSize(nil))
		n := v.SerializeTo(buf)
		if n != len(buf) {
			t.Fatalf("expected to write %d bytes, wrote %d", len(buf), n)
		}

		got, consumed, err := DeserializeValue(buf, KindChar, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if consumed != n || got.String != "hello" {
			t.Fatalf("round trip mismatch: consumed=%d got=%q", consumed, got.String)
		}
	})

	t.Run("deserialize rejects a truncated char payload", func(t *testing.T) {
		buf := make([]byte, 4)
		// claims 10 bytes of payload follow but buf has none.
		buf[0], buf[1], buf[2], buf[3] = 10, 0, 0, 0
		if _, _, err := DeserializeValue(buf, KindChar, false); err == nil {
			t.Fatalf("expected an error for a truncated char payload")
		}
	})

	t.Run("deserialize with isNull short-circuits without consuming bytes", func(t *testing.T) {
		v, n, err := DeserializeValue(nil, KindInt, true)
		if err != nil || n != 0 || !v.Null {
			t.Fatalf("expected a null value consuming 0 bytes, got %+v n=%d err=%v", v, n, err)
		}
	})
}
