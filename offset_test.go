package termgrid

import "testing"

func TestOffsetBufAllocSlice(t *testing.T) {
	buf := NewOffsetBuf(make([]byte, 256))
	ints := allocSlice[int32](buf, 4)
	if ints.Len != 4 {
		t.Fatalf("Len = %d, want 4", ints.Len)
	}

	base := buf.Base()
	for i := 0; i < 4; i++ {
		*ints.at(base, i) = int32(i * 10)
	}
	got := ints.slice(base)
	for i, v := range got {
		if v != int32(i*10) {
			t.Errorf("got[%d] = %d, want %d", i, v, i*10)
		}
	}
}

func TestOffsetBufAllocRegionExhaustion(t *testing.T) {
	buf := NewOffsetBuf(make([]byte, 8))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on exhausted arena")
		}
	}()
	allocSlice[int64](buf, 2) // 16 bytes needed, only 8 available
}

func TestOffsetIsNull(t *testing.T) {
	var o Offset[int]
	if !o.IsNull() {
		t.Error("zero-value offset should be null")
	}
	o = Offset[int](4)
	if o.IsNull() {
		t.Error("non-zero offset should not be null")
	}
}

func TestOffsetSliceEmpty(t *testing.T) {
	buf := NewOffsetBuf(make([]byte, 64))
	s := allocSlice[byte](buf, 0)
	if got := s.slice(buf.Base()); got != nil {
		t.Errorf("empty slice should resolve to nil, got %v", got)
	}
}
