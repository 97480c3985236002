package mem

import "testing"

func TestAllocFreeRoundtrip(t *testing.T) {
	fa := NewFrameAllocator(4, 0x1000)
	if fa.Free() != 4 {
		t.Fatalf("Free() = %d, want 4", fa.Free())
	}
	p, ok := fa.AllocFrame()
	if !ok {
		t.Fatal("AllocFrame failed with frames available")
	}
	if fa.Free() != 3 {
		t.Fatalf("Free() after alloc = %d, want 3", fa.Free())
	}
	if fa.RefCount(p) != 1 {
		t.Fatalf("RefCount = %d, want 1", fa.RefCount(p))
	}
	fg := fa.Frame(p)
	for _, b := range fg {
		if b != 0 {
			t.Fatal("AllocFrame did not zero the frame")
		}
	}
	fa.FreeFrame(p)
	if fa.Free() != 4 {
		t.Fatalf("Free() after free = %d, want 4", fa.Free())
	}
}

func TestExhaustion(t *testing.T) {
	fa := NewFrameAllocator(1, 0)
	_, ok := fa.AllocFrame()
	if !ok {
		t.Fatal("expected first alloc to succeed")
	}
	_, ok = fa.AllocFrame()
	if ok {
		t.Fatal("expected second alloc to fail: allocator exhausted")
	}
}

func TestRefCounting(t *testing.T) {
	fa := NewFrameAllocator(2, 0)
	p, _ := fa.AllocFrame()
	fa.RefUp(p)
	if got := fa.RefCount(p); got != 2 {
		t.Fatalf("RefCount = %d, want 2", got)
	}
	fa.FreeFrame(p)
	if got := fa.RefCount(p); got != 1 {
		t.Fatalf("RefCount after one free = %d, want 1", got)
	}
	if fa.Free() != 1 {
		t.Fatalf("frame should still be in use, Free() = %d", fa.Free())
	}
	fa.FreeFrame(p)
	if fa.Free() != 2 {
		t.Fatalf("frame should now be free, Free() = %d", fa.Free())
	}
}

func TestFreeFrameUnderflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double free")
		}
	}()
	fa := NewFrameAllocator(1, 0)
	p, _ := fa.AllocFrame()
	fa.FreeFrame(p)
	fa.FreeFrame(p)
}
