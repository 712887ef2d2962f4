package platform

import (
	"testing"
	"unsafe"
)

func TestKeyRecordLayout(t *testing.T) {
	var rec KeyRecord
	ptr := unsafe.Sizeof(uintptr(0))

	if got, want := unsafe.Sizeof(rec), 16+ptr; got != want {
		t.Errorf("KeyRecord size = %d, want %d", got, want)
	}
	if off := unsafe.Offsetof(rec.DwExtraInfo); off != 16 {
		t.Errorf("DwExtraInfo offset = %d, want 16", off)
	}
}

func TestKeyRecordFlags(t *testing.T) {
	rec := KeyRecord{Flags: LLKHFInjected | LLKHFExtended}
	if !rec.Injected() {
		t.Error("expected injected record")
	}
	rec.Flags = LLKHFExtended
	if rec.Injected() {
		t.Error("expected physical record")
	}
}

func TestSentinelFitsExtraInfo(t *testing.T) {
	rec := KeyRecord{DwExtraInfo: Sentinel}
	if uint32(rec.DwExtraInfo) != 0xFFFFFFF0 {
		t.Errorf("sentinel truncated: %#x", rec.DwExtraInfo)
	}
}
