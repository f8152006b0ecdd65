package hotkeys

import (
	"slices"
	"testing"
)

func TestIgnoreMasks_AllCombinations(t *testing.T) {
	got := ignoreMasks(2, 16, 128)
	want := []uint16{0, 2, 16, 18, 128, 130, 144, 146}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestIgnoreMasks_SkipsZeroAndDuplicates(t *testing.T) {
	got := ignoreMasks(2, 0, 2)
	want := []uint16{0, 2}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRegisterAll_SkipsUnboundKeys(t *testing.T) {
	h := &Handler{}
	err := h.RegisterAll([]Binding{{Name: "reset", Key: "", Action: func() {}}})
	if err != nil {
		t.Fatalf("expected empty keys to be skipped, got %v", err)
	}
}
