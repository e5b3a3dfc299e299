package abac

import "testing"

func TestResourceTypeUniverseRejectsEmptyAndDuplicates(t *testing.T) {
	if _, err := NewResourceTypeUniverse(); err == nil {
		t.Fatalf("expected error for empty universe")
	}
	if _, err := NewResourceTypeUniverse("document", "document"); err == nil {
		t.Fatalf("expected error for duplicate member")
	}
	if _, err := NewResourceTypeUniverse("document", ""); err == nil {
		t.Fatalf("expected error for empty member")
	}
}

func TestResourceTypeUniverseContains(t *testing.T) {
	u, err := NewResourceTypeUniverse("document", "project")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.Contains("document") {
		t.Fatalf("expected universe to contain document")
	}
	if u.Contains("invoice") {
		t.Fatalf("expected universe to not contain invoice")
	}
}

func TestDynamicKeyValid(t *testing.T) {
	cases := map[DynamicKey]bool{
		"$owner":   true,
		"$a":       true,
		"$":        false,
		"owner":    false,
		"":         false,
	}
	for k, want := range cases {
		if got := k.valid(); got != want {
			t.Fatalf("DynamicKey(%q).valid() = %v, want %v", k, got, want)
		}
	}
	if got := DynamicKey("$owner").Resolved(); got != "owner" {
		t.Fatalf("Resolved() = %q, want owner", got)
	}
}

func TestAttributeValueAccessors(t *testing.T) {
	sv := StringValue("alice")
	if s, ok := sv.AsString(); !ok || s != "alice" {
		t.Fatalf("AsString() = (%q, %v), want (alice, true)", s, ok)
	}
	if _, ok := sv.AsNumber(); ok {
		t.Fatalf("AsNumber() on a string value should fail")
	}

	arr := StringArrayValue([]string{"a", "b"})
	if !arr.IsArray() {
		t.Fatalf("expected IsArray() true for StringArrayValue")
	}
	got, ok := arr.AsStringArray()
	if !ok || len(got) != 2 {
		t.Fatalf("AsStringArray() = (%v, %v)", got, ok)
	}
}

func TestAttributeValueArrayConstructorsCopy(t *testing.T) {
	src := []string{"a", "b"}
	v := StringArrayValue(src)
	src[0] = "mutated"
	got, _ := v.AsStringArray()
	if got[0] != "a" {
		t.Fatalf("StringArrayValue must defensively copy its input, got %v", got)
	}
}
