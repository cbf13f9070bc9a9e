package alphabet

import (
	"testing"

	"github.com/hugodaniel/glslmin/internal/test"
)

func TestScanAndCountSorted(t *testing.T) {
	f := New()
	f.Scan("aaabbc", 1)
	sorted := f.CountSorted()
	test.AssertEqual(t, string(sorted[:3]), "abc")
}

func TestInventNameExhaustsSingleLettersFirst(t *testing.T) {
	f := New()
	f.Scan("zzzzz", 1)
	taken := map[string]bool{"z": true}
	name := InventName(f, func(c string) bool { return taken[c] })
	test.AssertEqual(t, len(name), 1)
	if name == "z" {
		t.Fatal("z is taken and must not be returned")
	}
}

func TestInventNameFallsBackToDigits(t *testing.T) {
	f := New()
	taken := map[string]bool{}
	for _, c := range SingleCharacterAlphabet() {
		taken[string(c)] = true
	}
	name := InventName(f, func(c string) bool { return taken[c] })
	if len(name) < 2 {
		t.Fatalf("InventName = %q, want a multi-character invented name once single letters are exhausted", name)
	}
}

func TestSingleCharacterAlphabetOrder(t *testing.T) {
	a := SingleCharacterAlphabet()
	test.AssertEqual(t, len(a), 52)
	test.AssertEqual(t, a[0], byte('a'))
	test.AssertEqual(t, a[25], byte('z'))
	test.AssertEqual(t, a[26], byte('A'))
	test.AssertEqual(t, a[51], byte('Z'))
}
