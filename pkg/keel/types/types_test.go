package types

import (
	"errors"
	"strings"
	"testing"
)

func TestDigestValid(t *testing.T) {
	tests := []struct {
		d    Digest
		want bool
	}{
		{"aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", true},
		{"0000000000000000000000000000000000000000", true},
		{"", false},
		{"aaf4c61", false},
		{"AAF4C61DDCC5E8A2DABEDE0F3B482CD9AEA9434D", false}, // uppercase
		{"aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434dx", false},
		{"gaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", false},
	}
	for _, tt := range tests {
		if got := tt.d.Valid(); got != tt.want {
			t.Errorf("Digest(%q).Valid() = %v, want %v", tt.d, got, tt.want)
		}
	}
}

func TestFileSetClone(t *testing.T) {
	fs := FileSet{"a.txt": "1111111111111111111111111111111111111111"}
	cp := fs.Clone()
	cp["b.txt"] = "2222222222222222222222222222222222222222"
	if _, ok := fs["b.txt"]; ok {
		t.Fatal("Clone shares storage with original")
	}
	if cp["a.txt"] != fs["a.txt"] {
		t.Fatal("Clone lost an entry")
	}
}

func TestConflictError(t *testing.T) {
	err := error(&ConflictError{Paths: []string{"a.txt", "b/c.txt"}})

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatal("errors.As failed to match ConflictError")
	}
	if len(conflict.Paths) != 2 {
		t.Fatalf("Paths = %v", conflict.Paths)
	}
	if !strings.Contains(err.Error(), "a.txt") {
		t.Fatalf("Error() = %q, want conflicted path mentioned", err.Error())
	}
}
