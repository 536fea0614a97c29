package fileid

import (
	"strings"
	"testing"
)

func TestFileDocID_Stable(t *testing.T) {
	a := FileDocID("/watch/notes.txt")
	b := FileDocID("/watch/notes.txt")
	if a != b {
		t.Errorf("same path produced different ids: %q vs %q", a, b)
	}
	if a == FileDocID("/watch/other.txt") {
		t.Error("different paths produced the same id")
	}
}

func TestFileDocID_Normalized(t *testing.T) {
	if FileDocID("/watch/./notes.txt") != FileDocID("/watch/notes.txt") {
		t.Error("equivalent paths produced different ids")
	}
}

func TestIsFileID(t *testing.T) {
	id := FileDocID("/watch/notes.txt")
	if !strings.HasPrefix(id, "file:") {
		t.Errorf("id = %q, want file: prefix", id)
	}
	if !IsFileID(id) {
		t.Errorf("IsFileID(%q) = false", id)
	}
	if IsFileID("d2719f0a-uuid-style") {
		t.Error("uuid-style id misclassified as file id")
	}
	if IsFileID("file:") {
		t.Error("bare prefix is not a valid file id")
	}
}
