package recipe

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestError_Is(t *testing.T) {
	missing := MissingSection("豆腐", KindMaterials)
	if !errors.Is(missing, ErrMissingSection) {
		t.Error("expected missing section to match ErrMissingSection")
	}
	if !errors.Is(missing, ErrMalformedDocument) {
		t.Error("expected missing section to match ErrMalformedDocument")
	}
	if errors.Is(Malformed("豆腐", "bad"), ErrMissingSection) {
		t.Error("expected plain malformed error not to match ErrMissingSection")
	}
	if errors.Is(missing, ErrIOFailure) {
		t.Error("expected missing section not to match ErrIOFailure")
	}

	wrapped := fmt.Errorf("convert: %w", IOFailure("豆腐", "write record", fs.ErrPermission))
	if !errors.Is(wrapped, ErrIOFailure) {
		t.Error("expected wrapped io failure to match")
	}
	if !errors.Is(wrapped, fs.ErrPermission) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if CodeOf(wrapped) != ErrCodeIOFailure {
		t.Errorf("expected code %s, got %s", ErrCodeIOFailure, CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("expected empty code for unclassified error")
	}
}

func TestError_Message(t *testing.T) {
	err := IOFailure("豆腐", "write record", fs.ErrPermission)
	want := "[IO_FAILURE] 豆腐: write record: permission denied"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestWithDocument(t *testing.T) {
	base := Malformed("", "line %d: stray item", 3)
	err := WithDocument(base, "豆腐")
	var e *Error
	if !errors.As(err, &e) || e.Document != "豆腐" {
		t.Fatalf("expected document set, got %v", err)
	}
	if base.Document != "" {
		t.Error("expected original error untouched")
	}
	if again := WithDocument(err, "other"); again.(*Error).Document != "豆腐" {
		t.Error("expected existing document kept")
	}
	plain := errors.New("plain")
	if WithDocument(plain, "豆腐") != plain {
		t.Error("expected unclassified error returned as is")
	}
}

func TestNameFromPath(t *testing.T) {
	tests := map[string]string{
		"dishes/aquatic/鳊鱼炖豆腐.md": "鳊鱼炖豆腐",
		"红烧肉.markdown":             "红烧肉",
		"a.b.md":                   "a.b",
		"noext":                    "noext",
	}
	for in, want := range tests {
		if got := NameFromPath(in); got != want {
			t.Errorf("NameFromPath(%q): expected %q, got %q", in, want, got)
		}
	}
}
