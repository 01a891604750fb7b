package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	verrors "github.com/matzehuels/votemap/pkg/errors"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	if err := WriteFile(path, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := WriteFile(path, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("WriteFile overwrite error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"a":2}` {
		t.Errorf("content = %s", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the target", len(entries))
	}
}

func TestEncode(t *testing.T) {
	compact, err := Encode(map[string]string{"zone": "Centro & Sur"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(compact)); got != `{"zone":"Centro & Sur"}` {
		t.Errorf("Encode = %s", got)
	}
	indented, err := Encode(map[string]int{"a": 1}, true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(indented), "\n  \"a\": 1") {
		t.Errorf("indented output = %q", indented)
	}
}

func TestStage_Commit(t *testing.T) {
	root := t.TempDir()

	s, err := NewStage(root, "salto")
	if err != nil {
		t.Fatalf("NewStage error: %v", err)
	}
	if err := s.WriteJSON(FileODN, map[string]int{"x": 1}, true); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(MapFile("salto"), []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "salto")); !os.IsNotExist(err) {
		t.Fatal("target must not exist before Commit")
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit error: %v", err)
	}

	for _, name := range []string{FileODN, "salto_map.json"} {
		if _, err := os.Stat(filepath.Join(root, "salto", name)); err != nil {
			t.Errorf("%s missing after commit: %v", name, err)
		}
	}
	if got := strings.Join(s.Files(), ","); got != "odn.json,salto_map.json" {
		t.Errorf("Files() = %s", got)
	}
	assertNoHidden(t, root)
}

func TestStage_CommitReplacesPrevious(t *testing.T) {
	root := t.TempDir()
	old := filepath.Join(root, "rivera")
	if err := os.MkdirAll(old, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(old, "stale.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStage(root, "rivera")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(FileODN, []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(old, "stale.json")); !os.IsNotExist(err) {
		t.Error("stale artifact survived the swap")
	}
	if _, err := os.Stat(filepath.Join(old, FileODN)); err != nil {
		t.Error("new artifact missing")
	}
	assertNoHidden(t, root)
}

func TestStage_AbortKeepsPrevious(t *testing.T) {
	root := t.TempDir()
	prev := filepath.Join(root, "flores", FileODN)
	if err := WriteFile(prev, []byte(`"old"`)); err != nil {
		t.Fatal(err)
	}

	s, err := NewStage(root, "flores")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(FileODN, []byte(`"new"`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Abort(); err != nil {
		t.Fatal(err)
	}
	if err := s.Abort(); err != nil {
		t.Errorf("second Abort error: %v", err)
	}
	if err := s.Write(FileODD, nil); err == nil {
		t.Error("Write after Abort should fail")
	}

	data, _ := os.ReadFile(prev)
	if string(data) != `"old"` {
		t.Errorf("previous artifact = %s, want untouched", data)
	}
	assertNoHidden(t, root)
}

func TestStage_RejectsBadNames(t *testing.T) {
	root := t.TempDir()
	if _, err := NewStage(root, "../etc"); !verrors.Is(err, verrors.ErrCodeInvalidConfig) {
		t.Errorf("NewStage(../etc) error = %v", err)
	}
	s, err := NewStage(root, "paysandu")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Abort()
	for _, name := range []string{"", "a/b.json", ".hidden"} {
		if err := s.Write(name, nil); !verrors.Is(err, verrors.ErrCodeInvalidPath) {
			t.Errorf("Write(%q) error = %v, want INVALID_PATH", name, err)
		}
	}
}

func TestIndex_RoundTrip(t *testing.T) {
	root := t.TempDir()
	idx := NewIndex("run-1", time.Date(2024, 10, 27, 0, 0, 0, 0, time.UTC), []IndexEntry{
		{Code: "salto", Status: "ok", Artifacts: []string{FileODN}},
		{Code: "artigas", Status: "failed", Error: "boom"},
	})
	if idx.Departments[0].Code != "artigas" {
		t.Errorf("entries not sorted: %+v", idx.Departments)
	}
	if idx.Departments[0].Artifacts == nil {
		t.Error("nil artifacts should encode as an empty list")
	}
	if err := WriteIndex(root, idx); err != nil {
		t.Fatal(err)
	}

	got, err := ReadIndex(root)
	if err != nil {
		t.Fatal(err)
	}
	if got.RunID != "run-1" || len(got.Departments) != 2 {
		t.Errorf("ReadIndex = %+v", got)
	}
	if e, ok := got.Department("salto"); !ok || e.Status != "ok" {
		t.Errorf("Department(salto) = %+v, %v", e, ok)
	}
}

func TestReadJSON_Missing(t *testing.T) {
	var v any
	err := ReadJSON(filepath.Join(t.TempDir(), "none.json"), &v)
	if !verrors.Is(err, verrors.ErrCodeFileNotFound) {
		t.Errorf("error = %v, want FILE_NOT_FOUND", err)
	}
}

func assertNoHidden(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Errorf("leftover %s in output root", e.Name())
		}
	}
}
