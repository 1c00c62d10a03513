package asset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/klauspost/compress/gzip"
)

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDir_PlainAndGzip(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "plain.wasm"), []byte("plain"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "packed.wasm.gz"), gzipBytes(t, []byte("packed")), 0o644); err != nil {
		t.Fatal(err)
	}

	r := Dir(dir)

	data, err := r.Resolve("plain.wasm")
	if err != nil || string(data) != "plain" {
		t.Fatalf("plain: %q, %v", data, err)
	}

	// The .gz sibling is found and decompressed transparently.
	data, err = r.Resolve("packed.wasm")
	if err != nil || string(data) != "packed" {
		t.Fatalf("packed: %q, %v", data, err)
	}

	if _, err = r.Resolve("missing.wasm"); err == nil {
		t.Fatal("expected error for missing asset")
	}
}

func TestDir_GzipMagicInNamedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mod.wasm"), gzipBytes(t, []byte("inner")), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := Dir(dir).Resolve("mod.wasm")
	if err != nil || string(data) != "inner" {
		t.Fatalf("got %q, %v", data, err)
	}
}

func TestEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mod.wasm"), []byte("env"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := Env("SQUOOSH_TEST_DIR")
	if _, err := r.Resolve("mod.wasm"); err == nil {
		t.Fatal("expected failure while variable unset")
	}

	t.Setenv("SQUOOSH_TEST_DIR", dir)
	data, err := r.Resolve("mod.wasm")
	if err != nil || string(data) != "env" {
		t.Fatalf("got %q, %v", data, err)
	}
}

func TestFS(t *testing.T) {
	fsys := fstest.MapFS{
		"assets/mod.wasm": &fstest.MapFile{Data: []byte("embedded")},
	}

	data, err := FS(fsys, "assets").Resolve("mod.wasm")
	if err != nil || string(data) != "embedded" {
		t.Fatalf("got %q, %v", data, err)
	}
}

func TestLocate_FirstStrategyWins(t *testing.T) {
	first := Fixed("first", map[string][]byte{"mod.wasm": []byte("from-first")})
	second := Fixed("second", map[string][]byte{"mod.wasm": []byte("from-second")})

	data, source, err := Locate("mod.wasm", []Resolver{first, second})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "from-first" || source != "first" {
		t.Errorf("got %q from %q", data, source)
	}
}

func TestLocate_FailureListsAttempts(t *testing.T) {
	resolvers := []Resolver{
		Fixed("a", nil),
		Fixed("b", nil),
	}

	_, _, err := Locate("mod.wasm", resolvers)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"a/mod.wasm", "b/mod.wasm"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing attempt %q", msg, want)
		}
	}
}

func TestLocateFirst_PreferenceOrder(t *testing.T) {
	// The threaded variant is preferred when present, the baseline otherwise.
	both := Fixed("both", map[string][]byte{
		"mod-mt.wasm": []byte("mt"),
		"mod.wasm":    []byte("base"),
	})
	baseOnly := Fixed("base", map[string][]byte{"mod.wasm": []byte("base")})

	data, name, err := LocateFirst([]string{"mod-mt.wasm", "mod.wasm"}, []Resolver{both})
	if err != nil || string(data) != "mt" || name != "mod-mt.wasm" {
		t.Fatalf("got %q as %q, %v", data, name, err)
	}

	data, name, err = LocateFirst([]string{"mod-mt.wasm", "mod.wasm"}, []Resolver{baseOnly})
	if err != nil || string(data) != "base" || name != "mod.wasm" {
		t.Fatalf("got %q as %q, %v", data, name, err)
	}
}
