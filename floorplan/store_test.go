package floorplan

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_RoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if err := fs.Set("learning/floor-1", []byte(`[{"timestamp":1}]`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	data, ok, err := fs.Get("learning/floor-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(data, []byte(`[{"timestamp":1}]`)) {
		t.Errorf("data = %s", data)
	}
}

func TestFileStore_MissingKey(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, ok, err := fs.Get("learning/absent")
	if err != nil {
		t.Errorf("missing key returned error: %v", err)
	}
	if ok {
		t.Error("missing key reported as present")
	}
}

func TestFileStore_Delete(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Set("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := fs.Get("k"); ok {
		t.Error("key present after delete")
	}
	// Deleting a missing key is not an error.
	if err := fs.Delete("k"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestFileStore_KeyTraversalStripped(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Set("../escape", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.json")); err == nil {
		t.Error("key escaped the store directory")
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	ms := NewMemoryStore()
	buf := []byte("original")
	if err := ms.Set("k", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'X'

	data, ok, err := ms.Get("k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(data) != "original" {
		t.Errorf("stored data aliased the caller's buffer: %s", data)
	}
}
