package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetFileExtension(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":        "jpg",
		"dir/peel.webp":    "webp",
		"archive.tar.gz":   "gz",
		"noext":            "",
		"/tmp/.hidden.png": "png",
	}
	for in, want := range cases {
		if got := GetFileExtension(in); got != want {
			t.Errorf("GetFileExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsImageFile(t *testing.T) {
	for _, f := range []string{"a.jpg", "b.JPEG", "c.png", "d.gif", "e.webp"} {
		if !IsImageFile(f) {
			t.Errorf("IsImageFile(%q) = false", f)
		}
	}
	for _, f := range []string{"a.txt", "b", "c.pdf", "d.tiff"} {
		if IsImageFile(f) {
			t.Errorf("IsImageFile(%q) = true", f)
		}
	}
}

func TestIsURL(t *testing.T) {
	if !IsURL("https://example.com/a.jpg") || !IsURL("http://x") {
		t.Error("expected http(s) sources to be URLs")
	}
	if IsURL("ftp://example.com/a.jpg") || IsURL("./a.jpg") {
		t.Error("expected non-http sources not to be URLs")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.png")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("FileExists(file) = false")
	}
	if FileExists(dir) {
		t.Error("FileExists(dir) = true")
	}
	if FileExists(filepath.Join(dir, "missing")) {
		t.Error("FileExists(missing) = true")
	}
}
