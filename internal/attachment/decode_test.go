package attachment

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Unix(1700000000, 0)

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	return &Decoder{Dir: t.TempDir(), Now: func() time.Time { return fixedNow }}
}

func dirEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	return len(entries)
}

func TestDecodeRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a},
		[]byte("GIF89a fake gif data"),
		bytes.Repeat([]byte{0xff, 0xfb, 0x3e}, 300),
		{0x00},
	}

	for _, subtype := range []string{"png", "jpg", "jpeg", "gif"} {
		for i, want := range payloads {
			d := newTestDecoder(t)
			url := "data:image/" + subtype + ";base64," + base64.StdEncoding.EncodeToString(want)

			att, err := d.Decode(url)
			if err != nil {
				t.Fatalf("%s payload %d: Decode: %v", subtype, i, err)
			}

			got, err := os.ReadFile(att.Path)
			if err != nil {
				t.Fatalf("read back: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("%s payload %d: read back %x, want %x", subtype, i, got, want)
			}
			if att.Size != len(want) {
				t.Errorf("size = %d, want %d", att.Size, len(want))
			}
			if att.Subtype != subtype {
				t.Errorf("subtype = %q, want %q", att.Subtype, subtype)
			}
		}
	}
}

func TestDecodeFileName(t *testing.T) {
	d := newTestDecoder(t)
	att, err := d.Decode("data:image/PNG;base64," + base64.StdEncoding.EncodeToString([]byte("img")))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := filepath.Join(d.Dir, "1700000000.png")
	if att.Path != want {
		t.Errorf("path = %q, want %q", att.Path, want)
	}
}

func TestDecodeSpacesBecomePlus(t *testing.T) {
	want := []byte{0xfb, 0xef, 0xbe, 0xfb}
	encoded := base64.StdEncoding.EncodeToString(want)
	if !strings.Contains(encoded, "+") {
		t.Fatalf("fixture must contain '+', got %q", encoded)
	}

	d := newTestDecoder(t)
	att, err := d.Decode("data:image/png;base64," + strings.ReplaceAll(encoded, "+", " "))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, _ := os.ReadFile(att.Path)
	if !bytes.Equal(got, want) {
		t.Errorf("read back %x, want %x", got, want)
	}
}

func TestDecodeUnpadded(t *testing.T) {
	want := []byte("ab")
	d := newTestDecoder(t)
	att, err := d.Decode("data:image/gif;base64," + base64.RawStdEncoding.EncodeToString(want))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, _ := os.ReadFile(att.Path)
	if !bytes.Equal(got, want) {
		t.Errorf("read back %q, want %q", got, want)
	}
}

func TestDecodeRejects(t *testing.T) {
	valid := base64.StdEncoding.EncodeToString([]byte("image bytes"))

	cases := []struct {
		name string
		url  string
		want error
	}{
		{"svg", "data:image/svg+xml;base64," + valid, ErrNotDataURL},
		{"webp", "data:image/webp;base64," + valid, ErrUnsupportedType},
		{"bmp", "data:image/bmp;base64," + valid, ErrUnsupportedType},
		{"tiff uppercase", "data:image/TIFF;base64," + valid, ErrUnsupportedType},
		{"not an image", "data:text/plain;base64," + valid, ErrNotDataURL},
		{"no base64 marker", "data:image/png," + valid, ErrNotDataURL},
		{"leading junk", " data:image/png;base64," + valid, ErrNotDataURL},
		{"plain text", "hello", ErrNotDataURL},
		{"empty", "", ErrNotDataURL},
		{"bad payload", "data:image/png;base64,!!!not-base64!!!", ErrUndecodable},
		{"empty payload", "data:image/png;base64,", ErrEmptyPayload},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newTestDecoder(t)
			att, err := d.Decode(tc.url)
			if att != nil {
				t.Fatalf("expected no attachment, got %+v", att)
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
			if n := dirEntries(t, d.Dir); n != 0 {
				t.Errorf("expected no files written, found %d", n)
			}
		})
	}
}

func TestDecodeWithoutUploadDir(t *testing.T) {
	d := &Decoder{}
	_, err := d.Decode("data:image/png;base64,aW1n")
	if !errors.Is(err, ErrNoUploadDir) {
		t.Errorf("err = %v, want %v", err, ErrNoUploadDir)
	}
}

func TestDecodeSameSecondOverwrites(t *testing.T) {
	d := newTestDecoder(t)
	first, err := d.Decode("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("first")))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	second, err := d.Decode("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("second")))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if first.Path != second.Path {
		t.Fatalf("expected same path, got %q and %q", first.Path, second.Path)
	}
	got, _ := os.ReadFile(second.Path)
	if string(got) != "second" {
		t.Errorf("file holds %q, want %q", got, "second")
	}
}

func TestRemove(t *testing.T) {
	d := newTestDecoder(t)
	att, err := d.Decode("data:image/jpg;base64," + base64.StdEncoding.EncodeToString([]byte("x")))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if err := Remove(att.Path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(att.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present: %v", err)
	}
	if err := Remove(att.Path); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}

func TestIsScreenshotName(t *testing.T) {
	cases := map[string]bool{
		"1700000000.png":  true,
		"1700000000.jpeg": true,
		"1700000000.gif":  true,
		"1700000000.jpg":  true,
		"1700000000.svg":  false,
		"invoice.pdf":     false,
		".htaccess":       false,
		"report.png":      false,
		"1700000000.png~": false,
	}
	for name, want := range cases {
		if got := IsScreenshotName(name); got != want {
			t.Errorf("IsScreenshotName(%q) = %v, want %v", name, got, want)
		}
	}
}
