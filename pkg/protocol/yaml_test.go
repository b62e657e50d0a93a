package protocol

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wormillum/internal/models"
)

// TestProtocolRoundTrip verifies save then load reproduces the protocol
func TestProtocolRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yml")

	p := testProtocol(t)
	if err := Save(p, path); err != nil {
		t.Fatalf("Failed to save protocol: %v", err)
	}

	loaded, err := LoadWithGridSize(path, models.GridSize{Width: 3, Height: 3})
	if err != nil {
		t.Fatalf("Failed to load protocol: %v", err)
	}
	if loaded.Filename != path {
		t.Errorf("expected filename %q, got %q", path, loaded.Filename)
	}
	if diff := cmp.Diff(p.Steps, loaded.Steps); diff != "" {
		t.Errorf("steps mismatch (-saved +loaded):\n%s", diff)
	}
	if loaded.GridSize != testGrid {
		t.Errorf("expected grid %s, got %s", testGrid, loaded.GridSize)
	}
	if loaded.Description != p.Description {
		t.Errorf("expected description %q, got %q", p.Description, loaded.Description)
	}
}

// TestEncodeHeader verifies the comment header and layout
func TestEncodeHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, testProtocol(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Illumination Protocol:\n",
		"# Software Version Information: " + Version + "\n",
		"Protocol:",
		"GridSize:",
		"{x: 0, y: 0}",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("encoded protocol missing %q:\n%s", want, out)
		}
	}
}

// TestDecodeGridFallback verifies a missing or invalid grid uses the default
func TestDecodeGridFallback(t *testing.T) {
	def := models.GridSize{Width: 7, Height: 30}

	testCases := []struct {
		name string
		doc  string
	}{
		{"missing", "Protocol:\n  Steps:\n    - - [{x: 0, y: 0}, {x: 1, y: 1}]\n"},
		{"zero", "Protocol:\n  GridSize: {height: 0, width: 5}\n  Steps:\n    - - [{x: 0, y: 0}]\n"},
		{"negative", "Protocol:\n  GridSize: {height: 10, width: -1}\n  Steps: []\n"},
	}
	for _, tc := range testCases {
		p, err := Decode(strings.NewReader(tc.doc), def)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if p.GridSize != def {
			t.Errorf("%s: expected fallback grid %s, got %s", tc.name, def, p.GridSize)
		}
		for _, m := range p.Steps {
			for _, poly := range m {
				if poly.Grid != def {
					t.Errorf("%s: polygon grid %s, expected %s", tc.name, poly.Grid, def)
				}
			}
		}
	}
}

// TestDecodeMalformed verifies structural errors are reported
func TestDecodeMalformed(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{"no protocol", "Other: 1\n"},
		{"no steps", "Protocol:\n  Description: nothing\n"},
		{"empty polygon", "Protocol:\n  Steps:\n    - - []\n"},
		{"missing y", "Protocol:\n  Steps:\n    - - [{x: 1}]\n"},
		{"not a list", "Protocol:\n  Steps:\n    - - 12\n"},
		{"odd legacy data", "Protocol:\n  Steps:\n    - - {dt: i, data: [1, 2, 3]}\n"},
		{"not yaml", "Protocol: [\n"},
	}
	for _, tc := range testCases {
		_, err := Decode(strings.NewReader(tc.doc), testGrid)
		if !errors.Is(err, models.ErrMalformedFile) {
			t.Errorf("%s: expected ErrMalformedFile, got %v", tc.name, err)
		}
	}
}

// TestDecodeLegacy verifies files written by the OpenCV tooling still load
func TestDecodeLegacy(t *testing.T) {
	doc := `%YAML:1.0
Protocol:
   Filename: "old.yml"
   Description: "legacy"
   GridSize:
      height: 20
      width: 11
   Steps:
      -
         - dt: i
           data: [ 0, 0, 3, 0, 3, 5, 0, 5 ]
`
	p, err := Decode(strings.NewReader(doc), DefaultGridSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.NumSteps() != 1 || len(p.Steps[0]) != 1 {
		t.Fatalf("expected one step with one polygon, got %+v", p.Summary())
	}
	expected := square(testGrid, 0, 0, 3, 5)
	if diff := cmp.Diff(expected, p.Steps[0][0]); diff != "" {
		t.Errorf("legacy polygon mismatch (-expected +got):\n%s", diff)
	}
}

// TestLoadErrors verifies file-level failures
func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yml"))
	if !errors.Is(err, models.ErrFileOpen) {
		t.Errorf("missing file: expected ErrFileOpen, got %v", err)
	}
	var fe *models.FileError
	if !errors.As(err, &fe) || fe.Op != "load protocol" {
		t.Errorf("expected a load protocol FileError, got %v", err)
	}

	bad := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(bad, []byte("Protocol:\n  Steps: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !errors.Is(err, models.ErrMalformedFile) {
		t.Errorf("bad file: expected ErrMalformedFile, got %v", err)
	}

	if err := Save(New(testGrid), ""); !errors.Is(err, models.ErrFileOpen) {
		t.Errorf("save without path: expected ErrFileOpen, got %v", err)
	}
	if err := Save(New(testGrid), filepath.Join(dir, "no", "such", "dir.yml")); !errors.Is(err, models.ErrFileOpen) {
		t.Errorf("save into missing directory: expected ErrFileOpen, got %v", err)
	}
}
