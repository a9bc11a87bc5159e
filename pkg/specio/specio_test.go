package specio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(transform.NewTranslation(12, -7), &buf, Options{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Errorf("default output should be indented:\n%s", buf.String())
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	leaf, ok := got.(transform.Leaf)
	if !ok {
		t.Fatalf("Read() = %T, want leaf", got)
	}
	if ds := leaf.DataString(); ds != "12.0000000000 -7.0000000000" {
		t.Errorf("DataString() = %q", ds)
	}
}

func TestWriteCompact(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(transform.Identity(), &buf, Options{Compact: true}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()
	if strings.Count(out, "\n") != 1 || !strings.HasSuffix(out, "\n") {
		t.Errorf("compact output should be one line:\n%q", out)
	}
	if strings.Contains(out, "  ") {
		t.Errorf("compact output should not be indented:\n%q", out)
	}
}

func TestChainRoundTrip(t *testing.T) {
	chain := []transform.Transform{
		transform.NewRigid(0.25, 100, -40),
		transform.NewList(transform.Identity()),
	}

	var buf bytes.Buffer
	if err := WriteChain(chain, &buf, Options{}); err != nil {
		t.Fatalf("WriteChain() error = %v", err)
	}
	got, err := ReadChain(&buf)
	if err != nil {
		t.Fatalf("ReadChain() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if _, ok := got[0].(*transform.Affine); !ok {
		t.Errorf("chain[0] = %T, want *transform.Affine", got[0])
	}
	if _, ok := got[1].(*transform.List); !ok {
		t.Errorf("chain[1] = %T, want *transform.List", got[1])
	}
}

func TestWriteChainNil(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChain(nil, &buf, Options{Compact: true}); err != nil {
		t.Fatalf("WriteChain() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("nil chain encodes to %q, want []", got)
	}
}

func TestReadChainSingleObject(t *testing.T) {
	raw := `{"className": "mpicbg.trakem2.transform.TranslationModel2D", "dataString": "1 2"}`
	got, err := ReadChain(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadChain() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestReadChainErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"Empty", ""},
		{"TruncatedArray", `[{"type": "leaf"`},
		{"BadMember", `[{"type": "warp"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadChain(strings.NewReader(tt.raw))
			if errors.GetCode(err) != errors.ErrCodeFormat {
				t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeFormat)
			}
		})
	}
}

func TestReadChainBadMemberNamesIndex(t *testing.T) {
	raw := `[{"type": "leaf", "className": "x", "dataString": "1 2"}, {"type": "warp"}]`
	_, err := ReadChain(strings.NewReader(raw))
	if err == nil || !strings.Contains(err.Error(), "spec 1") {
		t.Errorf("error = %v, want failing index named", err)
	}
}

func TestExportImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.json")
	if err := Export(transform.NewSimilarity(2, 0.5, 10, 20), path, Options{}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	got, err := Import(path)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	a, ok := got.(*transform.Affine)
	if !ok {
		t.Fatalf("Import() = %T, want *transform.Affine", got)
	}
	if a.Kind != transform.KindSimilarity {
		t.Errorf("Kind = %v, want %v", a.Kind, transform.KindSimilarity)
	}
}

func TestExportChainImportChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	chain := []transform.Transform{transform.NewTranslation(1, 2), transform.NewTranslation(3, 4)}
	if err := ExportChain(chain, path, Options{Compact: true}); err != nil {
		t.Fatalf("ExportChain() error = %v", err)
	}

	got, err := ImportChain(path)
	if err != nil {
		t.Fatalf("ImportChain() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestImportMissingFile(t *testing.T) {
	_, err := Import(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil || !strings.Contains(err.Error(), "missing.json") {
		t.Errorf("error = %v, want path in message", err)
	}
}

func TestWriteTemp(t *testing.T) {
	path, err := WriteTemp(transform.NewTranslation(5, 6))
	if err != nil {
		t.Fatalf("WriteTemp() error = %v", err)
	}
	defer os.Remove(path)

	base := filepath.Base(path)
	if !strings.HasPrefix(base, "tilewarp-") || !strings.HasSuffix(base, ".json") {
		t.Errorf("temp file name = %q, want tilewarp-*.json", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Count(string(data), "\n") != 1 {
		t.Errorf("temp spec should be wire form:\n%q", data)
	}

	if _, err := Import(path); err != nil {
		t.Errorf("Import(temp) error = %v", err)
	}
}
