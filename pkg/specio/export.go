package specio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/tilewarp/pkg/transform"
)

// Options control spec file encoding.
type Options struct {
	// Compact emits single-line wire JSON instead of indented output.
	Compact bool
}

// Write encodes a single transform spec as JSON and writes it to w.
// The output is indented unless opts.Compact is set, and always ends
// with a newline. Files written here can be re-imported with [Read].
func Write(t transform.Transform, w io.Writer, opts Options) error {
	return encode(t, w, opts)
}

// WriteChain encodes a chain of transform specs as a JSON array.
// [ReadChain] restores the same chain.
func WriteChain(chain []transform.Transform, w io.Writer, opts Options) error {
	if chain == nil {
		chain = []transform.Transform{}
	}
	return encode(chain, w, opts)
}

func encode(v any, w io.Writer, opts Options) error {
	enc := json.NewEncoder(w)
	if !opts.Compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode spec: %w", err)
	}
	return nil
}

// Export writes a transform spec to a JSON file at path.
// This is a convenience wrapper around [Write] for file-based output.
func Export(t transform.Transform, path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(t, f, opts)
}

// ExportChain writes a chain of specs to a JSON file at path.
func ExportChain(chain []transform.Transform, path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteChain(chain, f, opts)
}

// WriteTemp dumps a spec to a fresh temporary file named tilewarp-*.json
// and returns its path. The spec is written in wire form. The caller is
// responsible for removing the file.
func WriteTemp(t transform.Transform) (string, error) {
	f, err := os.CreateTemp("", "tilewarp-*.json")
	if err != nil {
		return "", fmt.Errorf("create temp spec: %w", err)
	}
	if err := Write(t, f, Options{Compact: true}); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}
