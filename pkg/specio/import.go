package specio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

// Read decodes a single transform spec from r.
//
// The input must be one JSON spec object in the interchange format. Decode
// errors carry the format error codes from the transform codec. Read does
// not close r.
func Read(r io.Reader) (transform.Transform, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}
	return transform.Decode(data)
}

// ReadChain decodes a chain of transform specs from r.
//
// The input is either a JSON array of specs or a single spec object; a
// single object comes back as a one-element chain. Member decode errors
// name the failing array index.
func ReadChain(r io.Reader) ([]transform.Transform, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		t, err := transform.Decode(trimmed)
		if err != nil {
			return nil, err
		}
		return []transform.Transform{t}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "decoding spec array")
	}
	chain := make([]transform.Transform, len(raws))
	for i, raw := range raws {
		t, err := transform.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("spec %d: %w", i, err)
		}
		chain[i] = t
	}
	return chain, nil
}

// Import reads a single transform spec from the JSON file at path.
//
// Import opens the file, decodes it using [Read], and closes the file.
// Errors wrap the underlying cause with the file path for context.
func Import(path string) (transform.Transform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// ImportChain reads a chain of specs from the JSON file at path using
// [ReadChain].
func ImportChain(path string) ([]transform.Transform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadChain(f)
}
