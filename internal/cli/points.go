package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

// pairsFile is the JSON form of a correspondence file: two equal-length
// point lists in [x, y] order.
type pairsFile struct {
	Src [][2]float64 `json:"src"`
	Dst [][2]float64 `json:"dst"`
}

// readPairs loads point correspondences from a JSON or CSV file. CSV
// rows are "srcX,srcY,dstX,dstY"; a non-numeric first row is treated as
// a header and skipped.
func readPairs(path string) (src, dst []transform.Point, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "reading pairs file")
	}

	if looksLikeJSON(data) {
		var pf pairsFile
		if err := json.Unmarshal(data, &pf); err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeFormat, err, "decoding pairs file %s", path)
		}
		src, dst = toPoints(pf.Src), toPoints(pf.Dst)
	} else {
		rows, err := readCSV(data, 4)
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeFormat, err, "decoding pairs file %s", path)
		}
		src = make([]transform.Point, len(rows))
		dst = make([]transform.Point, len(rows))
		for i, r := range rows {
			src[i] = transform.Point{X: r[0], Y: r[1]}
			dst[i] = transform.Point{X: r[2], Y: r[3]}
		}
	}

	if len(src) != len(dst) {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput,
			"pairs file %s has %d source and %d target points", path, len(src), len(dst))
	}
	return src, dst, nil
}

// readPoints loads 2-D points from r: a JSON array of [x, y] pairs, or
// CSV rows "x,y".
func readPoints(r io.Reader) ([]transform.Point, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "reading points")
	}

	if looksLikeJSON(data) {
		var raw [][2]float64
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFormat, err, "decoding points")
		}
		return toPoints(raw), nil
	}

	rows, err := readCSV(data, 2)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "decoding points")
	}
	pts := make([]transform.Point, len(rows))
	for i, r := range rows {
		pts[i] = transform.Point{X: r[0], Y: r[1]}
	}
	return pts, nil
}

// writePoints writes pts to w as CSV rows, or as a JSON array of [x, y]
// pairs when jsonOut is set.
func writePoints(w io.Writer, pts []transform.Point, jsonOut bool) error {
	if jsonOut {
		raw := make([][2]float64, len(pts))
		for i, p := range pts {
			raw[i] = [2]float64{p.X, p.Y}
		}
		enc := json.NewEncoder(w)
		return enc.Encode(raw)
	}
	for _, p := range pts {
		if _, err := fmt.Fprintf(w, "%g,%g\n", p.X, p.Y); err != nil {
			return err
		}
	}
	return nil
}

// looksLikeJSON reports whether data starts with a JSON object or array.
func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func toPoints(raw [][2]float64) []transform.Point {
	pts := make([]transform.Point, len(raw))
	for i, r := range raw {
		pts[i] = transform.Point{X: r[0], Y: r[1]}
	}
	return pts
}

// readCSV parses numeric CSV rows with the given column count. The
// first row may be a header; it is skipped when any field fails to
// parse.
func readCSV(data []byte, cols int) ([][]float64, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	var rows [][]float64
	for i, rec := range records {
		if len(rec) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i+1, len(rec), cols)
		}
		vals := make([]float64, cols)
		ok := true
		for j, f := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("row %d is not numeric", i+1)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}
