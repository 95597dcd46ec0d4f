package mesh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Faultbox/meshtex/pkg/math"
)

// OBJ format errors.
var (
	ErrMalformedOBJ = errors.New("malformed OBJ data")
)

// WriteOBJ writes m as Wavefront OBJ: one "v x y z" line per point followed by
// one "f a b c" line per triangle with 1-based indices.
func WriteOBJ(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)

	for _, p := range m.points {
		if _, err := fmt.Fprintf(bw, "v %s %s %s\n", formatCoord(p.X), formatCoord(p.Y), formatCoord(p.Z)); err != nil {
			return err
		}
	}
	for _, tri := range m.triangles {
		if _, err := fmt.Fprintf(bw, "f %d %d %d\n", tri[0]+1, tri[1]+1, tri[2]+1); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// SaveOBJ writes m to path, creating parent directories as needed.
func SaveOBJ(path string, m *Mesh) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteOBJ(f, m); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// ReadOBJ parses vertex and face records from OBJ data. Faces may use the
// "i/t/n" forms and negative (relative) indices; polygons are fan-triangulated.
// A face may only reference vertices that precede it. All other records are ignored.
func ReadOBJ(r io.Reader) (*Mesh, error) {
	var points []math.Vec3
	var tris []Triangle

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates: %w", lineNo, ErrMalformedOBJ)
			}
			var xyz [3]float32
			for i := range xyz {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: %v: %w", lineNo, err, ErrMalformedOBJ)
				}
				xyz[i] = float32(f)
			}
			points = append(points, math.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]})

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices: %w", lineNo, ErrMalformedOBJ)
			}
			idx := make([]uint32, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				i, err := parseFaceIndex(tok, len(points))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				idx = append(idx, i)
			}
			for k := 1; k+1 < len(idx); k++ {
				tris = append(tris, Triangle{idx[0], idx[k], idx[k+1]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return New(points, tris)
}

// LoadOBJ reads an OBJ file from disk.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

func parseFaceIndex(tok string, numPoints int) (uint32, error) {
	if slash := strings.IndexByte(tok, '/'); slash >= 0 {
		tok = tok[:slash]
	}
	i, err := strconv.Atoi(tok)
	if err != nil || i == 0 {
		return 0, fmt.Errorf("bad face index %q: %w", tok, ErrMalformedOBJ)
	}
	if i < 0 {
		i += numPoints
	} else {
		i--
	}
	if i < 0 {
		return 0, fmt.Errorf("relative face index %q before first vertex: %w", tok, ErrIndexOutOfRange)
	}
	// Faces may only reference vertices already read. This also keeps i
	// within uint32 before the conversion.
	if i >= numPoints {
		return 0, fmt.Errorf("face index %q past %d vertices: %w", tok, numPoints, ErrIndexOutOfRange)
	}
	return uint32(i), nil
}

func formatCoord(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
