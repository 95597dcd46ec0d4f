package mesh

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshtex/pkg/math"
)

func TestWriteOBJ(t *testing.T) {
	m := MustNew(
		[]math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1.5, Y: 0, Z: 0}, {X: 0, Y: -2, Z: 0.25}},
		[]Triangle{{0, 1, 2}},
	)

	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, m))

	want := "v 0 0 0\nv 1.5 0 0\nv 0 -2 0.25\nf 1 2 3\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteOBJ_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, Empty()))
	assert.Empty(t, buf.String())
}

func TestReadOBJ(t *testing.T) {
	data := `# exported
o surface
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vn 0 0 1
f 1/1/1 2/1/1 3/1/1
f -4 -2 -1
`
	m, err := ReadOBJ(strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 4, m.NumPoints())
	require.Equal(t, 2, m.NumTriangles())
	assert.Equal(t, Triangle{0, 1, 2}, m.Triangle(0))
	assert.Equal(t, Triangle{0, 2, 3}, m.Triangle(1))
}

func TestReadOBJ_FanTriangulatesPolygons(t *testing.T) {
	data := "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n"

	m, err := ReadOBJ(strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 2, m.NumTriangles())
	assert.Equal(t, Triangle{0, 1, 2}, m.Triangle(0))
	assert.Equal(t, Triangle{0, 2, 3}, m.Triangle(1))
}

func TestReadOBJ_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"short vertex", "v 1 2\n", ErrMalformedOBJ},
		{"bad coordinate", "v 1 x 2\n", ErrMalformedOBJ},
		{"short face", "v 0 0 0\nf 1 1\n", ErrMalformedOBJ},
		{"zero index", "v 0 0 0\nf 0 1 1\n", ErrMalformedOBJ},
		{"index past points", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n", ErrIndexOutOfRange},
		{"relative before first", "v 0 0 0\nf -2 1 1\n", ErrIndexOutOfRange},
		{"index wraps uint32", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4294967297\n", ErrIndexOutOfRange},
		{"forward reference", "v 0 0 0\nf 1 2 3\nv 1 0 0\nv 0 1 0\n", ErrIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadOBJ(strings.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSaveLoadOBJ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "model.obj")
	m := MustNew(
		[]math.Vec3{{X: 0.1, Y: 0.2, Z: 0.3}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}},
		[]Triangle{{0, 1, 2}, {0, 2, 3}, {3, 1, 0}},
	)

	require.NoError(t, SaveOBJ(path, m))

	loaded, err := LoadOBJ(path)
	require.NoError(t, err)
	assert.True(t, m.Equal(loaded), "loaded mesh differs from saved mesh")
}

func TestLoadOBJ_Missing(t *testing.T) {
	_, err := LoadOBJ(filepath.Join(t.TempDir(), "missing.obj"))
	assert.Error(t, err)
}
