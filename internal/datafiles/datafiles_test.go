package datafiles

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"dmf/internal/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAttachCopy(t *testing.T) {
	m := NewManager(t.TempDir())
	r := resource.New(resource.TypeData)

	content := "T,P\n300,101325\n310,101325\n"
	src := writeTemp(t, "results.csv", content)

	require.NoError(t, m.Attach(r, []string{src}, true, "sweep output"))
	require.Len(t, r.DataFiles, 1)

	df := r.DataFiles[0]
	assert.True(t, df.IsCopy)
	assert.Equal(t, filepath.Join(r.ID, "results.csv"), df.Path)
	assert.Equal(t, "sweep output", df.Desc)

	// Copied content is byte-identical to the source.
	copied, err := os.ReadFile(m.Resolve(df))
	require.NoError(t, err)
	assert.Equal(t, content, string(copied))

	sum := sha1.Sum([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), df.SHA1)
}

func TestAttachCopyMultiple(t *testing.T) {
	m := NewManager(t.TempDir())
	r := resource.New(resource.TypeData)

	a := writeTemp(t, "a.txt", "aaa")
	b := writeTemp(t, "b.txt", "bbb")
	c := writeTemp(t, "c.txt", "ccc")

	require.NoError(t, m.Attach(r, []string{a, b, c}, true, ""))
	require.Len(t, r.DataFiles, 3)

	// Records keep argument order despite concurrent copying.
	assert.Equal(t, filepath.Join(r.ID, "a.txt"), r.DataFiles[0].Path)
	assert.Equal(t, filepath.Join(r.ID, "b.txt"), r.DataFiles[1].Path)
	assert.Equal(t, filepath.Join(r.ID, "c.txt"), r.DataFiles[2].Path)
}

func TestAttachCopyRejectsDuplicateBasenames(t *testing.T) {
	m := NewManager(t.TempDir())
	r := resource.New(resource.TypeData)

	a := writeTemp(t, "results.csv", "first")
	b := writeTemp(t, "results.csv", "second")

	err := m.Attach(r, []string{a, b}, true, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "results.csv")
	assert.Empty(t, r.DataFiles)

	// Nothing may have been copied before the rejection.
	_, statErr := os.Stat(filepath.Join(m.Root(), r.ID))
	assert.True(t, os.IsNotExist(statErr))
}

func TestAttachReference(t *testing.T) {
	m := NewManager(t.TempDir())
	r := resource.New(resource.TypeData)
	src := writeTemp(t, "external.dat", "payload")

	require.NoError(t, m.Attach(r, []string{src}, false, ""))
	require.Len(t, r.DataFiles, 1)

	df := r.DataFiles[0]
	assert.False(t, df.IsCopy)
	assert.True(t, filepath.IsAbs(df.Path))
	assert.Empty(t, df.SHA1, "referenced files carry no hash")
	assert.Equal(t, df.Path, m.Resolve(df))

	// Nothing lands in workspace storage.
	_, err := os.Stat(filepath.Join(m.Root(), r.ID))
	assert.True(t, os.IsNotExist(err))
}

func TestAttachReferenceMissingFile(t *testing.T) {
	m := NewManager(t.TempDir())
	r := resource.New(resource.TypeData)

	err := m.Attach(r, []string{filepath.Join(t.TempDir(), "nope.dat")}, false, "")
	assert.Error(t, err)
	assert.Empty(t, r.DataFiles)
}

func TestAttachCopyMissingFile(t *testing.T) {
	m := NewManager(t.TempDir())
	r := resource.New(resource.TypeData)

	err := m.Attach(r, []string{filepath.Join(t.TempDir(), "nope.dat")}, true, "")
	assert.Error(t, err)
	assert.Empty(t, r.DataFiles, "failed attach must not record files")
}

func TestAttachNothing(t *testing.T) {
	m := NewManager(t.TempDir())
	r := resource.New(resource.TypeData)
	require.NoError(t, m.Attach(r, nil, true, ""))
	assert.Empty(t, r.DataFiles)
}

func TestPaths(t *testing.T) {
	m := NewManager(t.TempDir())
	r := resource.New(resource.TypeData)
	copied := writeTemp(t, "copied.txt", "x")
	referenced := writeTemp(t, "referenced.txt", "y")

	require.NoError(t, m.Attach(r, []string{copied}, true, ""))
	require.NoError(t, m.Attach(r, []string{referenced}, false, ""))

	paths := m.Paths(r)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(m.Root(), r.ID, "copied.txt"), paths[0])
	assert.Equal(t, referenced, paths[1])
}

func TestOpen(t *testing.T) {
	m := NewManager(t.TempDir())
	r := resource.New(resource.TypeData)
	src := writeTemp(t, "data.txt", "hello")
	require.NoError(t, m.Attach(r, []string{src}, true, ""))

	handles, err := m.Open(r, ModeRead)
	require.NoError(t, err)
	require.Len(t, handles, 1)
	defer handles[0].Close()

	got, err := io.ReadAll(handles[0])
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	// Read-only handles reject writes.
	_, err = handles[0].Write([]byte("x"))
	assert.Error(t, err)
}

func TestOpenReadWrite(t *testing.T) {
	m := NewManager(t.TempDir())
	r := resource.New(resource.TypeData)
	src := writeTemp(t, "data.txt", "hello")
	require.NoError(t, m.Attach(r, []string{src}, true, ""))

	handles, err := m.Open(r, ModeReadWrite)
	require.NoError(t, err)
	require.Len(t, handles, 1)
	defer handles[0].Close()

	_, err = handles[0].Write([]byte("world"))
	assert.NoError(t, err)
}

func TestOpenClosesPartialHandlesOnError(t *testing.T) {
	m := NewManager(t.TempDir())
	r := resource.New(resource.TypeData)
	src := writeTemp(t, "ok.txt", "x")
	require.NoError(t, m.Attach(r, []string{src}, true, ""))

	r.DataFiles = append(r.DataFiles, resource.DataFile{Path: "/does/not/exist", IsCopy: false})
	_, err := m.Open(r, ModeRead)
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	m := NewManager(t.TempDir())
	r := resource.New(resource.TypeData)
	src := writeTemp(t, "data.txt", "x")
	require.NoError(t, m.Attach(r, []string{src}, true, ""))

	dir := filepath.Join(m.Root(), r.ID)
	_, err := os.Stat(dir)
	require.NoError(t, err)

	require.NoError(t, m.Remove(r))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// Removing again is a no-op.
	assert.NoError(t, m.Remove(r))

	// The original source file is untouched.
	_, err = os.Stat(src)
	assert.NoError(t, err)
}
