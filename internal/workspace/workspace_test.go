package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"dmf/internal/config"
	"dmf/internal/filter"
	"dmf/internal/resource"
	"dmf/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initWorkspace(t *testing.T) *Workspace {
	t.Helper()
	t.Setenv("DMF_HOME", t.TempDir())
	ws, err := Init(t.TempDir(), "test-ws", "unit test workspace")
	require.NoError(t, err)
	return ws
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInitCreatesLayout(t *testing.T) {
	ws := initWorkspace(t)

	for _, entry := range []string{ConfigFile, DatabaseFile, FilesDir, LogsDir} {
		_, err := os.Stat(filepath.Join(ws.Root, entry))
		assert.NoError(t, err, "missing workspace entry %s", entry)
	}
	assert.Equal(t, "test-ws", ws.Config.Name)
	assert.Len(t, ws.Config.ID, 32)
}

func TestInitRefusesExisting(t *testing.T) {
	ws := initWorkspace(t)
	_, err := Init(ws.Root, "again", "")
	assert.Error(t, err)
}

func TestInitRegistersGlobally(t *testing.T) {
	ws := initWorkspace(t)

	g, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ws.Root, g.Workspace)
	assert.Contains(t, g.Workspaces, ws.Root)
}

func TestOpen(t *testing.T) {
	ws := initWorkspace(t)

	got, err := Open(ws.Root)
	require.NoError(t, err)
	assert.Equal(t, ws.Config.ID, got.Config.ID)
	assert.Equal(t, ws.Config.Name, got.Config.Name)
}

func TestOpenUninitialized(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestNewDefaults(t *testing.T) {
	ws := initWorkspace(t)

	r, err := ws.New(NewOptions{Name: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, resource.TypeData, r.Type, "type defaults to data")
	assert.Equal(t, "run-1", r.Name())

	got, ok := ws.Store.Get(r.ID)
	require.True(t, ok)
	assert.Equal(t, r.ID, got.ID)
}

func TestNewWithCopiedFiles(t *testing.T) {
	ws := initWorkspace(t)
	src := writeTemp(t, "results.csv", "a,b\n1,2\n")

	r, err := ws.New(NewOptions{
		Type:  resource.TypeTabular,
		Name:  "sweep",
		Tags:  []string{"steam"},
		Data:  map[string]interface{}{"rows": 1},
		Files: []string{src},
		Copy:  true,
	})
	require.NoError(t, err)
	require.Len(t, r.DataFiles, 1)
	assert.True(t, r.DataFiles[0].IsCopy)

	copied, err := os.ReadFile(ws.Files.Resolve(r.DataFiles[0]))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(copied))
}

func TestNewWithMissingFile(t *testing.T) {
	ws := initWorkspace(t)

	_, err := ws.New(NewOptions{Files: []string{"/does/not/exist.csv"}, Copy: true})
	assert.Error(t, err)
	assert.Equal(t, 0, ws.Store.Count(), "failed create must not leave a resource behind")
}

func TestRemove(t *testing.T) {
	ws := initWorkspace(t)
	src := writeTemp(t, "data.txt", "x")

	r, err := ws.New(NewOptions{Files: []string{src}, Copy: true})
	require.NoError(t, err)
	filesDir := filepath.Join(ws.Root, FilesDir, r.ID)
	_, err = os.Stat(filesDir)
	require.NoError(t, err)

	require.NoError(t, ws.Remove(r.ID))
	_, ok := ws.Store.Get(r.ID)
	assert.False(t, ok)
	_, err = os.Stat(filesDir)
	assert.True(t, os.IsNotExist(err), "copied files must be cleaned up")
}

func TestRemoveUnknown(t *testing.T) {
	ws := initWorkspace(t)
	err := ws.Remove(resource.NewID())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStatus(t *testing.T) {
	ws := initWorkspace(t)
	_, err := ws.New(NewOptions{Type: resource.TypeData})
	require.NoError(t, err)
	_, err = ws.New(NewOptions{Type: resource.TypeNotebook})
	require.NoError(t, err)

	st := ws.Status()
	assert.Equal(t, ws.Root, st.Root)
	assert.Equal(t, 2, st.ResourceCount)
	assert.Equal(t, 1, st.ByType[resource.TypeData])
	assert.Equal(t, 1, st.ByType[resource.TypeNotebook])
	assert.Equal(t, 0, st.PendingCount)
}

func TestResourcesQueryableAfterReopen(t *testing.T) {
	ws := initWorkspace(t)
	_, err := ws.New(NewOptions{Name: "findable", Tags: []string{"keep"}})
	require.NoError(t, err)

	reopened, err := Open(ws.Root)
	require.NoError(t, err)
	rs, err := reopened.Store.Find(filter.Filter{"tags": "keep"}, filter.Options{})
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "findable", rs[0].Name())
}
