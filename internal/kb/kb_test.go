package kb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadAndLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pci_data.json")
	data := `{"3": "Protect stored account data.", "3.4.1": "PAN is rendered unreadable anywhere it is stored."}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	k, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, k.Len())
	text, ok := k.Get("3.4.1")
	require.True(t, ok)
	assert.Contains(t, text, "unreadable")
	assert.False(t, k.Has("9.9"))
}

func TestNewRejectsEmptyBody(t *testing.T) {
	_, err := New(map[string]string{"1.2": "  "})
	require.Error(t, err)
}

func TestNewRejectsEmptyKB(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestSortedIDsNumericAware(t *testing.T) {
	k, err := New(map[string]string{
		"12.5.2": "x",
		"3.10":   "x",
		"3.4.1":  "x",
		"3.9":    "x",
		"A1.2":   "x",
		"3":      "x",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"3", "3.4.1", "3.9", "3.10", "12.5.2", "A1.2"}, k.SortedIDs())
}
