package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronobooth/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	assert.Equal(t, 21, c.Len())

	first := c.All()[0]
	assert.True(t, first.IsSurprise())

	era, err := c.Lookup("saloon_poker")
	require.NoError(t, err)
	assert.Equal(t, "Wild West Saloon", era.Name)
	assert.Contains(t, era.Directive, "poker")

	_, err = c.Lookup("atlantis")
	assert.ErrorIs(t, err, domain.ErrUnknownEra)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"empty":        "eras: []",
		"missing id":   "eras:\n  - name: x\n    directive: y\n",
		"duplicate":    "eras:\n  - id: a\n    directive: y\n  - id: a\n    directive: z\n",
		"no directive": "eras:\n  - id: a\n",
		"bad yaml":     "eras: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eras.yaml")
	doc := "eras:\n  - id: random_surprise\n    name: Surprise\n  - id: mars\n    name: Mars Colony\n    directive: standing on red dust\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 21, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
