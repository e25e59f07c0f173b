package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogSeniorHigh(t *testing.T) {
	c := Default()

	assert.Equal(t, []string{
		"Programming",
		"Web Development",
		"Digital Arts and Design",
		"Office Productivity",
		"Soft Skills",
	}, c.Technologies("Senior High"))
	assert.Equal(t, []string{"2-Year Program", "Senior High", "Short Courses"}, c.ProgramNames())
	assert.Equal(t, []string{"Pasig", "Pasay", "Jalajala"}, c.Branches)
	assert.Len(t, c.Technologies("Short Courses"), 19)
}

func TestTechnologiesUnknownProgram(t *testing.T) {
	c := Default()

	assert.Empty(t, c.Technologies("All"))
	assert.Empty(t, c.Technologies("Graduate School"))
	assert.False(t, c.HasProgram("All"))
}

func TestTechnologiesReturnsCopy(t *testing.T) {
	c := Default()

	techs := c.Technologies("2-Year Program")
	techs[0] = "mutated"

	assert.Equal(t, "Programming", c.Technologies("2-Year Program")[0])
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"no programs":  "branches: [Pasig]\n",
		"empty name":   "programs:\n  - name: ''\n    technologies: [A]\n",
		"duplicate":    "programs:\n  - name: A\n  - name: A\n",
		"empty tech":   "programs:\n  - name: A\n    technologies: ['']\n",
		"invalid yaml": "programs: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "programs:\n  - name: Evening Classes\n    technologies: [Linux, Electronics]\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Linux", "Electronics"}, c.Technologies("Evening Classes"))
	assert.Empty(t, c.Technologies("Senior High"))
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.True(t, c.HasProgram("Short Courses"))
}
