package dag

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	g, err := Build(linear())
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	require.NoError(t, g.AssignSessions(2))

	path := filepath.Join(t.TempDir(), "dag.yaml")
	require.NoError(t, g.Save(path, "001-demo", 2))

	loaded, art, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ArtifactVersion, art.Version)
	assert.Equal(t, "001-demo", art.SpecID)
	assert.Equal(t, 2, art.NumSessions)
	assert.Equal(t, g.Phases(), loaded.Phases())

	original, _ := g.GetTask("T002")
	roundTripped, ok := loaded.GetTask("T002")
	require.True(t, ok)
	assert.Equal(t, original.Dependencies, roundTripped.Dependencies)
	require.NotNil(t, roundTripped.Session)
	assert.Equal(t, *original.Session, *roundTripped.Session)
}
