package setups

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDevCredentialsPath(t *testing.T) {
	t.Setenv(DevCredentialsPathEnv, "")
	_, ok := DevCredentialsPath()
	require.False(t, ok)

	t.Setenv(DevCredentialsPathEnv, "/tmp/sa.json")
	p, ok := DevCredentialsPath()
	require.True(t, ok)
	require.Equal(t, "/tmp/sa.json", p)

	t.Setenv(DevProjectEnv, "studio-dev")
	project, ok := DevProject()
	require.True(t, ok)
	require.Equal(t, "studio-dev", project)
}
