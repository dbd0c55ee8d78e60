package freeroute

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRequestFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(extractCmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--min-nodes", "3", "--allow-empty", "--provider-chain", "a,b"}))
	t.Cleanup(func() { extractChain = nil })

	req := extractRequest(cmd, "Bob.")
	assert.Equal(t, "Bob.", req.Context)
	assert.True(t, req.Strict)
	assert.True(t, req.RepairIfInvalid)
	require.NotNil(t, req.MinNodes)
	assert.Equal(t, 3, *req.MinNodes)
	assert.Nil(t, req.MinEdges)
	require.NotNil(t, req.AllowEmpty)
	assert.True(t, *req.AllowEmpty)
	assert.Equal(t, []string{"a", "b"}, req.ProviderChain)
}

func TestReadInput(t *testing.T) {
	text, err := readInput(strings.NewReader("from stdin"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", text)

	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o600))
	extractFile = path
	t.Cleanup(func() { extractFile = "" })

	text, err = readInput(strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "from file", text)
}
