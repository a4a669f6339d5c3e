package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/seqtest/types"
)

func TestParseAccount(t *testing.T) {
	id, err := parseAccount("3")
	require.NoError(t, err)
	require.Equal(t, types.NewAccountID(3), id)

	hexID := types.NewAccountID(0xab).String()
	id, err = parseAccount(hexID)
	require.NoError(t, err)
	require.Equal(t, types.NewAccountID(0xab), id)

	_, err = parseAccount("300")
	require.Error(t, err)
}

func TestResolveArtifact(t *testing.T) {
	old := cfg
	t.Cleanup(func() { cfg = old })

	cfg.Programs = "/opt/programs"
	require.Equal(t, filepath.Join("/opt/programs", "double.bin"), resolveArtifact("double"))
	require.Equal(t, "./double.bin", resolveArtifact("./double.bin"))

	cfg.Programs = ""
	require.Equal(t, "double", resolveArtifact("double"))
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
block_time = "1s"
max_tx_per_block = 7
`), 0o644))

	oldFile := configFile
	t.Cleanup(func() { configFile = oldFile })
	configFile = path

	require.NoError(t, serveCmd.ParseFlags([]string{"--block-time", "300ms"}))
	t.Cleanup(func() {
		serveCmd.Flags().Lookup("block-time").Changed = false
		blockTime = ""
	})
	c, err := loadConfig(serveCmd)
	require.NoError(t, err)
	require.Equal(t, 300*time.Millisecond, c.BlockTime)
	require.Equal(t, 7, c.MaxTxPerBlock)
	require.Equal(t, 10_000, c.MempoolSize)
}

func TestBuiltins(t *testing.T) {
	reg, err := builtins()
	require.NoError(t, err)
	for _, name := range reg.Names() {
		_, ok := builtinBytecode(name)
		require.True(t, ok, "no bytecode for %s", name)
	}
}

func TestAdvertisedBlockTime(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}
	oldFile := configFile
	t.Cleanup(func() { configFile = oldFile })

	// A file that does not mention block_time leaves the server in charge.
	configFile = write("timeout.toml", `timeout = "5s"`)
	c, err := loadConfig(heightCmd)
	require.NoError(t, err)
	require.Equal(t, time.Second, withAdvertisedBlockTime(c, time.Second).BlockTime)
	require.Equal(t, 5*time.Second, withAdvertisedBlockTime(c, time.Second).Poller(nil).Timeout)

	configFile = write("block.toml", `block_time = "50ms"`)
	c, err = loadConfig(heightCmd)
	require.NoError(t, err)
	require.Equal(t, 50*time.Millisecond, withAdvertisedBlockTime(c, time.Second).BlockTime)

	// Nothing advertised: keep the configured value.
	configFile = ""
	c, err = loadConfig(heightCmd)
	require.NoError(t, err)
	require.Equal(t, 200*time.Millisecond, withAdvertisedBlockTime(c, 0).BlockTime)
}
