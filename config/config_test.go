package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/seqtest"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 200*time.Millisecond, cfg.BlockTime)
	require.Equal(t, 20, cfg.MaxTxPerBlock)
	require.Equal(t, 10_000, cfg.MempoolSize)

	p := cfg.Poller(nil)
	require.Equal(t, 200*time.Millisecond, p.PollInterval)
	require.Equal(t, 2*time.Second, p.Timeout)
}

func TestLoad_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
block_time = "50ms"
max_tx_per_block = 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 50*time.Millisecond, cfg.BlockTime)
	require.Equal(t, 5, cfg.MaxTxPerBlock)
	require.Equal(t, 10_000, cfg.MempoolSize)
	require.Equal(t, DefaultListen, cfg.Listen)

	// Waiter follows the block time unless set.
	p := cfg.Poller(nil)
	require.Equal(t, 50*time.Millisecond, p.PollInterval)
	require.Equal(t, 500*time.Millisecond, p.Timeout)

	e := cfg.Engine()
	require.Equal(t, 50*time.Millisecond, e.BlockTime)
	require.Equal(t, 5, e.MaxTxPerBlock)
}

func TestLoad_WaiterOverrides(t *testing.T) {
	fc, err := Parse([]byte(`
poll_interval = "10ms"
timeout = "3s"
`))
	require.NoError(t, err)
	cfg := Default()
	require.NoError(t, cfg.Apply(fc))

	p := cfg.Poller(nil)
	require.Equal(t, 10*time.Millisecond, p.PollInterval)
	require.Equal(t, 3*time.Second, p.Timeout)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	_, ok := seqtest.IsIO(err)
	require.True(t, ok, "expected IOError, got %v", err)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"unknown key", `blok_time = "1s"`},
		{"bad duration", `block_time = "soon"`},
		{"zero block time", `block_time = "0s"`},
		{"negative txs", `max_tx_per_block = -1`},
		{"zero mempool", `mempool_max_size = 0`},
		{"negative timeout", `timeout = "-1s"`},
		{"syntax", `block_time = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := Parse([]byte(tt.toml))
			if err == nil {
				cfg := Default()
				err = cfg.Apply(fc)
			}
			require.Error(t, err)
		})
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/var/lib/seqtest"
	cfg.BlockTime = time.Second

	data, err := cfg.Marshal()
	require.NoError(t, err)

	fc, err := Parse(data)
	require.NoError(t, err)
	got := Default()
	require.NoError(t, got.Apply(fc))
	require.Equal(t, cfg.DataDir, got.DataDir)
	require.Equal(t, time.Second, got.BlockTime)
	require.Equal(t, 10*time.Second, got.Timeout)
}

func TestApply_BlockTimeSet(t *testing.T) {
	cfg := Default()
	require.False(t, cfg.BlockTimeSet)

	fc, err := Parse([]byte(`max_tx_per_block = 3`))
	require.NoError(t, err)
	require.NoError(t, cfg.Apply(fc))
	require.False(t, cfg.BlockTimeSet)

	fc, err = Parse([]byte(`block_time = "200ms"`))
	require.NoError(t, err)
	require.NoError(t, cfg.Apply(fc))
	require.True(t, cfg.BlockTimeSet)
}
