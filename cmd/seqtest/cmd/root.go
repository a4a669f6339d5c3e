package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blockberries/seqtest/config"
)

var (
	cfg    config.Config
	logger *zap.Logger

	configFile    string
	verbose       bool
	listen        string
	dataDir       string
	programsDir   string
	metricsAddr   string
	blockTime     string
	maxTxPerBlock int
	mempoolSize   int
	timeout       string

	rootCmd = &cobra.Command{
		Use:           "seqtest",
		Short:         "Sequencer transaction-confirmation harness",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.AddCommand(
		serveCmd,
		programCmd,
		deployCmd,
		invokeCmd,
		accountCmd,
		heightCmd,
		waitCmd,
	)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "path to config.toml")
	pf.BoolVarP(&verbose, "verbose", "v", false, "development logging at debug level")
	pf.StringVar(&listen, "addr", config.DefaultListen, "sequencer gRPC address")
	pf.StringVar(&programsDir, "programs", "", "directory of <name>.bin program artifacts")
	pf.StringVar(&blockTime, "block-time", "", "block interval (default 200ms)")
	pf.StringVar(&timeout, "timeout", "", "confirmation timeout (default 10 block intervals)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return err
		}
		cfg, err = loadConfig(cmd)
		return err
	}
	rootCmd.PersistentPostRun = func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	}
}

// loadConfig reads --config over the defaults and lets explicitly
// set flags win.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	c := config.Default()
	if configFile != "" {
		var err error
		if c, err = config.Load(configFile); err != nil {
			return config.Config{}, err
		}
	}

	var fc config.FileConfig
	flags := cmd.Flags()
	if flags.Changed("addr") {
		fc.Listen = &listen
	}
	if flags.Changed("programs") {
		fc.Programs = &programsDir
	}
	if flags.Changed("block-time") {
		fc.BlockTime = &blockTime
	}
	if flags.Changed("timeout") {
		fc.Timeout = &timeout
	}
	if flags.Changed("data-dir") {
		fc.DataDir = &dataDir
	}
	if flags.Changed("metrics") {
		fc.Metrics = &metricsAddr
	}
	if flags.Changed("max-tx-per-block") {
		fc.MaxTxPerBlock = &maxTxPerBlock
	}
	if flags.Changed("mempool-size") {
		fc.MempoolSize = &mempoolSize
	}
	if err := c.Apply(&fc); err != nil {
		return config.Config{}, err
	}
	return c, nil
}

func Execute() error {
	return rootCmd.Execute()
}
