package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/blockberries/seqtest/client"
	"github.com/blockberries/seqtest/config"
	"github.com/blockberries/seqtest/crypto/ed25519"
	seqgrpc "github.com/blockberries/seqtest/grpc"
	"github.com/blockberries/seqtest/types"
)

const dialTimeout = 5 * time.Second

var (
	wait     bool
	keySeeds []string
	rawData  string
)

// connect dials the sequencer and returns a client whose waiter
// follows the advertised block time unless one was configured.
func connect(ctx context.Context) (*client.Client, func(), error) {
	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, err := seqgrpc.Dial(dctx, cfg.Listen, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	c := withAdvertisedBlockTime(cfg, conn.BlockTime())
	cl := client.New(conn,
		client.WithPoller(c.Poller(conn)),
		client.WithLogger(logger.Named("client")),
	)
	return cl, func() { conn.Close() }, nil
}

// withAdvertisedBlockTime adopts the server's block interval unless
// a config file or flag set block_time.
func withAdvertisedBlockTime(c config.Config, advertised time.Duration) config.Config {
	if advertised > 0 && !c.BlockTimeSet {
		c.BlockTime = advertised
	}
	return c
}

// parseAccount accepts a 64-char hex id or a small integer n, which
// names the account with every byte set to n.
func parseAccount(s string) (types.AccountID, error) {
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		return types.NewAccountID(byte(n)), nil
	}
	return types.AccountIDFromHex(s)
}

func parseKeys() ([]ed25519.PrivateKey, error) {
	keys := make([]ed25519.PrivateKey, 0, len(keySeeds))
	for _, s := range keySeeds {
		seed, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: key seed: %v", ErrInvalidArgs, err)
		}
		k, err := ed25519.PrivateKeyFromSeed(seed)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

var deployCmd = &cobra.Command{
	Use:   "deploy [name|path]",
	Short: "Deploy a program artifact",
	PreRunE: func(_ *cobra.Command, args []string) error {
		if len(args) != 1 {
			return ErrInvalidArgs
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cl, closeFn, err := connect(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		id, ack, err := cl.DeployFile(ctx, resolveArtifact(args[0]))
		if err != nil {
			return err
		}
		color.Green("deployment submitted: program %s tx %s", id, ack.TxHash)
		if !wait {
			return nil
		}
		if _, err := cl.Confirm(ctx, ack); err != nil {
			return err
		}
		color.Green("deployment confirmed")
		return nil
	},
}

var invokeCmd = &cobra.Command{
	Use:   "invoke [program id] [account]...",
	Short: "Submit an invocation of a deployed program",
	PreRunE: func(_ *cobra.Command, args []string) error {
		if len(args) < 2 {
			return ErrInvalidArgs
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := types.ProgramIDFromHex(args[0])
		if err != nil {
			return err
		}
		accounts := make([]types.AccountID, 0, len(args)-1)
		for _, a := range args[1:] {
			id, err := parseAccount(a)
			if err != nil {
				return err
			}
			accounts = append(accounts, id)
		}
		keys, err := parseKeys()
		if err != nil {
			return err
		}
		var instruction any
		if rawData != "" {
			b, err := hex.DecodeString(rawData)
			if err != nil {
				return fmt.Errorf("%w: data: %v", ErrInvalidArgs, err)
			}
			instruction = b
		}

		ctx := cmd.Context()
		cl, closeFn, err := connect(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		ack, err := cl.Send(ctx, pid, accounts, instruction, keys...)
		if err != nil {
			return err
		}
		color.Green("invocation submitted: tx %s", ack.TxHash)
		if !wait {
			return nil
		}
		r, err := cl.Confirm(ctx, ack)
		if err != nil {
			return err
		}
		if r.Status == types.TxExecuted {
			color.Green("executed at height %d", r.Height)
		} else {
			color.Yellow("block produced; receipts not available")
		}
		return nil
	},
}

var accountCmd = &cobra.Command{
	Use:   "account [account]",
	Short: "Print an account's owner and data",
	PreRunE: func(_ *cobra.Command, args []string) error {
		if len(args) != 1 {
			return ErrInvalidArgs
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAccount(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		cl, closeFn, err := connect(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		acc, err := cl.Account(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", color.YellowString("account:"), id)
		if acc.ProgramOwner.IsDefault() {
			fmt.Printf("%s unclaimed\n", color.YellowString("owner:"))
		} else {
			fmt.Printf("%s %s\n", color.YellowString("owner:"), acc.ProgramOwner)
		}
		fmt.Printf("%s %x\n", color.YellowString("data:"), []byte(acc.Data))
		return nil
	},
}

var heightCmd = &cobra.Command{
	Use:   "height",
	Short: "Print the last block height",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cl, closeFn, err := connect(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		h, err := cl.LastBlockHeight(ctx)
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	},
}

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the next block",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cl, closeFn, err := connect(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		color.Yellow("Waiting for the next block...")
		h, err := cl.WaitForBlock(ctx)
		if err != nil {
			return err
		}
		color.Green("Block %d produced", h)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{deployCmd, invokeCmd} {
		c.Flags().BoolVar(&wait, "wait", false, "wait for the next block and check the receipt")
	}
	invokeCmd.Flags().StringArrayVar(&keySeeds, "key", nil, "hex ed25519 seed of a signer (repeatable)")
	invokeCmd.Flags().StringVar(&rawData, "data", "", "hex instruction bytes (default empty)")
}
