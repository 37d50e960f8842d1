package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "inspect",
		Short:        "Analyze single Raydium AMM v4 transactions",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error), overrides LOG_LEVEL")
	root.PersistentFlags().Duration("timeout", 0, "per command timeout, 0 means HTTP_TIMEOUT")

	root.AddCommand(&cobra.Command{
		Use:   "pool <signature>",
		Short: "Build the pool report of an initialize2 transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runPool,
	})

	root.AddCommand(&cobra.Command{
		Use:   "swap <signature>",
		Short: "Build the swap report of a swapBaseIn transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runSwap,
	})

	root.AddCommand(&cobra.Command{
		Use:   "token <mint>",
		Short: "Resolve the metadata and decimals of a mint",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	})

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a base58 instruction payload without touching the network",
	}
	decodeCmd.AddCommand(&cobra.Command{
		Use:   "pool <base58>",
		Short: "Decode an initialize2 payload",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecodePool,
	})
	decodeCmd.AddCommand(&cobra.Command{
		Use:   "swap <base58>",
		Short: "Decode a swapBaseIn payload",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecodeSwap,
	})
	root.AddCommand(decodeCmd)

	return root
}
