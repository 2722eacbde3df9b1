package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configFlag   string
	providerFlag string
	modelFlag    string
	personaFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "ibrl",
	Short: "IBRL - Increase Bandwidth, Reduce Latency",
	Long: `IBRL is a sarcastic Solana chat assistant.

It streams answers from an OpenAI-compatible model and calls Solana functions
along the way: prices, trending tokens, wallet balances, transaction reviews,
transfers, swaps, lending rates, MEV rewards, NFT mints and devnet airdrops.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default ./ibrl.yaml or ~/.ibrl/ibrl.yaml)")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "Completion provider (overrides config and persona)")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "Model to use (overrides config and persona)")
	rootCmd.PersistentFlags().StringVar(&personaFlag, "persona", "", "Persona YAML file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
