package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/ibrl/internal/wallet"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Inspect or create the agent wallet",
}

var walletNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a new mnemonic for the agent wallet",
	Long: `Generate a fresh BIP-39 mnemonic and print the Solana address it controls.
Store it as IBRL_WALLET_MNEMONIC (or solana.wallet_mnemonic) to enable the
wallet functions. Nothing is written to disk.`,
	Args: cobra.NoArgs,
	RunE: runWalletNew,
}

var walletShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the agent wallet address and balance",
	Args:  cobra.NoArgs,
	RunE:  runWalletShow,
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletNewCmd, walletShowCmd)
}

func runWalletNew(cmd *cobra.Command, args []string) error {
	mnemonic, err := wallet.NewMnemonic()
	if err != nil {
		return err
	}
	w, err := wallet.FromMnemonic(mnemonic, nil, nil)
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("New agent wallet"))
	fmt.Printf("Address:  %s\n", w.Address())
	fmt.Printf("Mnemonic: %s\n", mnemonic)
	fmt.Println(infoStyle.Render("Keep the mnemonic secret; anyone holding it controls the funds."))
	return nil
}

func runWalletShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := a.session.AgentWallet()
	if err != nil {
		return err
	}
	bal, err := w.Balance(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching balance: %w", err)
	}
	fmt.Printf("Address: %s\n", w.Address())
	fmt.Printf("Balance: %s SOL\n", bal.SOL.StringFixed(4))
	return nil
}
