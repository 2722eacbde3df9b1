package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/ibrl/internal/llm"
	"github.com/michaelbrown/ibrl/internal/storage"
	"github.com/michaelbrown/ibrl/internal/storage/sqlite"
)

var skipValidateFlag bool

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the stored completion API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set [api-key]",
	Short: "Validate and store an API key (prompts when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runKeySet,
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show whether a key is stored (masked)",
	Args:  cobra.NoArgs,
	RunE:  runKeyShow,
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE:  runKeyClear,
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keySetCmd, keyShowCmd, keyClearCmd)
	keySetCmd.Flags().BoolVar(&skipValidateFlag, "no-validate", false, "Store without checking the key against the provider")
}

// openKeyStore opens the credential store and resolves the provider, without
// building the rest of the stack.
func openKeyStore() (*app, *sqlite.CredentialStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	a := &app{cfg: cfg}
	if err := a.resolvePersona(); err != nil {
		return nil, nil, err
	}
	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}
	return a, store, nil
}

func runKeySet(cmd *cobra.Command, args []string) error {
	a, store, err := openKeyStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		key, err = promptKey()
		if err != nil {
			return err
		}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is empty")
	}

	if !skipValidateFlag {
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		client := llm.NewClient(a.provider.BaseURL, key, a.model)
		if err := client.ValidateKey(ctx); err != nil {
			return fmt.Errorf("key rejected by %s: %w", a.providerName, err)
		}
	}

	if err := store.SetCredential(cmd.Context(), storage.OpenAIKeyName, key); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("API key saved ⚡"))
	return nil
}

func promptKey() (string, error) {
	rl, err := readline.NewEx(&readline.Config{})
	if err != nil {
		return "", fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()
	key, err := rl.ReadPassword("API key: ")
	if err != nil {
		return "", err
	}
	return string(key), nil
}

func runKeyShow(cmd *cobra.Command, args []string) error {
	_, store, err := openKeyStore()
	if err != nil {
		return err
	}
	defer store.Close()

	key, err := store.Credential(cmd.Context(), storage.OpenAIKeyName)
	if errors.Is(err, storage.ErrCredentialNotFound) {
		fmt.Println("No API key stored.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("API key: %s\n", maskKey(key))
	return nil
}

func runKeyClear(cmd *cobra.Command, args []string) error {
	_, store, err := openKeyStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteCredential(cmd.Context(), storage.OpenAIKeyName); err != nil {
		return err
	}
	fmt.Println("API key removed.")
	return nil
}

// maskKey keeps just enough of a key to recognise it.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + "..." + key[len(key)-4:]
}
