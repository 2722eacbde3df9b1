package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/ibrl/internal/functions"
	"github.com/michaelbrown/ibrl/internal/logger"
	"github.com/michaelbrown/ibrl/internal/session"
	"github.com/michaelbrown/ibrl/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the IBRL functions over MCP stdio",
	Long: `Expose every IBRL function as an MCP tool on stdin/stdout, so other
agents can query prices, balances and transactions through IBRL.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the protocol; logs must not.
	if cfg.Log.Output == "" || cfg.Log.Output == "stdout" {
		cfg.Log.Output = "stderr"
	}
	_, logCloser, err := logger.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	sc, err := session.New(cfg)
	if err != nil {
		return err
	}

	s := tools.NewMCPServer(functions.NewRegistry(sc), "ibrl", version)
	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
