package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/ibrl/internal/agent"
	"github.com/michaelbrown/ibrl/internal/annotate"
	"github.com/michaelbrown/ibrl/internal/storage"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with the IBRL agent",
	Long: `Start an interactive conversation with the IBRL agent.
Replies stream as they arrive; function results appear inline.

Examples:
  ibrl chat
  ibrl chat --model gpt-4o
  ibrl chat --persona ./degen.yaml`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// chatSession is the REPL's in-memory state. Nothing is persisted.
type chatSession struct {
	app          *app
	conversation *agent.Conversation
	transcript   *storage.Transcript
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cs := &chatSession{
		app:          a,
		conversation: agent.NewConversation(),
		transcript: &storage.Transcript{
			ID:        uuid.New().String(),
			Persona:   a.persona.Name,
			Provider:  a.providerName,
			Model:     a.model,
			CreatedAt: time.Now().UTC(),
		},
	}

	fmt.Println(titleStyle.Render("⚡ IBRL - Increase Bandwidth, Reduce Latency"))
	fmt.Println(infoStyle.Render(fmt.Sprintf("Persona: %s | Provider: %s | Model: %s", a.persona.Name, a.providerName, a.model)))
	if a.session.Wallet != nil {
		fmt.Println(infoStyle.Render("Agent wallet: " + a.session.Wallet.Address()))
	}
	fmt.Println(infoStyle.Render(fmt.Sprintf("Functions: %d | Type /help for commands, /quit to exit", len(a.agent.Functions()))))
	fmt.Println()

	home, _ := os.UserHomeDir()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36myou>\033[0m ",
		HistoryFile:     filepath.Join(home, ".ibrl", "history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	// Per-request cancellation: Ctrl+C cancels the active turn, not the app.
	var (
		mu        sync.Mutex
		reqCancel context.CancelFunc
	)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			mu.Lock()
			if reqCancel != nil {
				reqCancel()
			}
			mu.Unlock()
		}
	}()

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye! ⚡")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := cs.handleCommand(input); quit {
				return nil
			}
			continue
		}

		reqCtx, cancel := context.WithCancel(context.Background())
		mu.Lock()
		reqCancel = cancel
		mu.Unlock()

		fmt.Print("\n" + agentStyle.Render("ibrl>") + " ")
		reply, err := a.agent.Converse(reqCtx, cs.conversation, input, func(chunk string) {
			fmt.Print(chunk)
		})
		wasInterrupted := reqCtx.Err() != nil
		cancel()
		mu.Lock()
		reqCancel = nil
		mu.Unlock()

		switch {
		case errors.Is(err, agent.ErrMissingCredential):
			fmt.Println(errorStyle.Render("No API key configured. Run `ibrl key set` first."))
			fmt.Println()
			continue
		case err != nil && wasInterrupted:
			fmt.Println("\n(interrupted)")
			continue
		case err != nil:
			fmt.Println()
			fmt.Println(errorStyle.Render("error: " + err.Error()))
			fmt.Println()
			continue
		}

		fmt.Println()
		printLinks(reply)
		fmt.Println()
	}
}

// printLinks lists explorer links for any addresses or signatures in reply.
func printLinks(reply string) {
	annotations := annotate.Annotate(reply)
	if len(annotations) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(infoStyle.Render("🔗 Explorer links:"))
	for _, an := range annotations {
		fmt.Printf("  %s %s\n", infoStyle.Render(string(an.Kind)), linkStyle.Render(an.URL))
	}
}

// handleCommand runs a slash command and reports whether the REPL should exit.
func (cs *chatSession) handleCommand(input string) bool {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit", "/q":
		fmt.Println("Goodbye! ⚡")
		return true
	case "/reset":
		cs.conversation.Reset()
		fmt.Println("Conversation reset.")
	case "/history":
		for _, m := range cs.conversation.Messages() {
			fmt.Printf("%s %s\n", agentStyle.Render(string(m.Role)+":"), m.Content)
		}
	case "/export":
		if err := cs.export(fields[1:]); err != nil {
			fmt.Println(errorStyle.Render("export failed: " + err.Error()))
		}
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /help                  - Show this help")
		fmt.Println("  /reset                 - Clear conversation history")
		fmt.Println("  /history               - Show the conversation so far")
		fmt.Println("  /export [md|json] [f]  - Export the conversation to stdout or file f")
		fmt.Println("  /quit                  - Exit")
	default:
		fmt.Printf("Unknown command: %s (try /help)\n", input)
	}
	fmt.Println()
	return false
}

func (cs *chatSession) export(args []string) error {
	format := "md"
	if len(args) > 0 {
		format = args[0]
	}

	messages := cs.conversation.Messages()
	var output string
	switch format {
	case "json":
		data, err := storage.ExportJSON(cs.transcript, messages)
		if err != nil {
			return err
		}
		output = string(data)
	case "md", "markdown":
		output = storage.ExportMarkdown(cs.transcript, messages)
	default:
		return fmt.Errorf("unknown format %q (md or json)", format)
	}

	if len(args) > 1 {
		if err := os.WriteFile(args[1], []byte(output), 0o644); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("Exported to " + args[1]))
		return nil
	}
	fmt.Print(output)
	return nil
}
