package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/michaelbrown/ibrl/internal/agent"
	"github.com/michaelbrown/ibrl/internal/config"
	"github.com/michaelbrown/ibrl/internal/functions"
	"github.com/michaelbrown/ibrl/internal/logger"
	"github.com/michaelbrown/ibrl/internal/session"
	"github.com/michaelbrown/ibrl/internal/storage"
	"github.com/michaelbrown/ibrl/internal/storage/sqlite"
)

// app is everything a command needs, wired from config and flags.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	credentials storage.CredentialStore
	session     *session.Context
	persona     *agent.Persona
	agent       *agent.Agent

	providerName string
	provider     config.ProviderConfig
	model        string

	closers []io.Closer
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newApp builds the full stack. Persona settings override config; flags
// override both.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	log, logCloser, err := logger.Setup(cfg.Log)
	if err != nil {
		return nil, err
	}
	a.logger = log
	a.closers = append(a.closers, logCloser)

	if err := a.resolvePersona(); err != nil {
		a.Close()
		return nil, err
	}

	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	a.closers = append(a.closers, store)
	a.credentials = storage.WithDefaults(store, map[string]string{storage.OpenAIKeyName: a.provider.APIKey})

	a.session, err = session.New(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.agent = a.newAgent(a.session)

	log.Debug("app ready",
		"provider", a.providerName,
		"model", a.model,
		"persona", a.persona.Name,
		"wallet", a.session.Wallet != nil,
	)
	return a, nil
}

// newAgent builds an agent whose functions run against sc.
func (a *app) newAgent(sc *session.Context) *agent.Agent {
	temperature := a.cfg.Agent.Temperature
	if a.persona.Temperature > 0 {
		temperature = a.persona.Temperature
	}
	factory := agent.OpenAIFactory(a.provider.BaseURL, a.model, temperature)
	ag := agent.New(a.persona, functions.NewRegistry(sc), a.credentials, factory, a.logger)
	ag.SetHistoryLimits(a.cfg.Agent.HistoryMaxTokens, a.cfg.Agent.HistoryMaxMessages)
	return ag
}

func (a *app) resolvePersona() error {
	a.persona = agent.DefaultPersona()
	path := personaFlag
	if path == "" {
		path = a.cfg.Agent.PersonaFile
	}
	if path != "" {
		p, err := agent.LoadPersona(path)
		if err != nil {
			return fmt.Errorf("loading persona: %w", err)
		}
		a.persona = p
	}

	a.providerName = providerFlag
	if a.providerName == "" {
		a.providerName = a.persona.Provider
	}
	if a.providerName == "" {
		a.providerName = a.cfg.DefaultProvider
	}
	provider, err := a.cfg.Provider(a.providerName)
	if err != nil {
		return err
	}
	a.provider = provider

	a.model = modelFlag
	if a.model == "" {
		a.model = a.persona.Model
	}
	if a.model == "" {
		a.model = provider.Models["default"]
	}
	return nil
}

// Close releases storage and the log file in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.closers = nil
}
