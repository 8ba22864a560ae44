package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/prepmate/interview-client/internal/backend"
	"github.com/prepmate/interview-client/internal/config"
	"github.com/prepmate/interview-client/internal/observability"
	"github.com/prepmate/interview-client/internal/store"
)

// AppContext holds all shared dependencies for CLI commands.
type AppContext struct {
	Config  *config.Config
	Store   *store.Store
	Backend *backend.Client
	Logger  zerolog.Logger
}

// appOverride replaces NewAppContext in tests
var appOverride *AppContext

// NewAppContext loads configuration, opens the local store and builds
// the backend client on top of the stored credentials.
func NewAppContext(ctx context.Context) (*AppContext, error) {
	if appOverride != nil {
		return appOverride, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	return newApp(cfg, st), nil
}

func newApp(cfg *config.Config, st *store.Store) *AppContext {
	return &AppContext{
		Config:  cfg,
		Store:   st,
		Backend: backend.NewClient(cfg, st.Credentials()),
		Logger:  observability.WithComponent("cli"),
	}
}

// Close releases all resources held by the AppContext.
func (a *AppContext) Close() error {
	if a == appOverride {
		return nil
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// withApp opens the AppContext for the duration of one command
func withApp(fn func(cmd *cobra.Command, args []string, app *AppContext) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := NewAppContext(commandContext(cmd))
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(cmd, args, app)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
