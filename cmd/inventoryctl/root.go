package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JonMunkholm/stockroom/internal/config"
	"github.com/JonMunkholm/stockroom/internal/core"
	"github.com/JonMunkholm/stockroom/internal/logging"
	"github.com/JonMunkholm/stockroom/internal/store"
)

// Viper keys. Each is bound to a flag and to INVENTORYCTL_<KEY>.
const (
	keyEnvFile  = "env_file"
	keyBackend  = "backend"
	keyWorkbook = "workbook"
	keyDriver   = "db_driver"
	keyDBURL    = "db_url"
	keyLogLevel = "log_level"
	keyJSON     = "json"
)

// app holds the state shared by every command.
type app struct {
	root   *cobra.Command
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer

	service *core.Service
}

// rejectedError marks a transaction the engine refused, as opposed to a
// failure to run it.
type rejectedError struct {
	res core.Result
}

func (e *rejectedError) Error() string {
	if e.res.Code != "" {
		return fmt.Sprintf("%s (code %s)", e.res.Message, e.res.Code)
	}
	return e.res.Message
}

func exitCode(err error) int {
	var rej *rejectedError
	if errors.As(err, &rej) {
		return exitRejected
	}
	return exitSysError
}

func newApp(out, errOut io.Writer) *app {
	a := &app{v: viper.New(), out: out, errOut: errOut}

	a.root = &cobra.Command{
		Use:   "inventoryctl",
		Short: "Inspect and update inventory from the command line",
		Long: `inventoryctl applies sales, restocks and entry edits to the inventory
store configured for the server (STORE_BACKEND, WORKBOOK_PATH, DATABASE_URL).

Flags override environment variables; INVENTORYCTL_* variables override the
server's own settings for this tool only.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE: a.open,
	}

	flags := a.root.PersistentFlags()
	flags.String("env-file", ".env", "dotenv file to load before reading the environment")
	flags.String("backend", "", "store backend: spreadsheet or relational")
	flags.String("workbook", "", "workbook path for the spreadsheet backend")
	flags.String("db-driver", "", "database driver: pgx, postgres or sqlite")
	flags.String("db-url", "", "database connection string")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.Bool("json", false, "output as JSON")

	for key, flag := range map[string]string{
		keyEnvFile:  "env-file",
		keyBackend:  "backend",
		keyWorkbook: "workbook",
		keyDriver:   "db-driver",
		keyDBURL:    "db-url",
		keyLogLevel: "log-level",
		keyJSON:     "json",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}
	a.v.SetEnvPrefix("INVENTORYCTL")
	a.v.AutomaticEnv()

	a.root.AddCommand(
		a.categoriesCmd(),
		a.showCmd(),
		a.stockCmd("sell", "Record a sale", a.sell),
		a.stockCmd("restock", "Add stock to an item", a.restock),
		a.addCmd(),
		a.deleteEntryCmd(),
		a.clearCmd(),
		a.deleteCategoryCmd(),
		a.statusCmd(),
	)
	return a
}

// loadConfig reads the server configuration and applies overrides.
func (a *app) loadConfig() (*config.Config, error) {
	if path := a.v.GetString(keyEnvFile); path != "" {
		// A missing file is fine; the environment may be complete.
		_ = godotenv.Overload(path)
	}

	cfg, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		key string
		dst *string
	}{
		{keyBackend, &cfg.Store.Backend},
		{keyWorkbook, &cfg.Store.WorkbookPath},
		{keyDriver, &cfg.Database.Driver},
		{keyDBURL, &cfg.Database.URL},
	}
	for _, o := range overrides {
		if s := a.v.GetString(o.key); s != "" {
			*o.dst = s
		}
	}
	return cfg, cfg.Validate()
}

func (a *app) open(cmd *cobra.Command, args []string) error {
	slog.SetDefault(logging.New(a.errOut, a.v.GetString(keyLogLevel), "text"))

	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return fmt.Errorf("open store: %w", err)
	}

	a.service = core.NewService(st, core.Options{
		SerializeWrites:  cfg.Engine.SerializeWrites,
		WriteWait:        cfg.Engine.WriteWaitTime,
		OperationTimeout: cfg.Engine.OperationTimeout,
		JournalSize:      cfg.Engine.JournalSize,
	})

	loadCtx, cancel := context.WithTimeout(ctx, core.DefaultLoadTimeout)
	defer cancel()
	if err := a.service.Load(loadCtx); err != nil {
		a.service.Shutdown(ctx)
		a.service = nil
		return fmt.Errorf("load inventory: %w", err)
	}
	return nil
}

// execute runs the command line and closes the store whether or not the
// command succeeded. Cobra skips post-run hooks after a failed RunE.
func (a *app) execute() error {
	err := a.root.Execute()
	if a.service != nil {
		if cerr := a.service.Shutdown(context.Background()); err == nil {
			err = cerr
		}
		a.service = nil
	}
	return err
}

func (a *app) jsonOutput() bool { return a.v.GetBool(keyJSON) }
