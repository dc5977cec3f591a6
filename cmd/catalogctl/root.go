package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalog/internal/app"
	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/logging"
)

var errOperationFailed = errors.New("operation failed")

// cli carries flag values and the app opened by PersistentPreRunE.
type cli struct {
	envFile    string
	driver     string
	sqlitePath string
	catalog    string
	session    string
	user       string

	cfg *config.Config
	app *app.App
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}

	root := &cobra.Command{
		Use:   "catalogctl",
		Short: "Run catalog operations against the configured store",
		Long: `catalogctl reads the same environment as the server, opens the selected
store, registers the entity catalog and runs one CRUD operation. The
operation envelope is printed as indented JSON; a failed operation exits 1.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.open,
	}

	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&c.driver, "driver", "", "store driver override: mongo, postgres, sqlite")
	root.PersistentFlags().StringVar(&c.sqlitePath, "sqlite-path", "", "sqlite database file override")
	root.PersistentFlags().StringVar(&c.catalog, "catalog", "", "catalog YAML override")
	root.PersistentFlags().StringVar(&c.session, "session", "", "session label reported in the envelope")
	root.PersistentFlags().StringVar(&c.user, "user", "", "logged-user label reported in the envelope")

	root.AddCommand(
		newEntitiesCmd(c),
		newReadCmd(c),
		newCreateCmd(c),
		newUpdateCmd(c),
		newDeleteCmd(c),
		newServeCmd(c),
	)
	return root, c
}

// open loads configuration and wires the app before any subcommand runs.
// Flag overrides are applied through the environment so config.Load sees them.
func (c *cli) open(cmd *cobra.Command, _ []string) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	if c.driver != "" {
		os.Setenv("STORE_DRIVER", c.driver)
	}
	if c.sqlitePath != "" {
		os.Setenv("SQLITE_PATH", c.sqlitePath)
	}
	if c.catalog != "" {
		os.Setenv("CATALOG_FILE", c.catalog)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg

	// Operational logs go to stderr so stdout stays a clean envelope.
	logger := logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

// close releases the app. It runs after every command, including failed ones,
// which cobra's post-run hooks skip.
func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close(context.Background())
	c.app = nil
	core.Clear()
	return err
}

func (c *cli) context(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if c.session != "" {
		ctx = core.ContextWithSession(ctx, c.session)
	}
	if c.user != "" {
		ctx = core.ContextWithUser(ctx, c.user)
	}
	return ctx
}

// dispatch runs one verb and prints its envelope.
func (c *cli) dispatch(cmd *cobra.Command, verb core.Verb, entity string, data core.Record, query map[string]string) error {
	resp, err := c.app.Dispatch(c.context(cmd), verb, entity, data, query)
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %d %s", errOperationFailed, resp.Status, resp.MessageDEV)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseData decodes the --data flag. "-" reads stdin and "@path" reads a file.
func parseData(raw string, stdin io.Reader) (core.Record, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return core.Record{}, nil
	case raw == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = string(b)
	case strings.HasPrefix(raw, "@"):
		b, err := os.ReadFile(raw[1:])
		if err != nil {
			return nil, fmt.Errorf("read data file: %w", err)
		}
		raw = string(b)
	}

	var data core.Record
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("data must be a JSON object: %w", err)
	}
	if data == nil {
		data = core.Record{}
	}
	return data, nil
}
