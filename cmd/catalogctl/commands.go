package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/web"
)

func newEntitiesCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List the registered entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs := core.All()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), defs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUP\tNAME\tCOLLECTION\tUNIQUE")
			for _, def := range defs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", def.Entity.Group, def.Entity.Name, def.Collection, def.Unique)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print definitions as JSON")
	return cmd
}

func newReadCmd(c *cli) *cobra.Command {
	var top, skip int

	cmd := &cobra.Command{
		Use:   "read ENTITY [ID]",
		Short: "Read one document by ID, or scan the collection",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := core.Record{}
			if len(args) == 2 {
				data[core.ExternalIDField] = args[1]
			}
			query := map[string]string{}
			if top > 0 {
				query[core.QueryTop] = strconv.Itoa(top)
			}
			if skip > 0 {
				query[core.QuerySkip] = strconv.Itoa(skip)
			}
			return c.dispatch(cmd, core.VerbRead, args[0], data, query)
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "maximum documents to return (0 = all)")
	cmd.Flags().IntVar(&skip, "skip", 0, "documents to skip")
	return cmd
}

func newCreateCmd(c *cli) *cobra.Command {
	var raw string

	cmd := &cobra.Command{
		Use:   "create ENTITY",
		Short: "Create a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseData(raw, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return c.dispatch(cmd, core.VerbCreate, args[0], data, nil)
		},
	}
	cmd.Flags().StringVarP(&raw, "data", "d", "", `JSON object, "-" for stdin or "@file"`)
	return cmd
}

func newUpdateCmd(c *cli) *cobra.Command {
	var raw string

	cmd := &cobra.Command{
		Use:   "update ENTITY [ID]",
		Short: "Merge fields into a document",
		Long:  "Merge fields into a document. The ID comes from the argument or the data's ID field.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseData(raw, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(args) == 2 {
				data[core.ExternalIDField] = args[1]
			}
			return c.dispatch(cmd, core.VerbUpdate, args[0], data, nil)
		},
	}
	cmd.Flags().StringVarP(&raw, "data", "d", "", `JSON object, "-" for stdin or "@file"`)
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ENTITY ID",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, core.VerbDelete, args[0], core.Record{core.ExternalIDField: args[1]}, nil)
		},
	}
}

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps := web.Deps{Handlers: c.app.Handlers, Health: c.app.Store}
			if c.cfg.Metrics.Enabled {
				deps.Metrics = c.app.Metrics.Handler()
			}
			server := web.NewServer(c.cfg, deps)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Server.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}
