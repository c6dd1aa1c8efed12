package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/semsync/endpoint"
	"github.com/c360studio/semsync/export"
	"github.com/c360studio/semsync/sparql"
)

func endpointCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Manage the SPARQL endpoint registry",
	}
	cmd.AddCommand(endpointAddCmd(g), endpointListCmd(g), endpointRemoveCmd(g), endpointCheckCmd(g))
	return cmd
}

func endpointAddCmd(g *globals) *cobra.Command {
	var (
		label, typ     string
		user, password string
		check          bool
	)
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Register an endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, app *App, _ string) error {
				ep := endpoint.Endpoint{URL: args[0], Label: label, Type: endpoint.Type(typ)}
				if user != "" || password != "" {
					ep.Credentials = &sparql.Credentials{User: user, Password: password}
				}
				if err := app.registry.Add(ctx, ep); err != nil {
					return err
				}
				if check {
					if _, err := app.registry.CheckEndpoint(ctx, ep.URL); err != nil {
						return err
					}
				}
				added, _ := app.registry.Get(ep.URL)
				return printJSON(cmd.OutOrStdout(), redacted([]endpoint.Endpoint{added})[0])
			})
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "Display label")
	cmd.Flags().StringVar(&typ, "type", string(endpoint.TypeQuery), "Endpoint type (query, update)")
	cmd.Flags().StringVar(&user, "user", "", "Basic auth user")
	cmd.Flags().StringVar(&password, "password", "", "Basic auth password")
	cmd.Flags().BoolVar(&check, "check", false, "Probe the endpoint after adding it")
	return cmd
}

func endpointListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(_ context.Context, app *App, _ string) error {
				return printJSON(cmd.OutOrStdout(), redacted(app.registry.List()))
			})
		},
	}
}

func endpointRemoveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <url>",
		Short: "Remove an endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, app *App, _ string) error {
				return app.registry.Remove(ctx, args[0])
			})
		},
	}
}

func endpointCheckCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe every endpoint and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, app *App, _ string) error {
				summary := app.registry.CheckAll(ctx)
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"summary":   summary,
					"endpoints": redacted(app.registry.List()),
				})
			})
		},
	}
}

// redacted hides passwords from printed endpoints.
func redacted(eps []endpoint.Endpoint) []endpoint.Endpoint {
	for i := range eps {
		if eps[i].Credentials != nil {
			eps[i].Credentials = &sparql.Credentials{User: eps[i].Credentials.User, Password: "***"}
		}
	}
	return eps
}

func pullCmd(g *globals) *cobra.Command {
	var graphIRI string
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Merge the remote graph from the active query endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, app *App, _ string) error {
				app.registry.CheckAll(ctx)
				added, err := app.sync.LoadFromEndpoint(ctx, graphIRI)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"added": added, "size": app.store.Size()})
			})
		},
	}
	cmd.Flags().StringVar(&graphIRI, "graph", "", "Named graph to pull (default graph when empty)")
	return cmd
}

func pushCmd(g *globals) *cobra.Command {
	var graphIRI string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Replace a remote graph with the local triples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, app *App, _ string) error {
				app.registry.CheckAll(ctx)
				if err := app.sync.SyncWithEndpoint(ctx, graphIRI, nil); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"graph": graphIRI, "size": app.store.Size()})
			})
		},
	}
	cmd.Flags().StringVar(&graphIRI, "graph", "", "Target named graph IRI (required)")
	return cmd
}

func exportCmd(g *globals) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Serialize the local graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return g.withApp(cmd.Context(), func(_ context.Context, app *App, _ string) error {
				text, err := export.Serialize(app.store.Quads(), f)
				if err != nil {
					return err
				}
				if output == "" {
					_, err = fmt.Fprint(cmd.OutOrStdout(), text)
					return err
				}
				if err := os.WriteFile(output, []byte(text), 0644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				app.logger.Info("Exported graph", "format", f, "path", output, "quads", app.store.Size())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatTurtle), "Output format (turtle, trig, ntriples, nquads)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}
