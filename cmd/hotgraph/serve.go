package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hotgraph/internal/logger"
	"hotgraph/internal/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio, reloading snapshots as they are published",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadProject()
	if err != nil {
		return err
	}
	schema, err := loadOptionalSchema()
	if err != nil {
		return err
	}

	handle, watcher, err := openGraph(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := handle.Close(context.Background()); err != nil {
			logger.Logger.Warnw("Closing snapshot failed", "error", err)
		}
	}()

	server := mcp.NewServer(handle, schema, version)
	if watcher != nil {
		server.WithWatcher(watcher)
	}

	// The client closing stdin ends the server; that also stops the watcher.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if watcher != nil {
		g.Go(func() error {
			watcher.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		defer cancel()
		if err := server.Run(gctx, &sdk.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return g.Wait()
}
