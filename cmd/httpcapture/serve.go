// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xmidt-org/httpcapture/internal/config"
	"github.com/xmidt-org/httpcapture/internal/server"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	var configFilename string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the capturing HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.ParseConfigfile(configFilename)
			if err != nil {
				return fmt.Errorf("parse config file error: %w", err)
			}

			defer conf.Logging.Close()
			return run(cmd.Context(), conf)
		},
	}

	serve.Flags().StringVarP(&configFilename, "config", "c", "", "config file name")
	return serve
}

func run(parent context.Context, conf *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}

	ctx, done := context.WithCancel(parent)
	defer done()

	g, gctx := errgroup.WithContext(ctx)
	server.New(conf).Start(g, gctx, done)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
