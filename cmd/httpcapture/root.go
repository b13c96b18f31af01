// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/spf13/cobra"

const cmdName = "httpcapture"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   cmdName,
		Short: "HTTP server that logs the response bodies it sends",
		Long: `httpcapture serves a set of configured endpoints and, for the paths
selected in its configuration, logs each response's status line and body
once the response has been written.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newVersionCommand())
	return root
}
