/*
Copyright © 2025 Insider QA
SPDX-License-Identifier: Apache-2.0
*/
package cli

import "github.com/urfave/cli/v3"

// Flag constructors shared across commands. Each command gets its own flag
// instances; cli flags hold parsed state and must not be shared.

func logLevelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Sources: cli.EnvVars("LOG_LEVEL"),
		Value:   "info",
	}
}

func namespaceFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "namespace",
		Aliases: []string{"n"},
		Usage:   "Kubernetes namespace",
		Sources: cli.EnvVars("GRIDCTL_NAMESPACE"),
		Value:   "default",
	}
}

func releaseFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "release",
		Usage:   "Helm release name",
		Sources: cli.EnvVars("GRIDCTL_RELEASE"),
		Value:   "insider-tests",
	}
}

func kubeconfigFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "kubeconfig",
		Usage:   "Path to kubeconfig (defaults to KUBECONFIG or ~/.kube/config)",
		Sources: cli.EnvVars("KUBECONFIG"),
	}
}

func outputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output file path (default: stdout)",
	}
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Usage:   "Output format (yaml, json, table)",
		Value:   "yaml",
	}
}
