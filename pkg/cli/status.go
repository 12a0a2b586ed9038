/*
Copyright © 2025 Insider QA
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/insider-qa/gridctl/pkg/k8s/client"
	"github.com/insider-qa/gridctl/pkg/k8s/grid"
	"github.com/insider-qa/gridctl/pkg/serializer"
)

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:                  "status",
		EnableShellCompletion: true,
		Usage:                 "Show the deployed grid workloads in the namespace",
		Description: `List the Deployments, Jobs, and Services the release created, with
readiness and completion counts.

# Examples

  gridctl status -n qa
  gridctl status -n qa -t table`,
		Flags: []cli.Flag{
			namespaceFlag(),
			releaseFlag(),
			kubeconfigFlag(),
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat := serializer.Format(cmd.String("format"))
			if outFormat.IsUnknown() {
				return fmt.Errorf("unknown output format: %q", outFormat)
			}

			clientset, err := client.Build(cmd.String("kubeconfig"))
			if err != nil {
				return err
			}

			watcher := grid.NewWatcher(clientset, grid.Config{
				Namespace: cmd.String("namespace"),
				Release:   cmd.String("release"),
			})

			info, err := watcher.Info(ctx)
			if err != nil {
				return err
			}

			writer := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			return writer.Serialize(info)
		},
	}
}
