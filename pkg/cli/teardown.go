/*
Copyright © 2025 Insider QA
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/insider-qa/gridctl/pkg/helm"
)

func teardownCmd() *cli.Command {
	return &cli.Command{
		Name:                  "teardown",
		EnableShellCompletion: true,
		Usage:                 "Uninstall the test grid release",
		Description: `Remove the Helm release and every resource it created. Useful after a run
started without --cleanup.

# Examples

  gridctl teardown -n qa --release insider-tests`,
		Flags: []cli.Flag{
			namespaceFlag(),
			releaseFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return helm.NewClient().Uninstall(ctx, cmd.String("release"), cmd.String("namespace"))
		},
	}
}
