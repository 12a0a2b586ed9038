/*
Copyright © 2025 Insider QA
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/insider-qa/gridctl/pkg/helm"
	"github.com/insider-qa/gridctl/pkg/k8s/client"
	"github.com/insider-qa/gridctl/pkg/k8s/grid"
	"github.com/insider-qa/gridctl/pkg/pipeline"
	"github.com/insider-qa/gridctl/pkg/serializer"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:                  "run",
		EnableShellCompletion: true,
		Usage:                 "Install the test grid, run the test suite, and report results",
		Description: `Deploy the insider-tests Helm chart, wait for the Chrome browser nodes to
become ready, follow the test-controller Job to completion, and print a
parsed result summary.

The pipeline is sequential: install → wait ready → run → collect → (cleanup).
Any stage failure aborts with a non-zero exit; when --cleanup is set the
release is uninstalled on both success and failure paths.

# Examples

Run with two browser nodes and clean up afterwards:
  gridctl run --node-count 2 --cleanup

Run against a custom values file and stream test output live:
  gridctl run --values-file values-aws.yaml --follow

Write the summary as JSON to a file:
  gridctl run --cleanup -o results.json -t json`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "node-count",
				Usage:   fmt.Sprintf("Number of Chrome browser nodes [%d-%d]", pipeline.MinNodeCount, pipeline.MaxNodeCount),
				Sources: cli.EnvVars("GRIDCTL_NODE_COUNT"),
				Value:   2,
			},
			&cli.IntFlag{
				Name:  "wait-timeout",
				Usage: "Seconds to wait for readiness and for the run to finish",
				Value: 300,
			},
			&cli.BoolFlag{
				Name:  "cleanup",
				Usage: "Uninstall the release after the run, regardless of outcome",
			},
			&cli.StringFlag{
				Name:  "helm-chart-path",
				Usage: "Path to the Helm chart",
				Value: "./helm/insider-tests",
			},
			&cli.StringFlag{
				Name:  "values-file",
				Usage: "Custom Helm values file (e.g., values-aws.yaml)",
			},
			&cli.StringFlag{
				Name:  "chrome-image",
				Usage: "Override the browser-node image (repository[:tag])",
			},
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "Readiness poll interval",
				Value: 2 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "follow",
				Usage: "Stream test-runner output while the run is in flight",
			},
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

			request := buildRequestFromCmd(cmd)

			clientset, err := client.Build(cmd.String("kubeconfig"))
			if err != nil {
				return err
			}

			watcher := grid.NewWatcher(clientset, grid.Config{
				Namespace:    request.Namespace,
				Release:      request.ReleaseName,
				PollInterval: cmd.Duration("poll-interval"),
			})

			p, err := pipeline.New(helm.NewClient(), watcher, request)
			if err != nil {
				return err
			}

			outcome, runErr := p.Run(ctx)
			if outcome != nil {
				writer := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
				if serr := writer.Serialize(outcome); serr != nil {
					return fmt.Errorf("failed to write run summary: %w", serr)
				}
			}
			return runErr
		},
	}
}

// buildRequestFromCmd maps command flags onto an immutable pipeline request.
func buildRequestFromCmd(cmd *cli.Command) pipeline.Request {
	return pipeline.Request{
		ReleaseName:  cmd.String("release"),
		Namespace:    cmd.String("namespace"),
		ChartPath:    cmd.String("helm-chart-path"),
		ValuesFile:   cmd.String("values-file"),
		NodeCount:    int(cmd.Int("node-count")),
		ChromeImage:  cmd.String("chrome-image"),
		WaitTimeout:  time.Duration(cmd.Int("wait-timeout")) * time.Second,
		PollInterval: cmd.Duration("poll-interval"),
		Cleanup:      cmd.Bool("cleanup"),
		FollowLogs:   cmd.Bool("follow"),
	}
}
