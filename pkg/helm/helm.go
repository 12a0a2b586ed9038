// Copyright (c) 2025, Insider QA. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package helm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"time"

	"github.com/insider-qa/gridctl/pkg/errors"
)

// Runner executes a command and returns its stdout. Implementations other
// than the default exec-backed one exist for tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands through os/exec, capturing stderr for diagnostics.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", name, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%s %s: %w: %s", name, args[0], err, stderr.String())
		}
		return nil, fmt.Errorf("%s %s: %w", name, args[0], err)
	}
	return out, nil
}

// ReleaseSpec describes a single chart installation.
type ReleaseSpec struct {
	Release    string
	Namespace  string
	ChartPath  string
	ValuesFile string
	// Set entries are passed as typed --set key=value overrides.
	Set map[string]string
	// Timeout bounds the helm --wait window.
	Timeout time.Duration
}

// release mirrors the fields of interest in helm list JSON output.
type release struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Chart     string `json:"chart"`
	Status    string `json:"status"`
}

// Client invokes the helm binary. The zero value is not usable; construct
// with NewClient.
type Client struct {
	runner Runner
}

// NewClient returns a Client backed by the helm binary on PATH.
func NewClient() *Client {
	return &Client{runner: execRunner{}}
}

// NewClientWithRunner returns a Client with a custom command runner.
func NewClientWithRunner(r Runner) *Client {
	return &Client{runner: r}
}

// InstallOrUpgrade installs the chart as a new release, or upgrades it when a
// release with the same name already exists in the namespace. Any failure is
// fatal to the caller; installs are never retried.
func (c *Client) InstallOrUpgrade(ctx context.Context, spec ReleaseSpec) error {
	exists, err := c.releaseExists(ctx, spec.Release, spec.Namespace)
	if err != nil {
		// Probe failures are treated as "not installed" so a cluster without
		// prior releases still gets a fresh install attempt.
		slog.Debug("release lookup failed, assuming not installed",
			"release", spec.Release, "error", err)
		exists = false
	}

	verb := "install"
	if exists {
		verb = "upgrade"
	}

	args := []string{
		verb, spec.Release, spec.ChartPath,
		"--namespace", spec.Namespace,
		"--create-namespace",
	}
	// Deterministic flag order keeps helm invocations reproducible.
	keys := make([]string, 0, len(spec.Set))
	for k := range spec.Set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--set", fmt.Sprintf("%s=%s", k, spec.Set[k]))
	}
	if spec.ValuesFile != "" {
		args = append(args, "-f", spec.ValuesFile)
	}
	if spec.Timeout > 0 {
		args = append(args, "--wait", "--timeout", spec.Timeout.String())
	}

	slog.Info("running helm", "action", verb, "release", spec.Release, "namespace", spec.Namespace)
	if _, err := c.runner.Run(ctx, "helm", args...); err != nil {
		return errors.Wrap(errors.ErrCodeInstallFailed,
			fmt.Sprintf("helm %s of release %q failed", verb, spec.Release), err)
	}
	return nil
}

// Uninstall removes the release from the namespace.
func (c *Client) Uninstall(ctx context.Context, releaseName, namespace string) error {
	slog.Info("running helm uninstall", "release", releaseName, "namespace", namespace)
	_, err := c.runner.Run(ctx, "helm", "uninstall", releaseName, "--namespace", namespace)
	if err != nil {
		return fmt.Errorf("helm uninstall of release %q failed: %w", releaseName, err)
	}
	return nil
}

// releaseExists checks helm list JSON output for the named release.
func (c *Client) releaseExists(ctx context.Context, releaseName, namespace string) (bool, error) {
	out, err := c.runner.Run(ctx, "helm", "list", "--namespace", namespace, "--output", "json")
	if err != nil {
		return false, err
	}

	var releases []release
	if err := json.Unmarshal(out, &releases); err != nil {
		return false, fmt.Errorf("failed to parse helm list output: %w", err)
	}

	for _, rel := range releases {
		if rel.Name == releaseName {
			slog.Debug("found existing release",
				"release", rel.Name, "chart", rel.Chart, "status", rel.Status)
			return true, nil
		}
	}
	return false, nil
}
