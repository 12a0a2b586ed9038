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

// Package pipeline runs the deploy-and-test workflow: install the release,
// wait for the browser nodes, follow the test run to a terminal state,
// collect the results, and optionally tear everything down.
//
// The pipeline is single-threaded and sequential; all scheduling concurrency
// belongs to the cluster, which the pipeline only observes. Both external
// capabilities (package manager and cluster) are injected so the workflow is
// testable without helm or a live cluster.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/distribution/reference"
	"golang.org/x/sync/errgroup"

	"github.com/insider-qa/gridctl/pkg/errors"
	"github.com/insider-qa/gridctl/pkg/helm"
	"github.com/insider-qa/gridctl/pkg/report"
)

// Pipeline executes one Request through the stage machine
// Init → Installing → WaitingReady → Running → Collecting → (Cleaning) → Done,
// with Aborted absorbing any stage failure. Cleaning is entered from Aborted
// too when cleanup was requested; the pipeline always ends on Done or Aborted.
type Pipeline struct {
	installer Installer
	cluster   Cluster
	request   Request
	stage     Stage

	// logOut receives streamed test-runner output in follow mode.
	logOut io.Writer
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogOutput redirects streamed run logs (default os.Stdout).
func WithLogOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.logOut = w }
}

// New validates the request and builds a Pipeline over the injected
// capabilities.
func New(installer Installer, cluster Cluster, request Request, opts ...Option) (*Pipeline, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		installer: installer,
		cluster:   cluster,
		request:   request,
		stage:     StageInit,
		logOut:    os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Stage returns the pipeline's current stage.
func (p *Pipeline) Stage() Stage {
	return p.stage
}

// Run executes the pipeline. The returned RunOutcome is non-nil whenever the
// run reached a terminal state, including failed and timed-out runs; err is
// nil only when the whole pipeline succeeded.
func (p *Pipeline) Run(ctx context.Context) (outcome *report.RunOutcome, err error) {
	if p.request.Cleanup {
		// The finalizer fires on every exit path, success and abort alike.
		// It deliberately survives context cancellation so an interrupted
		// run still releases its resources.
		defer func() {
			p.setStage(StageCleaning)
			cleanupCtx := context.WithoutCancel(ctx)
			if cerr := p.installer.Uninstall(cleanupCtx, p.request.ReleaseName, p.request.Namespace); cerr != nil {
				// Best effort: a cleanup failure never masks the run result.
				slog.Error("cleanup failed", "release", p.request.ReleaseName, "error", cerr)
			}
			// Cleaning is transient; land back on a terminal marker.
			if err == nil {
				p.setStage(StageDone)
			} else {
				p.setStage(StageAborted)
			}
		}()
	}

	if err = p.install(ctx); err != nil {
		p.setStage(StageAborted)
		return nil, err
	}

	if err = p.waitReady(ctx); err != nil {
		p.setStage(StageAborted)
		return nil, err
	}

	p.logClusterInfo(ctx)

	outcome, err = p.watchRun(ctx)
	if err != nil {
		p.setStage(StageAborted)
		return outcome, err
	}

	if !p.request.Cleanup {
		p.setStage(StageDone)
	}
	return outcome, nil
}

func (p *Pipeline) install(ctx context.Context) error {
	p.setStage(StageInstalling)

	spec := helm.ReleaseSpec{
		Release:    p.request.ReleaseName,
		Namespace:  p.request.Namespace,
		ChartPath:  p.request.ChartPath,
		ValuesFile: p.request.ValuesFile,
		Set:        p.overrides(),
		Timeout:    p.request.WaitTimeout,
	}
	return p.installer.InstallOrUpgrade(ctx, spec)
}

// overrides builds the typed --set parameters from the validated request.
func (p *Pipeline) overrides() map[string]string {
	set := map[string]string{
		"chromeNode.nodeCount": strconv.Itoa(p.request.NodeCount),
	}
	if p.request.ChromeImage != "" {
		repo, tag, digest := splitImageRef(p.request.ChromeImage)
		set["chromeNode.image.repository"] = repo
		if tag != "" {
			set["chromeNode.image.tag"] = tag
		}
		if digest != "" {
			set["chromeNode.image.digest"] = digest
		}
	}
	return set
}

func (p *Pipeline) waitReady(ctx context.Context) error {
	p.setStage(StageWaitingReady)

	status, err := p.cluster.WaitForNodesReady(ctx, p.request.WaitTimeout)
	if err != nil {
		return err
	}
	slog.Info("all browser nodes ready", "count", status.Ready)
	return nil
}

// logClusterInfo reports the deployed workloads; failures here never abort
// the pipeline.
func (p *Pipeline) logClusterInfo(ctx context.Context) {
	info, err := p.cluster.Info(ctx)
	if err != nil {
		slog.Warn("failed to read cluster info", "error", err)
		return
	}
	for _, d := range info.Deployments {
		slog.Info("deployment", "name", d.Name, "ready", d.Ready, "replicas", d.Replicas)
	}
	for _, j := range info.Jobs {
		slog.Info("job", "name", j.Name, "active", j.Active, "succeeded", j.Succeeded, "failed", j.Failed)
	}
	for _, s := range info.Services {
		slog.Info("service", "name", s.Name, "clusterIP", s.ClusterIP, "ports", strings.Join(s.Ports, ","))
	}
}

// watchRun follows the run to a terminal state and collects its results.
// A RunOutcome is returned for every terminal state; err reflects the run
// result (nil only for a successful run).
func (p *Pipeline) watchRun(ctx context.Context) (*report.RunOutcome, error) {
	p.setStage(StageRunning)

	var runErr error
	if p.request.FollowLogs {
		runErr = p.watchWithLogStream(ctx)
	} else {
		runErr = p.cluster.WaitForRun(ctx, p.request.WaitTimeout)
	}

	var state report.State
	switch errors.CodeOf(runErr) {
	case "":
		state = report.StateSucceeded
	case errors.ErrCodeRunFailed:
		state = report.StateFailed
	case errors.ErrCodeRunTimeout:
		state = report.StateTimedOut
	default:
		return nil, runErr
	}

	p.setStage(StageCollecting)
	logText := ""
	if state != report.StateTimedOut {
		var err error
		logText, err = p.cluster.RunLogs(ctx)
		if err != nil {
			slog.Warn("failed to collect run logs", "error", err)
		}
	}

	outcome := report.New(state, logText)
	slog.Info("test run finished",
		"state", outcome.State,
		"passed", outcome.Passed,
		"failed", outcome.Failed,
		"durationSeconds", outcome.Duration,
		"parsed", outcome.Parsed)
	return &outcome, runErr
}

// watchWithLogStream runs the job watch with a concurrent log stream. The
// controller pod may not exist yet when the watch starts, so failed stream
// attempts are retried until the watch returns; stream errors are
// informational only.
func (p *Pipeline) watchWithLogStream(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	interval := p.request.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	g, gctx := errgroup.WithContext(streamCtx)
	g.Go(func() error {
		for {
			serr := p.cluster.StreamLogs(gctx, p.logOut)
			if serr == nil || gctx.Err() != nil {
				return nil
			}
			slog.Debug("log stream not available yet, retrying", "error", serr)
			select {
			case <-gctx.Done():
				return nil
			case <-time.After(interval):
			}
		}
	})

	runErr := p.cluster.WaitForRun(ctx, p.request.WaitTimeout)
	cancel()
	_ = g.Wait()
	return runErr
}

func (p *Pipeline) setStage(s Stage) {
	slog.Debug("pipeline stage", "from", p.stage, "to", s)
	p.stage = s
}

// splitImageRef breaks an image reference into its repository, tag, and
// digest parts. Registry ports and digests survive the split; the ref was
// already validated, so a parse failure degrades to repository-only.
func splitImageRef(ref string) (repo, tag, digest string) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return ref, "", ""
	}
	repo = reference.FamiliarName(named)
	if t, ok := named.(reference.Tagged); ok {
		tag = t.Tag()
	}
	if d, ok := named.(reference.Digested); ok {
		digest = d.Digest().String()
	}
	return repo, tag, digest
}
