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

package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/distribution/reference"

	"github.com/insider-qa/gridctl/pkg/errors"
	"github.com/insider-qa/gridctl/pkg/helm"
	"github.com/insider-qa/gridctl/pkg/k8s/grid"
)

// Node count bounds for the Chrome browser-node group.
const (
	MinNodeCount = 1
	MaxNodeCount = 5
)

// Request is the immutable description of one deploy-and-run invocation.
// It is constructed once from command-line input and validated before any
// external call is made.
type Request struct {
	ReleaseName string
	Namespace   string
	ChartPath   string
	ValuesFile  string

	// NodeCount is the Chrome browser-node replica count, within
	// [MinNodeCount, MaxNodeCount].
	NodeCount int

	// ChromeImage optionally overrides the chart's browser-node image
	// (repository[:tag] form).
	ChromeImage string

	WaitTimeout  time.Duration
	PollInterval time.Duration

	// Cleanup uninstalls the release on the way out, on both success and
	// failure paths.
	Cleanup bool

	// FollowLogs streams the test-runner output while the run is in flight.
	FollowLogs bool
}

// Validate rejects malformed requests before any network call.
func (r Request) Validate() error {
	if r.ReleaseName == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "release name is required")
	}
	if r.Namespace == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "namespace is required")
	}
	if r.ChartPath == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "chart path is required")
	}
	if r.NodeCount < MinNodeCount || r.NodeCount > MaxNodeCount {
		return errors.New(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("node count %d out of range [%d, %d]", r.NodeCount, MinNodeCount, MaxNodeCount))
	}
	if r.WaitTimeout <= 0 {
		return errors.New(errors.ErrCodeInvalidRequest, "wait timeout must be positive")
	}
	if r.ChromeImage != "" {
		if _, err := reference.ParseNormalizedNamed(r.ChromeImage); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid chrome image reference %q", r.ChromeImage), err)
		}
	}
	return nil
}

// Installer is the package-manager capability the pipeline depends on.
type Installer interface {
	InstallOrUpgrade(ctx context.Context, spec helm.ReleaseSpec) error
	Uninstall(ctx context.Context, releaseName, namespace string) error
}

// Cluster is the orchestration-platform capability the pipeline depends on.
// Implementations are read-only observers of the installed release.
type Cluster interface {
	WaitForNodesReady(ctx context.Context, timeout time.Duration) (grid.ReadinessStatus, error)
	WaitForRun(ctx context.Context, timeout time.Duration) error
	RunLogs(ctx context.Context) (string, error)
	StreamLogs(ctx context.Context, out io.Writer) error
	Info(ctx context.Context) (*grid.ClusterInfo, error)
}

// Stage is a pipeline state machine state.
type Stage string

const (
	StageInit         Stage = "Init"
	StageInstalling   Stage = "Installing"
	StageWaitingReady Stage = "WaitingReady"
	StageRunning      Stage = "Running"
	StageCollecting   Stage = "Collecting"
	StageCleaning     Stage = "Cleaning"
	StageDone         Stage = "Done"
	StageAborted      Stage = "Aborted"
)
