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

package grid

import (
	"fmt"
	"time"

	"k8s.io/client-go/kubernetes"
)

// Defaults for resources created by the insider-tests chart.
const (
	defaultPollInterval = 2 * time.Second

	// controllerSelector matches the test-controller Job's pod.
	controllerSelector = "app.kubernetes.io/component=test-controller"

	// runnerContainer is the container inside the controller pod that emits
	// the test results.
	runnerContainer = "test-runner"
)

// Config identifies the chart-created resources the watcher observes. The
// watcher only ever holds names and labels; the cluster owns the objects.
type Config struct {
	Namespace string
	Release   string

	// NodesDeployment is the Deployment backing the Chrome browser nodes.
	// Defaults to "<release>-chrome-node".
	NodesDeployment string

	// JobName is the run-to-completion test-controller Job.
	// Defaults to "<release>-test-controller".
	JobName string

	// PodSelector matches the controller Job's pod for log retrieval.
	PodSelector string

	// Container is the log source container within the controller pod.
	Container string

	// PollInterval is the fixed readiness/pod inspection poll cadence.
	PollInterval time.Duration
}

// withDefaults fills unset fields from the release name.
func (c Config) withDefaults() Config {
	if c.NodesDeployment == "" {
		c.NodesDeployment = fmt.Sprintf("%s-chrome-node", c.Release)
	}
	if c.JobName == "" {
		c.JobName = fmt.Sprintf("%s-test-controller", c.Release)
	}
	if c.PodSelector == "" {
		c.PodSelector = controllerSelector
	}
	if c.Container == "" {
		c.Container = runnerContainer
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	return c
}

// ReadinessStatus is a per-poll snapshot of the browser-node group.
type ReadinessStatus struct {
	Desired    int32    `json:"desired" yaml:"desired"`
	Ready      int32    `json:"ready" yaml:"ready"`
	Conditions []string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Watcher observes the chart-created resources through read-only API calls.
type Watcher struct {
	clientset kubernetes.Interface
	config    Config
}

// NewWatcher creates a Watcher for the given release resources.
func NewWatcher(clientset kubernetes.Interface, config Config) *Watcher {
	return &Watcher{
		clientset: clientset,
		config:    config.withDefaults(),
	}
}
