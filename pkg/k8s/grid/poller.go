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
	"context"
	"fmt"
	"log/slog"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/insider-qa/gridctl/pkg/errors"
)

// WaitForNodesReady polls the browser-node Deployment at the configured
// interval until every desired replica reports ready or the timeout elapses.
// Each poll is a single read; nothing is mutated. There is no partial-success
// path: parallel test execution needs every declared node.
func (w *Watcher) WaitForNodesReady(ctx context.Context, timeout time.Duration) (ReadinessStatus, error) {
	var last ReadinessStatus

	err := wait.PollUntilContextTimeout(ctx, w.config.PollInterval, timeout, true,
		func(ctx context.Context) (bool, error) {
			status, err := w.nodesStatus(ctx)
			if err != nil {
				// Deployment may not be visible yet right after install.
				slog.Debug("browser-node status read failed, retrying", "error", err)
				return false, nil
			}
			last = status

			slog.Info("browser nodes",
				"ready", status.Ready,
				"desired", status.Desired)

			return status.Desired > 0 && status.Ready == status.Desired, nil
		},
	)
	if err != nil {
		return last, errors.WrapWithContext(errors.ErrCodeReadyTimeout,
			fmt.Sprintf("browser nodes not ready within %v (%d/%d)", timeout, last.Ready, last.Desired),
			err,
			map[string]any{"desired": last.Desired, "ready": last.Ready, "conditions": last.Conditions})
	}
	return last, nil
}

// nodesStatus reads a single ReadinessStatus snapshot from the Deployment.
func (w *Watcher) nodesStatus(ctx context.Context) (ReadinessStatus, error) {
	dep, err := w.clientset.AppsV1().Deployments(w.config.Namespace).
		Get(ctx, w.config.NodesDeployment, metav1.GetOptions{})
	if err != nil {
		return ReadinessStatus{}, fmt.Errorf("failed to get deployment %s: %w", w.config.NodesDeployment, err)
	}

	desired := int32(1)
	if dep.Spec.Replicas != nil {
		desired = *dep.Spec.Replicas
	}

	conditions := make([]string, 0, len(dep.Status.Conditions))
	for _, c := range dep.Status.Conditions {
		conditions = append(conditions, fmt.Sprintf("%s=%s", c.Type, c.Status))
	}

	return ReadinessStatus{
		Desired:    desired,
		Ready:      dep.Status.ReadyReplicas,
		Conditions: conditions,
	}, nil
}
