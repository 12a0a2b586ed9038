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

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/insider-qa/gridctl/pkg/errors"
)

// unrecoverableWaitReasons are container waiting states that will never
// resolve on their own. Seeing one fails the run immediately instead of
// burning the full wait window.
var unrecoverableWaitReasons = map[string]bool{
	"ImagePullBackOff":           true,
	"ErrImagePull":               true,
	"InvalidImageName":           true,
	"CreateContainerConfigError": true,
	"CreateContainerError":       true,
}

// WaitForRun watches the test-controller Job until it reaches a terminal
// state or the timeout elapses. A nil return means the run succeeded; a
// failed or stuck run returns a RUN_FAILED error, a timeout RUN_TIMEOUT.
func (w *Watcher) WaitForRun(ctx context.Context, timeout time.Duration) error {
	watcher, err := w.clientset.BatchV1().Jobs(w.config.Namespace).Watch(
		ctx,
		metav1.ListOptions{
			FieldSelector: fmt.Sprintf("metadata.name=%s", w.config.JobName),
			Watch:         true,
		},
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to watch test-controller job", err)
	}
	defer watcher.Stop()

	// The Job the release created may already be terminal by the time the
	// watch starts; check once up front.
	if done, err := w.checkJob(ctx); done || err != nil {
		return err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The pod inspection ticker catches runs that never start (for example
	// an image pull failure) and therefore never produce a Job event.
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeoutCtx.Done():
			return errors.Wrap(errors.ErrCodeRunTimeout,
				fmt.Sprintf("test run did not finish within %v", timeout), timeoutCtx.Err())

		case <-ticker.C:
			if err := w.checkPodStuck(ctx); err != nil {
				return err
			}

		case event, ok := <-watcher.ResultChan():
			if !ok {
				return errors.New(errors.ErrCodeInternal, "job watch channel closed unexpectedly")
			}
			if event.Type == watch.Error {
				return errors.New(errors.ErrCodeInternal, fmt.Sprintf("job watch error: %v", event.Object))
			}

			job, ok := event.Object.(*batchv1.Job)
			if !ok {
				continue
			}

			slog.Debug("test-controller job event",
				"active", job.Status.Active,
				"succeeded", job.Status.Succeeded,
				"failed", job.Status.Failed)

			if done, err := jobTerminal(job); done {
				return err
			}
		}
	}
}

// checkJob reads the Job once and reports whether it is already terminal.
func (w *Watcher) checkJob(ctx context.Context) (bool, error) {
	job, err := w.clientset.BatchV1().Jobs(w.config.Namespace).
		Get(ctx, w.config.JobName, metav1.GetOptions{})
	if err != nil {
		// Not an error: the watch will pick the Job up once it appears.
		slog.Debug("test-controller job not readable yet", "error", err)
		return false, nil
	}
	return jobTerminal(job)
}

// jobTerminal returns (true, nil) for a completed Job and (true, error) for a
// failed one.
func jobTerminal(job *batchv1.Job) (bool, error) {
	for _, condition := range job.Status.Conditions {
		if condition.Status != corev1.ConditionTrue {
			continue
		}
		switch condition.Type {
		case batchv1.JobComplete:
			return true, nil
		case batchv1.JobFailed:
			return true, errors.New(errors.ErrCodeRunFailed,
				fmt.Sprintf("test run failed: %s", condition.Message))
		}
	}
	return false, nil
}

// checkPodStuck inspects the controller pod for waiting states that cannot
// recover, such as image pull failures.
func (w *Watcher) checkPodStuck(ctx context.Context) error {
	pods, err := w.clientset.CoreV1().Pods(w.config.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: w.config.PodSelector,
	})
	if err != nil || len(pods.Items) == 0 {
		return nil // pod not created yet, keep waiting
	}

	for i := range pods.Items {
		pod := &pods.Items[i]
		for _, cs := range pod.Status.ContainerStatuses {
			if cs.State.Waiting == nil {
				continue
			}
			if unrecoverableWaitReasons[cs.State.Waiting.Reason] {
				return errors.New(errors.ErrCodeRunFailed,
					fmt.Sprintf("test run cannot start: pod %s container %s stuck in %s: %s",
						pod.Name, cs.Name, cs.State.Waiting.Reason, cs.State.Waiting.Message))
			}
		}
	}
	return nil
}
