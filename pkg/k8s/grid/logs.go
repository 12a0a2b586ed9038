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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// RunLogs retrieves the accumulated test-runner container output of the
// controller pod as a single text blob.
func (w *Watcher) RunLogs(ctx context.Context) (string, error) {
	pod, err := w.controllerPod(ctx)
	if err != nil {
		return "", err
	}

	req := w.clientset.CoreV1().Pods(w.config.Namespace).GetLogs(pod.Name, &corev1.PodLogOptions{
		Container: w.config.Container,
	})

	logs, err := req.Stream(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to stream logs from pod %s: %w", pod.Name, err)
	}
	defer logs.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, logs); err != nil {
		return "", fmt.Errorf("failed to read logs from pod %s: %w", pod.Name, err)
	}

	return buf.String(), nil
}

// StreamLogs follows the test-runner container output line by line, writing
// to w until the log stream ends or the context is canceled.
func (w *Watcher) StreamLogs(ctx context.Context, out io.Writer) error {
	pod, err := w.controllerPod(ctx)
	if err != nil {
		return err
	}

	req := w.clientset.CoreV1().Pods(w.config.Namespace).GetLogs(pod.Name, &corev1.PodLogOptions{
		Container: w.config.Container,
		Follow:    true,
	})

	logs, err := req.Stream(ctx)
	if err != nil {
		return fmt.Errorf("failed to stream logs from pod %s: %w", pod.Name, err)
	}
	defer logs.Close()

	scanner := bufio.NewScanner(logs)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			fmt.Fprintln(out, scanner.Text())
		}
	}
	return scanner.Err()
}

// controllerPod finds the pod created by the test-controller Job.
func (w *Watcher) controllerPod(ctx context.Context) (*corev1.Pod, error) {
	pods, err := w.clientset.CoreV1().Pods(w.config.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: w.config.PodSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list controller pods: %w", err)
	}
	if len(pods.Items) == 0 {
		return nil, fmt.Errorf("no pods found for selector %q in namespace %s",
			w.config.PodSelector, w.config.Namespace)
	}

	// The Job runs a single pod; with BackoffLimit retries the most recent
	// one carries the final output.
	latest := &pods.Items[0]
	for i := range pods.Items {
		if pods.Items[i].CreationTimestamp.After(latest.CreationTimestamp.Time) {
			latest = &pods.Items[i]
		}
	}
	return latest, nil
}
