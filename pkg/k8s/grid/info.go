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

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DeploymentInfo summarizes one Deployment in the namespace.
type DeploymentInfo struct {
	Name     string `json:"name" yaml:"name"`
	Ready    int32  `json:"ready" yaml:"ready"`
	Replicas int32  `json:"replicas" yaml:"replicas"`
}

// JobInfo summarizes one Job in the namespace.
type JobInfo struct {
	Name      string `json:"name" yaml:"name"`
	Active    int32  `json:"active" yaml:"active"`
	Succeeded int32  `json:"succeeded" yaml:"succeeded"`
	Failed    int32  `json:"failed" yaml:"failed"`
}

// ServiceInfo summarizes one Service in the namespace.
type ServiceInfo struct {
	Name      string   `json:"name" yaml:"name"`
	ClusterIP string   `json:"clusterIP" yaml:"clusterIP"`
	Ports     []string `json:"ports" yaml:"ports"`
}

// ClusterInfo is a read-only snapshot of the namespace's workloads.
type ClusterInfo struct {
	Namespace   string           `json:"namespace" yaml:"namespace"`
	Deployments []DeploymentInfo `json:"deployments" yaml:"deployments"`
	Jobs        []JobInfo        `json:"jobs" yaml:"jobs"`
	Services    []ServiceInfo    `json:"services" yaml:"services"`
}

// Info lists the Deployments, Jobs, and Services in the namespace.
func (w *Watcher) Info(ctx context.Context) (*ClusterInfo, error) {
	info := &ClusterInfo{Namespace: w.config.Namespace}

	deployments, err := w.clientset.AppsV1().Deployments(w.config.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	for _, dep := range deployments.Items {
		info.Deployments = append(info.Deployments, DeploymentInfo{
			Name:     dep.Name,
			Ready:    dep.Status.ReadyReplicas,
			Replicas: dep.Status.Replicas,
		})
	}

	jobs, err := w.clientset.BatchV1().Jobs(w.config.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	for _, job := range jobs.Items {
		info.Jobs = append(info.Jobs, JobInfo{
			Name:      job.Name,
			Active:    job.Status.Active,
			Succeeded: job.Status.Succeeded,
			Failed:    job.Status.Failed,
		})
	}

	services, err := w.clientset.CoreV1().Services(w.config.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	for _, svc := range services.Items {
		if svc.Name == "kubernetes" {
			continue
		}
		ports := make([]string, 0, len(svc.Spec.Ports))
		for _, p := range svc.Spec.Ports {
			ports = append(ports, fmt.Sprintf("%d/%s", p.Port, p.Protocol))
		}
		info.Services = append(info.Services, ServiceInfo{
			Name:      svc.Name,
			ClusterIP: svc.Spec.ClusterIP,
			Ports:     ports,
		})
	}

	return info, nil
}
