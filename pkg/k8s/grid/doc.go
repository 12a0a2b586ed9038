// Package grid observes the Kubernetes resources created by the insider-tests
// chart: the Chrome browser-node Deployment, the test-controller Job, and the
// Services in front of them.
//
// The watcher never mutates cluster state. Readiness is bounded fixed-interval
// polling; the test run is followed through the watch API with pod-level
// inspection to fail fast on runs that can never start.
package grid
