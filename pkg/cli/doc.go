// Package cli implements the gridctl command-line interface.
//
// # Commands
//
// run - deploy the test grid and execute the suite:
//
//	gridctl run --node-count 2 --namespace qa --cleanup
//
// Installs (or upgrades) the insider-tests Helm release, waits for the Chrome
// browser nodes to become ready, follows the test-controller Job to a
// terminal state, and prints a parsed run summary. Exit code 0 only when
// install, readiness, and the run all succeeded.
//
// status - show deployed workloads:
//
//	gridctl status -n qa -t table
//
// teardown - uninstall the release:
//
//	gridctl teardown -n qa
//
// # Global Flags
//
//	--log-level   debug, info, warn, error (default: info)
//
// Logs are structured JSON on stderr; run summaries go to stdout or the
// --output file in yaml, json, or table form.
//
// The deployed workload reads its configuration from the chart's ConfigMap:
// CHROME_SERVICE_URL (browser-grid endpoint), APP_BASE_URL (site under
// test), and RUNNING_IN_CONTAINER. Those keys belong to the chart and the
// test-runner image; gridctl only sets chart override parameters
// (chromeNode.nodeCount, chromeNode.image.*).
package cli
