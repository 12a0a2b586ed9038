package helm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/insider-qa/gridctl/pkg/errors"
)

// fakeRunner records invocations and returns canned responses keyed by the
// helm subcommand (first argument).
type fakeRunner struct {
	calls     [][]string
	responses map[string][]byte
	failures  map[string]error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)

	if err, ok := f.failures[args[0]]; ok {
		return nil, err
	}
	return f.responses[args[0]], nil
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		responses: map[string][]byte{"list": []byte(`[]`)},
		failures:  map[string]error{},
	}
}

func spec() ReleaseSpec {
	return ReleaseSpec{
		Release:   "insider-tests",
		Namespace: "qa",
		ChartPath: "./helm/insider-tests",
		Set:       map[string]string{"chromeNode.nodeCount": "3"},
		Timeout:   5 * time.Minute,
	}
}

func TestInstallWhenReleaseMissing(t *testing.T) {
	runner := newFakeRunner()
	client := NewClientWithRunner(runner)

	require.NoError(t, client.InstallOrUpgrade(t.Context(), spec()))
	require.Len(t, runner.calls, 2)

	assert.Equal(t, []string{"helm", "list", "--namespace", "qa", "--output", "json"}, runner.calls[0])

	install := strings.Join(runner.calls[1], " ")
	assert.Contains(t, install, "helm install insider-tests ./helm/insider-tests")
	assert.Contains(t, install, "--namespace qa")
	assert.Contains(t, install, "--create-namespace")
	assert.Contains(t, install, "--set chromeNode.nodeCount=3")
	assert.Contains(t, install, "--wait --timeout 5m0s")
	assert.NotContains(t, install, "-f ")
}

func TestUpgradeWhenReleaseExists(t *testing.T) {
	runner := newFakeRunner()
	runner.responses["list"] = []byte(`[{"name":"insider-tests","namespace":"qa","chart":"insider-tests-0.1.0","status":"deployed"}]`)
	client := NewClientWithRunner(runner)

	require.NoError(t, client.InstallOrUpgrade(t.Context(), spec()))
	require.Len(t, runner.calls, 2)
	assert.Equal(t, "upgrade", runner.calls[1][1])
}

func TestInstallPassesValuesFile(t *testing.T) {
	runner := newFakeRunner()
	client := NewClientWithRunner(runner)

	s := spec()
	s.ValuesFile = "values-aws.yaml"
	require.NoError(t, client.InstallOrUpgrade(t.Context(), s))

	install := strings.Join(runner.calls[1], " ")
	assert.Contains(t, install, "-f values-aws.yaml")
}

func TestInstallFailureSurfacesStderr(t *testing.T) {
	runner := newFakeRunner()
	runner.failures["install"] = errors.New("exit status 1: Error: chart not found")
	client := NewClientWithRunner(runner)

	err := client.InstallOrUpgrade(t.Context(), spec())
	require.Error(t, err)
	assert.Equal(t, gerrors.ErrCodeInstallFailed, gerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "chart not found")
}

func TestInstallWhenListProbeFails(t *testing.T) {
	// A broken list probe must not block a fresh install attempt.
	runner := newFakeRunner()
	runner.failures["list"] = errors.New("connection refused")
	client := NewClientWithRunner(runner)

	require.NoError(t, client.InstallOrUpgrade(t.Context(), spec()))
	assert.Equal(t, "install", runner.calls[1][1])
}

func TestUninstall(t *testing.T) {
	runner := newFakeRunner()
	client := NewClientWithRunner(runner)

	require.NoError(t, client.Uninstall(t.Context(), "insider-tests", "qa"))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"helm", "uninstall", "insider-tests", "--namespace", "qa"}, runner.calls[0])
}

func TestUninstallFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.failures["uninstall"] = errors.New("release: not found")
	client := NewClientWithRunner(runner)

	err := client.Uninstall(t.Context(), "insider-tests", "qa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
