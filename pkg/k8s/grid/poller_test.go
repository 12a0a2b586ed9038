package grid

import (
	"sync/atomic"
	"testing"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
	"k8s.io/utils/ptr"

	"github.com/insider-qa/gridctl/pkg/errors"
)

func testConfig() Config {
	return Config{
		Namespace:    "qa",
		Release:      "insider-tests",
		PollInterval: 10 * time.Millisecond,
	}
}

func nodesDeployment(desired, ready int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "insider-tests-chrome-node",
			Namespace: "qa",
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(desired),
		},
		Status: appsv1.DeploymentStatus{
			Replicas:      desired,
			ReadyReplicas: ready,
		},
	}
}

func TestWaitForNodesReady_ReadyAtThirdPoll(t *testing.T) {
	clientset := fake.NewClientset(nodesDeployment(2, 0))

	var polls atomic.Int32
	clientset.PrependReactor("get", "deployments",
		func(_ k8stesting.Action) (bool, runtime.Object, error) {
			n := polls.Add(1)
			if n < 3 {
				return true, nodesDeployment(2, n-1), nil
			}
			return true, nodesDeployment(2, 2), nil
		})

	w := NewWatcher(clientset, testConfig())

	status, err := w.WaitForNodesReady(t.Context(), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Ready != 2 || status.Desired != 2 {
		t.Errorf("expected 2/2 ready, got %d/%d", status.Ready, status.Desired)
	}
	if got := polls.Load(); got != 3 {
		t.Errorf("expected success at the third poll, got %d polls", got)
	}
}

func TestWaitForNodesReady_Timeout(t *testing.T) {
	clientset := fake.NewClientset(nodesDeployment(3, 1))
	w := NewWatcher(clientset, testConfig())

	timeout := 100 * time.Millisecond
	start := time.Now()
	status, err := w.WaitForNodesReady(t.Context(), timeout)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if code := errors.CodeOf(err); code != errors.ErrCodeReadyTimeout {
		t.Errorf("expected code %s, got %s", errors.ErrCodeReadyTimeout, code)
	}
	if status.Ready != 1 || status.Desired != 3 {
		t.Errorf("expected last status 1/3, got %d/%d", status.Ready, status.Desired)
	}

	// The poller must stop at the timeout boundary, give or take one interval.
	if elapsed < timeout {
		t.Errorf("poller returned before timeout: %v < %v", elapsed, timeout)
	}
	if elapsed > timeout+w.config.PollInterval+100*time.Millisecond {
		t.Errorf("poller overran timeout: %v", elapsed)
	}
}

func TestWaitForNodesReady_ZeroDesiredNeverReady(t *testing.T) {
	// A deployment that declares no replicas is not a ready grid.
	clientset := fake.NewClientset(nodesDeployment(0, 0))
	w := NewWatcher(clientset, testConfig())

	_, err := w.WaitForNodesReady(t.Context(), 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error for zero-replica deployment")
	}
}

func TestWaitForNodesReady_DeploymentMissingThenAppears(t *testing.T) {
	// The deployment may not be visible immediately after install; the
	// poller keeps trying instead of failing the pipeline.
	clientset := fake.NewClientset()
	w := NewWatcher(clientset, testConfig())

	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = clientset.AppsV1().Deployments("qa").
			Create(t.Context(), nodesDeployment(1, 1), metav1.CreateOptions{})
	}()

	status, err := w.WaitForNodesReady(t.Context(), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Ready != 1 {
		t.Errorf("expected 1 ready, got %d", status.Ready)
	}
}
