package grid

import (
	"testing"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/insider-qa/gridctl/pkg/errors"
)

func controllerJob(conditions ...batchv1.JobCondition) *batchv1.Job {
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "insider-tests-test-controller",
			Namespace: "qa",
		},
		Status: batchv1.JobStatus{
			Conditions: conditions,
		},
	}
}

func controllerPod(name string, created time.Time, statuses ...corev1.ContainerStatus) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:              name,
			Namespace:         "qa",
			CreationTimestamp: metav1.NewTime(created),
			Labels: map[string]string{
				"app.kubernetes.io/component": "test-controller",
			},
		},
		Status: corev1.PodStatus{
			ContainerStatuses: statuses,
		},
	}
}

func TestWaitForRun_AlreadySucceeded(t *testing.T) {
	job := controllerJob(batchv1.JobCondition{
		Type:   batchv1.JobComplete,
		Status: corev1.ConditionTrue,
	})
	clientset := fake.NewClientset(job)
	w := NewWatcher(clientset, testConfig())

	if err := w.WaitForRun(t.Context(), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForRun_AlreadyFailed(t *testing.T) {
	job := controllerJob(batchv1.JobCondition{
		Type:    batchv1.JobFailed,
		Status:  corev1.ConditionTrue,
		Message: "BackoffLimitExceeded",
	})
	clientset := fake.NewClientset(job)
	w := NewWatcher(clientset, testConfig())

	err := w.WaitForRun(t.Context(), time.Second)
	if err == nil {
		t.Fatal("expected error for failed job")
	}
	if code := errors.CodeOf(err); code != errors.ErrCodeRunFailed {
		t.Errorf("expected code %s, got %s", errors.ErrCodeRunFailed, code)
	}
}

func TestWaitForRun_SucceedsViaWatchEvent(t *testing.T) {
	clientset := fake.NewClientset(controllerJob())
	w := NewWatcher(clientset, testConfig())

	go func() {
		time.Sleep(30 * time.Millisecond)
		done := controllerJob(batchv1.JobCondition{
			Type:   batchv1.JobComplete,
			Status: corev1.ConditionTrue,
		})
		_, _ = clientset.BatchV1().Jobs("qa").Update(t.Context(), done, metav1.UpdateOptions{})
	}()

	if err := w.WaitForRun(t.Context(), 2*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForRun_PodStuckOnImagePull(t *testing.T) {
	stuck := controllerPod("ctl-1", time.Now(), corev1.ContainerStatus{
		Name: "test-runner",
		State: corev1.ContainerState{
			Waiting: &corev1.ContainerStateWaiting{
				Reason:  "ImagePullBackOff",
				Message: "Back-off pulling image",
			},
		},
	})
	clientset := fake.NewClientset(controllerJob(), stuck)
	w := NewWatcher(clientset, testConfig())

	// Must fail well before the full wait window elapses.
	start := time.Now()
	err := w.WaitForRun(t.Context(), 5*time.Second)
	if err == nil {
		t.Fatal("expected error for stuck pod")
	}
	if code := errors.CodeOf(err); code != errors.ErrCodeRunFailed {
		t.Errorf("expected code %s, got %s", errors.ErrCodeRunFailed, code)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("stuck pod not detected early, took %v", elapsed)
	}
}

func TestWaitForRun_Timeout(t *testing.T) {
	clientset := fake.NewClientset(controllerJob())
	w := NewWatcher(clientset, testConfig())

	err := w.WaitForRun(t.Context(), 100*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if code := errors.CodeOf(err); code != errors.ErrCodeRunTimeout {
		t.Errorf("expected code %s, got %s", errors.ErrCodeRunTimeout, code)
	}
}
