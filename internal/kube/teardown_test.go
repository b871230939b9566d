package kube

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

func newTestTeardown(client *fake.Clientset) *Teardown {
	t := NewTeardown(client)
	t.pollInterval = time.Millisecond
	t.timeout = 100 * time.Millisecond
	return t
}

func TestTeardown_DeleteNamespace(t *testing.T) {
	client := fake.NewSimpleClientset(&corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: "ds-postgres-gone"},
	})
	teardown := newTestTeardown(client)

	err := teardown.DeleteNamespace(context.Background(), "ds-postgres-gone")
	require.NoError(t, err)

	_, err = client.CoreV1().Namespaces().Get(context.Background(), "ds-postgres-gone", metav1.GetOptions{})
	require.Error(t, err)
}

func TestTeardown_DeleteNamespace_AlreadyGone(t *testing.T) {
	client := fake.NewSimpleClientset()
	teardown := newTestTeardown(client)

	// Delete of a nonexistent namespace is already satisfied.
	err := teardown.DeleteNamespace(context.Background(), "ds-postgres-nope")
	require.NoError(t, err)
}

func TestTeardown_DeleteNamespace_APIError(t *testing.T) {
	client := fake.NewSimpleClientset(&corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: "ds-postgres-stuck"},
	})
	client.PrependReactor("delete", "namespaces", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("connection refused")
	})
	teardown := newTestTeardown(client)

	err := teardown.DeleteNamespace(context.Background(), "ds-postgres-stuck")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete namespace ds-postgres-stuck")
}

func TestTeardown_DeleteNamespace_WaitTimesOut(t *testing.T) {
	client := fake.NewSimpleClientset(&corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: "ds-postgres-slow"},
	})
	// Swallow the delete so the namespace lingers, as it does while a real
	// namespace drains its contents.
	client.PrependReactor("delete", "namespaces", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, nil
	})
	teardown := newTestTeardown(client)

	err := teardown.DeleteNamespace(context.Background(), "ds-postgres-slow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait for namespace")
}
