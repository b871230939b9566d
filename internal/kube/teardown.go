package kube

import (
	"context"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
)

const (
	namespaceDeletionPollInterval = 2 * time.Second
	namespaceDeletionTimeout      = 2 * time.Minute
)

// Teardown removes a deployment's namespace, cascading to everything inside
// it.
type Teardown struct {
	client kubernetes.Interface

	pollInterval time.Duration
	timeout      time.Duration
}

func NewTeardown(client kubernetes.Interface) *Teardown {
	return &Teardown{
		client:       client,
		pollInterval: namespaceDeletionPollInterval,
		timeout:      namespaceDeletionTimeout,
	}
}

// DeleteNamespace issues a cascading delete and waits, bounded, for the
// namespace to terminate. Deleting a namespace that no longer exists is
// treated as already satisfied, so concurrent deletes are safe.
func (t *Teardown) DeleteNamespace(ctx context.Context, namespace string) error {
	err := t.client.CoreV1().Namespaces().Delete(ctx, namespace, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete namespace %s: %w", namespace, err)
	}

	err = wait.PollUntilContextTimeout(ctx, t.pollInterval, t.timeout, true,
		func(ctx context.Context) (bool, error) {
			_, err := t.client.CoreV1().Namespaces().Get(ctx, namespace, metav1.GetOptions{})
			if apierrors.IsNotFound(err) {
				return true, nil
			}
			// Transient lookup errors keep the poll going until timeout.
			return false, nil
		})
	if err != nil {
		return fmt.Errorf("wait for namespace %s deletion: %w", namespace, err)
	}
	return nil
}
