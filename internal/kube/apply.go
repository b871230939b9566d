package kube

import (
	"context"
	"fmt"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
)

// Applier sends rendered manifests to the cluster with create-or-replace
// semantics, making a re-run of the same workflow safe.
type Applier struct {
	client kubernetes.Interface
}

func NewApplier(client kubernetes.Interface) *Applier {
	return &Applier{client: client}
}

// Apply creates each resource in order; a resource that already exists is
// replaced instead. The returned output lists what happened per resource.
// The first non-conflict failure aborts the batch; earlier resources are
// not rolled back.
func (a *Applier) Apply(ctx context.Context, objects []runtime.Object) (string, error) {
	var out strings.Builder

	for _, obj := range objects {
		line, err := a.applyOne(ctx, obj)
		if err != nil {
			return out.String(), err
		}
		out.WriteString(line)
		out.WriteString("\n")
	}

	return out.String(), nil
}

func (a *Applier) applyOne(ctx context.Context, obj runtime.Object) (string, error) {
	switch res := obj.(type) {
	case *corev1.Namespace:
		_, err := a.client.CoreV1().Namespaces().Create(ctx, res, metav1.CreateOptions{})
		if apierrors.IsAlreadyExists(err) {
			// Namespaces carry no spec worth replacing; existing is fine.
			return fmt.Sprintf("namespace/%s unchanged", res.Name), nil
		}
		if err != nil {
			return "", fmt.Errorf("create namespace %s: %w", res.Name, err)
		}
		return fmt.Sprintf("namespace/%s created", res.Name), nil

	case *corev1.Secret:
		_, err := a.client.CoreV1().Secrets(res.Namespace).Create(ctx, res, metav1.CreateOptions{})
		if apierrors.IsAlreadyExists(err) {
			return a.replaceSecret(ctx, res)
		}
		if err != nil {
			return "", fmt.Errorf("create secret %s: %w", res.Name, err)
		}
		return fmt.Sprintf("secret/%s created", res.Name), nil

	case *corev1.PersistentVolumeClaim:
		_, err := a.client.CoreV1().PersistentVolumeClaims(res.Namespace).Create(ctx, res, metav1.CreateOptions{})
		if apierrors.IsAlreadyExists(err) {
			// PVC specs are immutable after binding; keep the existing claim.
			return fmt.Sprintf("persistentvolumeclaim/%s unchanged", res.Name), nil
		}
		if err != nil {
			return "", fmt.Errorf("create persistentvolumeclaim %s: %w", res.Name, err)
		}
		return fmt.Sprintf("persistentvolumeclaim/%s created", res.Name), nil

	case *appsv1.Deployment:
		_, err := a.client.AppsV1().Deployments(res.Namespace).Create(ctx, res, metav1.CreateOptions{})
		if apierrors.IsAlreadyExists(err) {
			return a.replaceDeployment(ctx, res)
		}
		if err != nil {
			return "", fmt.Errorf("create deployment %s: %w", res.Name, err)
		}
		return fmt.Sprintf("deployment/%s created", res.Name), nil

	case *corev1.Service:
		_, err := a.client.CoreV1().Services(res.Namespace).Create(ctx, res, metav1.CreateOptions{})
		if apierrors.IsAlreadyExists(err) {
			return a.replaceService(ctx, res)
		}
		if err != nil {
			return "", fmt.Errorf("create service %s: %w", res.Name, err)
		}
		return fmt.Sprintf("service/%s created", res.Name), nil

	default:
		return "", fmt.Errorf("unsupported resource type %T", obj)
	}
}

func (a *Applier) replaceSecret(ctx context.Context, desired *corev1.Secret) (string, error) {
	existing, err := a.client.CoreV1().Secrets(desired.Namespace).Get(ctx, desired.Name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("get secret %s for replace: %w", desired.Name, err)
	}
	desired = desired.DeepCopy()
	desired.ResourceVersion = existing.ResourceVersion
	if _, err := a.client.CoreV1().Secrets(desired.Namespace).Update(ctx, desired, metav1.UpdateOptions{}); err != nil {
		return "", fmt.Errorf("replace secret %s: %w", desired.Name, err)
	}
	return fmt.Sprintf("secret/%s replaced", desired.Name), nil
}

func (a *Applier) replaceDeployment(ctx context.Context, desired *appsv1.Deployment) (string, error) {
	existing, err := a.client.AppsV1().Deployments(desired.Namespace).Get(ctx, desired.Name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("get deployment %s for replace: %w", desired.Name, err)
	}
	desired = desired.DeepCopy()
	desired.ResourceVersion = existing.ResourceVersion
	if _, err := a.client.AppsV1().Deployments(desired.Namespace).Update(ctx, desired, metav1.UpdateOptions{}); err != nil {
		return "", fmt.Errorf("replace deployment %s: %w", desired.Name, err)
	}
	return fmt.Sprintf("deployment/%s replaced", desired.Name), nil
}

func (a *Applier) replaceService(ctx context.Context, desired *corev1.Service) (string, error) {
	existing, err := a.client.CoreV1().Services(desired.Namespace).Get(ctx, desired.Name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("get service %s for replace: %w", desired.Name, err)
	}
	desired = desired.DeepCopy()
	desired.ResourceVersion = existing.ResourceVersion
	// ClusterIP is assigned by the API server and immutable.
	desired.Spec.ClusterIP = existing.Spec.ClusterIP
	if _, err := a.client.CoreV1().Services(desired.Namespace).Update(ctx, desired, metav1.UpdateOptions{}); err != nil {
		return "", fmt.Errorf("replace service %s: %w", desired.Name, err)
	}
	return fmt.Sprintf("service/%s replaced", desired.Name), nil
}
