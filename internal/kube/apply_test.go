package kube

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/edvin/deploystack/internal/manifest"
)

func renderTestObjects() []runtime.Object {
	return manifest.RenderPostgres(manifest.Config{
		Name:         "postgres-17-test01",
		Namespace:    "ds-postgres-test01",
		Image:        "postgres",
		Tag:          "17",
		InternalPort: 5432,
		NodePort:     30500,
		Username:     "admin",
		Password:     "Str0ng!Password#X",
		Database:     "app",
		PVCSizeGi:    1,
		DataPath:     "/var/lib/postgresql/data",
	})
}

func TestApplier_Apply_CreatesAllResources(t *testing.T) {
	client := fake.NewSimpleClientset()
	applier := NewApplier(client)

	output, err := applier.Apply(context.Background(), renderTestObjects())
	require.NoError(t, err)

	assert.Contains(t, output, "namespace/ds-postgres-test01 created")
	assert.Contains(t, output, "secret/postgres-17-test01-credentials created")
	assert.Contains(t, output, "persistentvolumeclaim/postgres-17-test01-data created")
	assert.Contains(t, output, "deployment/postgres-17-test01 created")
	assert.Contains(t, output, "service/postgres-17-test01 created")

	_, err = client.AppsV1().Deployments("ds-postgres-test01").Get(context.Background(), "postgres-17-test01", metav1.GetOptions{})
	require.NoError(t, err)
}

func TestApplier_Apply_SecondRunReplaces(t *testing.T) {
	client := fake.NewSimpleClientset()
	applier := NewApplier(client)
	ctx := context.Background()

	_, err := applier.Apply(ctx, renderTestObjects())
	require.NoError(t, err)

	// Re-applying identical manifests must succeed and exercise the
	// replace branch.
	output, err := applier.Apply(ctx, renderTestObjects())
	require.NoError(t, err)

	assert.Contains(t, output, "namespace/ds-postgres-test01 unchanged")
	assert.Contains(t, output, "secret/postgres-17-test01-credentials replaced")
	assert.Contains(t, output, "persistentvolumeclaim/postgres-17-test01-data unchanged")
	assert.Contains(t, output, "deployment/postgres-17-test01 replaced")
	assert.Contains(t, output, "service/postgres-17-test01 replaced")
}

func TestApplier_Apply_AbortsOnFirstFailure(t *testing.T) {
	client := fake.NewSimpleClientset()
	client.PrependReactor("create", "deployments", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("admission webhook denied the request")
	})
	applier := NewApplier(client)

	output, err := applier.Apply(context.Background(), renderTestObjects())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create deployment")
	assert.Contains(t, err.Error(), "admission webhook")

	// Earlier resources in the batch were applied and are not rolled back.
	assert.Contains(t, output, "namespace/ds-postgres-test01 created")
	_, getErr := client.CoreV1().Secrets("ds-postgres-test01").Get(context.Background(), "postgres-17-test01-credentials", metav1.GetOptions{})
	require.NoError(t, getErr)
}

func TestApplier_Apply_UnsupportedType(t *testing.T) {
	client := fake.NewSimpleClientset()
	applier := NewApplier(client)

	_, err := applier.Apply(context.Background(), []runtime.Object{&metav1.Status{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported resource type")
}

func TestApplier_Apply_ServiceReplaceKeepsClusterIP(t *testing.T) {
	client := fake.NewSimpleClientset()
	applier := NewApplier(client)
	ctx := context.Background()

	objects := renderTestObjects()
	_, err := applier.Apply(ctx, objects)
	require.NoError(t, err)

	// Simulate the API server having assigned a cluster IP.
	svc, err := client.CoreV1().Services("ds-postgres-test01").Get(ctx, "postgres-17-test01", metav1.GetOptions{})
	require.NoError(t, err)
	svc.Spec.ClusterIP = "10.0.0.42"
	_, err = client.CoreV1().Services("ds-postgres-test01").Update(ctx, svc, metav1.UpdateOptions{})
	require.NoError(t, err)

	_, err = applier.Apply(ctx, objects)
	require.NoError(t, err)

	replaced, err := client.CoreV1().Services("ds-postgres-test01").Get(ctx, "postgres-17-test01", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.42", replaced.Spec.ClusterIP)
}
