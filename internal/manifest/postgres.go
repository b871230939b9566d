package manifest

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// RenderPostgres emits the full resource set for a PostgreSQL deployment:
// namespace, credential secret, data volume claim, workload, and NodePort
// service. Credentials reach the container only through secret references.
func RenderPostgres(cfg Config) []runtime.Object {
	secret := newCredentialSecret(cfg, map[string]string{
		"POSTGRES_USER":     cfg.Username,
		"POSTGRES_PASSWORD": cfg.Password,
		"POSTGRES_DB":       cfg.Database,
	})

	objects := []runtime.Object{
		newNamespace(cfg),
		secret,
	}
	if cfg.PVCSizeGi > 0 {
		objects = append(objects, newDataPVC(cfg))
	}
	objects = append(objects,
		newPostgresDeployment(cfg),
		newNodePortService(cfg),
	)
	return objects
}

func newPostgresDeployment(cfg Config) *appsv1.Deployment {
	labels := Labels(cfg.Name)

	env := []corev1.EnvVar{
		{Name: "POSTGRES_USER", ValueFrom: secretKeyRef(cfg.secretName(), "POSTGRES_USER")},
		{Name: "POSTGRES_PASSWORD", ValueFrom: secretKeyRef(cfg.secretName(), "POSTGRES_PASSWORD")},
		{Name: "POSTGRES_DB", ValueFrom: secretKeyRef(cfg.secretName(), "POSTGRES_DB")},
		// PGDATA points below the mount so postgres tolerates the
		// lost+found directory some provisioners leave at the volume root.
		{Name: "PGDATA", Value: cfg.DataPath + "/pgdata"},
	}
	env = append(env, extraEnv(cfg)...)

	// pg_isready exercises postgres' own readiness check.
	probe := []string{"sh", "-c", `pg_isready -U "$POSTGRES_USER"`}

	container := corev1.Container{
		Name:  cfg.Name,
		Image: cfg.imageRef(),
		Ports: []corev1.ContainerPort{
			{Name: "postgres", ContainerPort: int32(cfg.InternalPort), Protocol: corev1.ProtocolTCP},
		},
		Env:            env,
		Resources:      resourceRequirements("100m", "256Mi", "500m", "512Mi"),
		LivenessProbe:  execProbe(30, 10, probe...),
		ReadinessProbe: execProbe(5, 5, probe...),
	}

	var volumes []corev1.Volume
	if cfg.PVCSizeGi > 0 {
		volume, mount := dataVolume(cfg)
		volumes = append(volumes, volume)
		container.VolumeMounts = append(container.VolumeMounts, mount)
	}

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{Kind: "Deployment", APIVersion: "apps/v1"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.Name,
			Namespace: cfg.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: int32Ptr(1),
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			// Recreate keeps two postgres processes from racing on the
			// same volume during a rollout.
			Strategy: appsv1.DeploymentStrategy{Type: appsv1.RecreateDeploymentStrategyType},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{container},
					Volumes:    volumes,
				},
			},
		},
	}
}
