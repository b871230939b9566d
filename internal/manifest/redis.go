package manifest

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// RenderRedis emits the resource set for a Redis-compatible cache. The
// credential secret is rendered only when a password is set; the server
// command requires the password in that case. A preStop hook persists the
// in-memory dataset before the container stops.
func RenderRedis(cfg Config) []runtime.Object {
	objects := []runtime.Object{newNamespace(cfg)}

	if cfg.Password != "" {
		objects = append(objects, newCredentialSecret(cfg, map[string]string{
			"REDIS_PASSWORD": cfg.Password,
		}))
	}
	if cfg.PVCSizeGi > 0 {
		objects = append(objects, newDataPVC(cfg))
	}
	objects = append(objects,
		newRedisDeployment(cfg),
		newNodePortService(cfg),
	)
	return objects
}

func newRedisDeployment(cfg Config) *appsv1.Deployment {
	labels := Labels(cfg.Name)

	command := []string{"redis-server", "--dir", cfg.DataPath}
	probe := []string{"redis-cli", "ping"}
	shutdown := []string{"redis-cli", "shutdown", "save"}

	var env []corev1.EnvVar
	if cfg.Password != "" {
		env = append(env, corev1.EnvVar{
			Name:      "REDIS_PASSWORD",
			ValueFrom: secretKeyRef(cfg.secretName(), "REDIS_PASSWORD"),
		})
		// $(REDIS_PASSWORD) is expanded by the kubelet from the container
		// environment, so the password never appears in the pod spec.
		command = append(command, "--requirepass", "$(REDIS_PASSWORD)")
		probe = []string{"sh", "-c", `redis-cli -a "$REDIS_PASSWORD" ping`}
		shutdown = []string{"sh", "-c", `redis-cli -a "$REDIS_PASSWORD" shutdown save`}
	}
	env = append(env, extraEnv(cfg)...)

	container := corev1.Container{
		Name:    cfg.Name,
		Image:   cfg.imageRef(),
		Command: command,
		Ports: []corev1.ContainerPort{
			{Name: "redis", ContainerPort: int32(cfg.InternalPort), Protocol: corev1.ProtocolTCP},
		},
		Env:            env,
		Resources:      resourceRequirements("50m", "64Mi", "250m", "256Mi"),
		LivenessProbe:  execProbe(15, 10, probe...),
		ReadinessProbe: execProbe(5, 5, probe...),
		Lifecycle: &corev1.Lifecycle{
			PreStop: &corev1.LifecycleHandler{
				Exec: &corev1.ExecAction{Command: shutdown},
			},
		},
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
