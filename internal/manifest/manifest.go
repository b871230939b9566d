// Package manifest renders the Kubernetes resource set for a deployment.
// Rendering is pure: no cluster I/O happens here. Resources are returned in
// dependency order (namespace, secret, claim, workload, service) so that
// references resolve when applied sequentially.
package manifest

import (
	"fmt"
	"sort"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// ManagedByValue marks every rendered resource so external tooling can audit
// or garbage-collect what this system created.
const ManagedByValue = "deploystack"

// Config is the input to a renderer. The orchestrator fills it from the
// request, the catalog entry, and the allocated port.
type Config struct {
	// Name is the workload name, also used to derive secret, claim, and
	// service names.
	Name      string
	Namespace string
	Image     string
	Tag       string

	InternalPort int
	NodePort     int

	// Username, Password, and Database feed the credential secret.
	// Password may be empty for app types that allow unauthenticated access.
	Username string
	Password string
	Database string

	// PVCSizeGi is the persistent volume size in GiB. Zero renders no claim.
	PVCSizeGi int
	DataPath  string

	// ExtraEnv is injected into the workload container as plain environment
	// variables.
	ExtraEnv map[string]string
}

func (c Config) imageRef() string {
	return fmt.Sprintf("%s:%s", c.Image, c.Tag)
}

func (c Config) secretName() string {
	return c.Name + "-credentials"
}

func (c Config) pvcName() string {
	return c.Name + "-data"
}

// Labels returns the identifying label set carried by every rendered
// resource.
func Labels(name string) map[string]string {
	return map[string]string{
		"app.kubernetes.io/name":       name,
		"app.kubernetes.io/instance":   name,
		"app.kubernetes.io/managed-by": ManagedByValue,
	}
}

func newNamespace(cfg Config) *corev1.Namespace {
	return &corev1.Namespace{
		TypeMeta: metav1.TypeMeta{Kind: "Namespace", APIVersion: "v1"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   cfg.Namespace,
			Labels: Labels(cfg.Name),
		},
	}
}

func newCredentialSecret(cfg Config, data map[string]string) *corev1.Secret {
	return &corev1.Secret{
		TypeMeta: metav1.TypeMeta{Kind: "Secret", APIVersion: "v1"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.secretName(),
			Namespace: cfg.Namespace,
			Labels:    Labels(cfg.Name),
		},
		Type:       corev1.SecretTypeOpaque,
		StringData: data,
	}
}

func newDataPVC(cfg Config) *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		TypeMeta: metav1.TypeMeta{Kind: "PersistentVolumeClaim", APIVersion: "v1"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.pvcName(),
			Namespace: cfg.Namespace,
			Labels:    Labels(cfg.Name),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse(fmt.Sprintf("%dGi", cfg.PVCSizeGi)),
				},
			},
		},
	}
}

// newNodePortService binds the workload's internal port to the externally
// allocated node port.
func newNodePortService(cfg Config) *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{Kind: "Service", APIVersion: "v1"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.Name,
			Namespace: cfg.Namespace,
			Labels:    Labels(cfg.Name),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeNodePort,
			Selector: Labels(cfg.Name),
			Ports: []corev1.ServicePort{
				{
					Name:       "client",
					Port:       int32(cfg.InternalPort),
					TargetPort: intstr.FromInt32(int32(cfg.InternalPort)),
					NodePort:   int32(cfg.NodePort),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}

func secretKeyRef(secretName, key string) *corev1.EnvVarSource {
	return &corev1.EnvVarSource{
		SecretKeyRef: &corev1.SecretKeySelector{
			LocalObjectReference: corev1.LocalObjectReference{Name: secretName},
			Key:                  key,
		},
	}
}

func extraEnv(cfg Config) []corev1.EnvVar {
	env := make([]corev1.EnvVar, 0, len(cfg.ExtraEnv))
	for _, key := range sortedKeys(cfg.ExtraEnv) {
		env = append(env, corev1.EnvVar{Name: key, Value: cfg.ExtraEnv[key]})
	}
	return env
}

func dataVolume(cfg Config) (corev1.Volume, corev1.VolumeMount) {
	volume := corev1.Volume{
		Name: "data",
		VolumeSource: corev1.VolumeSource{
			PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
				ClaimName: cfg.pvcName(),
			},
		},
	}
	mount := corev1.VolumeMount{Name: "data", MountPath: cfg.DataPath}
	return volume, mount
}

func execProbe(initialDelay, period int32, command ...string) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			Exec: &corev1.ExecAction{Command: command},
		},
		InitialDelaySeconds: initialDelay,
		PeriodSeconds:       period,
		TimeoutSeconds:      5,
	}
}

func resourceRequirements(reqCPU, reqMem, limCPU, limMem string) corev1.ResourceRequirements {
	return corev1.ResourceRequirements{
		Requests: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(reqCPU),
			corev1.ResourceMemory: resource.MustParse(reqMem),
		},
		Limits: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(limCPU),
			corev1.ResourceMemory: resource.MustParse(limMem),
		},
	}
}

func int32Ptr(v int32) *int32 { return &v }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
