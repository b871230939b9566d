package platform

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const shortIDLength = 10

func NewID() string {
	return uuid.New().String()
}

// NewName generates a random lowercase name with the given prefix. Output is
// valid as a Kubernetes resource name segment.
func NewName(prefix string) string {
	b := make([]byte, shortIDLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = shortIDAlphabet[b[i]%byte(len(shortIDAlphabet))]
	}
	return prefix + string(b)
}

// NewNamespace generates the per-deployment isolation namespace for an
// application type, e.g. "ds-postgres-x7k2m9qw4a".
func NewNamespace(appType string) string {
	return NewName(fmt.Sprintf("ds-%s-", appType))
}

// ContainerName derives a cluster-safe workload name from an image reference
// and tag, e.g. ("postgres", "17") -> "postgres-17-<rand>". Registry prefixes
// and dots are flattened so the result is a valid DNS-1123 label.
func ContainerName(image, tag string) string {
	base := image
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.ToLower(base + "-" + tag)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	return NewName(base + "-")
}
