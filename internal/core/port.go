package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
)

// NodePort allocation range, matching the cluster's service node port range.
const (
	PortRangeMin = 30000
	PortRangeMax = 32767
)

// maxRandomDraws bounds the random phase before falling back to a linear
// scan. Under low utilization a single draw almost always succeeds.
const maxRandomDraws = 100

// ErrPortsExhausted means every port in the range is held by a live
// deployment.
var ErrPortsExhausted = errors.New("no available ports in allocation range")

// PortAllocator picks node ports not held by any live deployment. The
// returned port is only a pre-filter: the partial unique index on
// deployments.node_port is the authoritative uniqueness guarantee, so a
// losing racer fails on insert rather than clobbering a port.
type PortAllocator struct {
	deployments *DeploymentService
}

func NewPortAllocator(deployments *DeploymentService) *PortAllocator {
	return &PortAllocator{deployments: deployments}
}

// NextAvailablePort reads the in-use set once, tries up to maxRandomDraws
// uniform random draws, then scans the range linearly from the low bound.
func (a *PortAllocator) NextAvailablePort(ctx context.Context) (int, error) {
	inUse, err := a.deployments.InUsePorts(ctx)
	if err != nil {
		return 0, fmt.Errorf("read in-use ports: %w", err)
	}

	rangeSize := PortRangeMax - PortRangeMin + 1
	for i := 0; i < maxRandomDraws; i++ {
		port := PortRangeMin + rand.Intn(rangeSize)
		if !inUse[port] {
			return port, nil
		}
	}

	// Near saturation the random phase can keep colliding; the scan bounds
	// the worst case.
	for port := PortRangeMin; port <= PortRangeMax; port++ {
		if !inUse[port] {
			return port, nil
		}
	}

	return 0, ErrPortsExhausted
}

// Reserve returns requested when it is free, otherwise allocates a fresh
// port.
func (a *PortAllocator) Reserve(ctx context.Context, requested int) (int, error) {
	if requested >= PortRangeMin && requested <= PortRangeMax {
		inUse, err := a.deployments.InUsePorts(ctx)
		if err != nil {
			return 0, fmt.Errorf("read in-use ports: %w", err)
		}
		if !inUse[requested] {
			return requested, nil
		}
	}
	return a.NextAvailablePort(ctx)
}
