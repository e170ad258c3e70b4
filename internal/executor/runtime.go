// Package executor applies planner decisions against a container runtime
// and reports outcomes on the results topic. The runtime itself is an
// external collaborator (the container engine's local socket); this
// package depends only on the narrow ContainerRuntime interface below,
// a small method set hiding a concrete SDK behind something the core logic can test
// against with a fake).
package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Container is the minimal view of a running container the executor
// needs: its identity, labels (for the opt-in check), image, and first
// network, used when cloning a sibling.
type Container struct {
	Name    string
	Labels  map[string]string
	Image   string
	Network string
}

// ContainerRuntime is the documented interface to the container engine.
// Implementations talk to whatever local runtime socket is available
// (Docker, containerd, etc.); this package never assumes a concrete SDK.
type ContainerRuntime interface {
	// Find returns the container matching name, or ok=false if absent.
	Find(ctx context.Context, name string) (c Container, ok bool, err error)
	// List returns every running container whose name matches the primary
	// name or its sibling pattern (see siblingOrPrimaryRegexp), sorted by
	// name.
	List(ctx context.Context, namePattern string) ([]Container, error)
	// Start launches a new container cloned from image on network, named
	// name.
	Start(ctx context.Context, name, image, network string) error
	// Restart restarts name, allowing graceSec seconds for a clean stop.
	Restart(ctx context.Context, name string, graceSec int) error
	// StopAndRemove stops (with graceSec grace) then removes name.
	StopAndRemove(ctx context.Context, name string, graceSec int) error
}

// MemoryRuntime is an in-memory ContainerRuntime used by tests and by
// local/dry-run deployments. It is intentionally simple: no image
// validation, no real process lifecycle, just enough bookkeeping for the
// executor's dispatch logic to be exercised deterministically.
type MemoryRuntime struct {
	mu         sync.Mutex
	containers map[string]Container

	// StartErr/RestartErr/StopErr, when non-nil, are returned by the
	// corresponding method instead of succeeding — for exercising the
	// executor's "uncaught failure" path.
	StartErr   error
	RestartErr error
	StopErr    error
}

// NewMemoryRuntime seeds the runtime with the given containers, keyed by
// name.
func NewMemoryRuntime(seed ...Container) *MemoryRuntime {
	r := &MemoryRuntime{containers: make(map[string]Container)}
	for _, c := range seed {
		r.containers[c.Name] = c
	}
	return r
}

func (r *MemoryRuntime) Find(_ context.Context, name string) (Container, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.containers[name]
	return c, ok, nil
}

func (r *MemoryRuntime) List(_ context.Context, namePattern string) ([]Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pattern := siblingOrPrimaryRegexp(namePattern)
	var out []Container
	for _, c := range r.containers {
		if pattern.MatchString(c.Name) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRuntime) Start(_ context.Context, name, image, network string) error {
	if r.StartErr != nil {
		return r.StartErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.containers[name] = Container{Name: name, Image: image, Network: network, Labels: map[string]string{}}
	return nil
}

func (r *MemoryRuntime) Restart(_ context.Context, name string, _ int) error {
	if r.RestartErr != nil {
		return r.RestartErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.containers[name]; !ok {
		return fmt.Errorf("restart: container %q not found", name)
	}
	return nil
}

func (r *MemoryRuntime) StopAndRemove(_ context.Context, name string, _ int) error {
	if r.StopErr != nil {
		return r.StopErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.containers, name)
	return nil
}

// siblingName builds the `{target}-dup-<epoch_seconds>` sibling name,
// using the clock's current Unix second.
func siblingName(target string, now time.Time) string {
	return fmt.Sprintf("%s-dup-%d", target, now.Unix())
}
