// Package params defines the parameter-store contract between the network
// stack, which publishes identifiers, and the service stack, which reads them.
package params

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Name is a parameter-store key.
type Name string

const (
	// VpcID holds the VPC identifier.
	VpcID Name = "VpcId"
	// ServicesNLB holds the DNS name of the internal service load balancer.
	ServicesNLB Name = "ExpenseTrackerServicesNLB"
)

// PublicSubnet returns the key of the i-th public subnet ID.
func PublicSubnet(i int) Name {
	return Name("PublicSubnet-" + strconv.Itoa(i))
}

// PrivateSubnet returns the key of the i-th private subnet ID.
func PrivateSubnet(i int) Name {
	return Name("PrivateSubnet-" + strconv.Itoa(i))
}

// NetworkExports lists the names the network stack writes for n zones.
func NetworkExports(n int) []Name {
	names := []Name{VpcID}
	for i := 0; i < n; i++ {
		names = append(names, PublicSubnet(i))
	}
	for i := 0; i < n; i++ {
		names = append(names, PrivateSubnet(i))
	}
	return names
}

// ErrNotPublished is matched by every NotPublishedError.
var ErrNotPublished = errors.New("parameter not published")

// NotPublishedError reports a parameter that has not been written yet.
type NotPublishedError struct {
	Name Name
}

func (e *NotPublishedError) Error() string {
	return fmt.Sprintf("parameter %s not found: not yet published", e.Name)
}

// Is reports whether target is ErrNotPublished.
func (e *NotPublishedError) Is(target error) bool {
	return target == ErrNotPublished
}

// Store reads and writes string parameters.
type Store interface {
	Get(ctx context.Context, name Name) (string, error)
	Put(ctx context.Context, name Name, value string) error
}

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[Name]string
	reads  map[Name]int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[Name]string),
		reads:  make(map[Name]int),
	}
}

// Get returns the value of name or a NotPublishedError.
func (m *MemoryStore) Get(ctx context.Context, name Name) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[name]
	if !ok {
		return "", &NotPublishedError{Name: name}
	}
	m.reads[name]++
	return value, nil
}

// Put writes or overwrites name.
func (m *MemoryStore) Put(ctx context.Context, name Name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = value
	return nil
}

// Names returns the stored names, sorted.
func (m *MemoryStore) Names() []Name {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]Name, 0, len(m.values))
	for name := range m.values {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Reads returns the names that were successfully read at least once, sorted.
func (m *MemoryStore) Reads() []Name {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]Name, 0, len(m.reads))
	for name := range m.reads {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Snapshot returns a copy of every stored value.
func (m *MemoryStore) Snapshot() map[Name]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[Name]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
