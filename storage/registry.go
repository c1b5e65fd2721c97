package storage

import (
	"errors"
	"sync"

	"github.com/oklog/ulid/v2"
)

var (
	ErrOwnerNotFound = errors.New("owner is not registered")

	// ErrUnresolvableOwner aborts a restore; a storage can not exist without an owner.
	ErrUnresolvableOwner = errors.New("unable to restore storage without a resolvable owner")
)

// Handle is a stable identity token of an owner. Storages keep the handle, never the
// owner itself, which keeps the owner out of serialized snapshots.
type Handle string

// Owner is whatever a storage belongs to, usually a gateway client.
type Owner interface {
	StorageHandle() Handle
}

// Registry resolves handles to the currently active owners.
type Registry struct {
	mu     sync.RWMutex
	owners map[Handle]Owner
}

// DefaultRegistry is the process wide registry used when a client is not given one.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{owners: make(map[Handle]Owner)}
}

// NewHandle creates a new unique handle. Handles sort by creation time.
func NewHandle() Handle {
	return Handle(ulid.Make().String())
}

// Register makes the owner resolvable by its handle.
func (r *Registry) Register(owner Owner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[owner.StorageHandle()] = owner
}

func (r *Registry) Unregister(handle Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.owners, handle)
}

func (r *Registry) Resolve(handle Handle) (Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.owners[handle]
	if !ok {
		return nil, ErrOwnerNotFound
	}
	return owner, nil
}
