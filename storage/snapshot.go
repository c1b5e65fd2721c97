package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	options := cbor.CoreDetEncOptions()
	// keep sub-second precision and the zone offset of time values
	options.Time = cbor.TimeRFC3339Nano

	var err error
	if encMode, err = options.EncMode(); err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}
}

// snapshot is the persisted form of a storage. The owner handle is deliberately absent;
// it is re-resolved on restore.
type snapshot[V any] struct {
	Config  Config     `cbor:"config"`
	Entries []Entry[V] `cbor:"entries"`
}

// MarshalBinary encodes the config and entries of the storage as CBOR.
func (s *Storage[V]) MarshalBinary() ([]byte, error) {
	s.mu.RLock()
	snap := snapshot[V]{
		Config:  s.config.clone(),
		Entries: s.entries(),
	}
	s.mu.RUnlock()

	data, err := encMode.Marshal(&snap)
	if err != nil {
		return nil, fmt.Errorf("unable to encode %s storage. %w", snap.Config.Kind, err)
	}
	return data, nil
}

// Restore decodes a snapshot created by MarshalBinary. The restored storage belongs to
// the designated owner, which must be resolvable through the registry; otherwise the
// restore is aborted with ErrUnresolvableOwner.
func Restore[V any](data []byte, registry *Registry, designated Handle) (*Storage[V], error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: no registry", ErrUnresolvableOwner)
	}
	if _, err := registry.Resolve(designated); err != nil {
		return nil, fmt.Errorf("%w: handle %q. %v", ErrUnresolvableOwner, designated, err)
	}

	var snap snapshot[V]
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unable to decode storage snapshot. %w", err)
	}

	return New[V](registry, designated, snap.Config, snap.Entries...), nil
}
