package service

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// stripedLocks serializes operations per entity key (session id, device id)
// without growing per key. Two keys may share a stripe; that only coarsens
// the serialization, never weakens it.
type stripedLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (s *stripedLocks) forKey(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.stripes[h.Sum32()%lockStripes]
}
