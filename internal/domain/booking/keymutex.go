package booking

import (
	"hash/fnv"
	"sync"
)

// keyMutex serializes work per key (here: per employee) without a global
// lock. Keys are striped over a fixed set of mutexes so two employees
// hashing to different stripes never block each other.
type keyMutex struct {
	stripes [64]sync.Mutex
}

func (k *keyMutex) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &k.stripes[h.Sum32()%uint32(len(k.stripes))]
	m.Lock()
	return m
}
