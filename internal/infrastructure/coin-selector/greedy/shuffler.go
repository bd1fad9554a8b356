package greedy_selector

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"github.com/vulpemventures/ocean-ntp1/internal/core/ports"
)

type lockedShuffler struct {
	rnd  *rand.Rand
	lock *sync.Mutex
}

// NewRandomShuffler returns a shuffler safe for concurrent use, seeded from
// the OS random source.
func NewRandomShuffler() ports.Shuffler {
	var seed int64
	buf := make([]byte, 8)
	if _, err := crand.Read(buf); err != nil {
		seed = time.Now().UnixNano()
	} else {
		seed = int64(binary.LittleEndian.Uint64(buf))
	}
	return NewSeededShuffler(seed)
}

// NewSeededShuffler returns a shuffler safe for concurrent use producing the
// same permutations for the same seed.
func NewSeededShuffler(seed int64) ports.Shuffler {
	return &lockedShuffler{rand.New(rand.NewSource(seed)), &sync.Mutex{}}
}

func (s *lockedShuffler) Shuffle(n int, swap func(i, j int)) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.rnd.Shuffle(n, swap)
}
