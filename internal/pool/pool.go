package pool

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrAlreadyRegistered  = errors.New("pool: serial already registered")
	ErrDuplicateInBatch   = errors.New("pool: duplicate serial in batch")
	ErrInsufficientSupply = errors.New("pool: insufficient supply")
	ErrOutOfRange         = errors.New("pool: offset out of range")
	ErrNotAvailable       = errors.New("pool: serial not available")
	ErrNotAllocated       = errors.New("pool: serial not allocated")
)

// Pool tracks the serials held in reserve for minting. Every serial in
// available is also in registered; a registered serial that is not available
// has been allocated.
type Pool struct {
	registered map[uint64]struct{}
	available  []uint64
}

func New() *Pool {
	return &Pool{registered: make(map[uint64]struct{})}
}

// Register adds serials to the available set. The batch is rejected as a whole
// if it repeats a serial or names one that is already tracked.
func (p *Pool) Register(serials []uint64) error {
	if err := checkBatch(serials); err != nil {
		return err
	}
	for _, serial := range serials {
		if _, ok := p.registered[serial]; ok {
			return fmt.Errorf("%w: %d", ErrAlreadyRegistered, serial)
		}
	}
	for _, serial := range serials {
		p.registered[serial] = struct{}{}
		p.insert(serial)
	}
	return nil
}

// Allocate removes count serials from the available set and returns them.
// With a nil seed the lowest serials are taken in ascending order. With a
// seed, pick i takes the index keccak256(seed || i) mod remaining, so the same
// pool and seed always yield the same serials.
func (p *Pool) Allocate(count int, seed []byte) ([]uint64, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrInsufficientSupply, count)
	}
	if count > len(p.available) {
		return nil, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientSupply, count, len(p.available))
	}
	if count == 0 {
		return []uint64{}, nil
	}

	if seed == nil {
		out := make([]uint64, count)
		copy(out, p.available[:count])
		p.available = append([]uint64(nil), p.available[count:]...)
		return out, nil
	}

	out := make([]uint64, 0, count)
	var counter [8]byte
	for i := 0; i < count; i++ {
		binary.BigEndian.PutUint64(counter[:], uint64(i))
		digest := crypto.Keccak256(seed, counter[:])
		idx := int(binary.BigEndian.Uint64(digest[24:]) % uint64(len(p.available)))
		out = append(out, p.available[idx])
		p.available = append(p.available[:idx], p.available[idx+1:]...)
	}
	return out, nil
}

// Withdraw removes available serials from the pool entirely. Withdrawn
// serials are no longer registered and can never be refunded back in.
func (p *Pool) Withdraw(serials []uint64) error {
	if err := checkBatch(serials); err != nil {
		return err
	}
	for _, serial := range serials {
		if !p.IsAvailable(serial) {
			return fmt.Errorf("%w: %d", ErrNotAvailable, serial)
		}
	}
	for _, serial := range serials {
		p.remove(serial)
		delete(p.registered, serial)
	}
	return nil
}

// Release returns an allocated serial to the available set.
func (p *Pool) Release(serial uint64) error {
	if !p.IsAllocated(serial) {
		return fmt.Errorf("%w: %d", ErrNotAllocated, serial)
	}
	p.insert(serial)
	return nil
}

// Forget drops an allocated serial from tracking, used when it is burned.
func (p *Pool) Forget(serial uint64) error {
	if !p.IsAllocated(serial) {
		return fmt.Errorf("%w: %d", ErrNotAllocated, serial)
	}
	delete(p.registered, serial)
	return nil
}

// List returns up to limit available serials starting at offset.
func (p *Pool) List(offset, limit int) ([]uint64, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: %d", ErrOutOfRange, offset)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", ErrOutOfRange, limit)
	}
	if offset >= len(p.available) {
		return []uint64{}, nil
	}
	end := offset + limit
	if end > len(p.available) || end < offset {
		end = len(p.available)
	}
	out := make([]uint64, end-offset)
	copy(out, p.available[offset:end])
	return out, nil
}

func (p *Pool) Remaining() int {
	return len(p.available)
}

func (p *Pool) IsRegistered(serial uint64) bool {
	_, ok := p.registered[serial]
	return ok
}

func (p *Pool) IsAvailable(serial uint64) bool {
	_, found := p.search(serial)
	return found
}

// IsAllocated reports whether the serial is registered but not available.
func (p *Pool) IsAllocated(serial uint64) bool {
	return p.IsRegistered(serial) && !p.IsAvailable(serial)
}

func (p *Pool) search(serial uint64) (int, bool) {
	idx := sort.Search(len(p.available), func(i int) bool { return p.available[i] >= serial })
	return idx, idx < len(p.available) && p.available[idx] == serial
}

func (p *Pool) insert(serial uint64) {
	idx, found := p.search(serial)
	if found {
		return
	}
	p.available = append(p.available, 0)
	copy(p.available[idx+1:], p.available[idx:])
	p.available[idx] = serial
}

func (p *Pool) remove(serial uint64) {
	idx, found := p.search(serial)
	if !found {
		return
	}
	p.available = append(p.available[:idx], p.available[idx+1:]...)
}

func checkBatch(serials []uint64) error {
	seen := make(map[uint64]struct{}, len(serials))
	for _, serial := range serials {
		if _, ok := seen[serial]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateInBatch, serial)
		}
		seen[serial] = struct{}{}
	}
	return nil
}

type poolRecord struct {
	Registered []uint64 `json:"registered"`
	Available  []uint64 `json:"available"`
}

// MarshalJSON encodes the pool as sorted serial lists.
func (p *Pool) MarshalJSON() ([]byte, error) {
	registered := make([]uint64, 0, len(p.registered))
	for serial := range p.registered {
		registered = append(registered, serial)
	}
	sort.Slice(registered, func(i, j int) bool { return registered[i] < registered[j] })

	available := p.available
	if available == nil {
		available = []uint64{}
	}
	return json.Marshal(poolRecord{Registered: registered, Available: available})
}

// UnmarshalJSON decodes a pool and checks that available is a subset of registered.
func (p *Pool) UnmarshalJSON(data []byte) error {
	var rec poolRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	next := New()
	for _, serial := range rec.Registered {
		next.registered[serial] = struct{}{}
	}
	for _, serial := range rec.Available {
		if _, ok := next.registered[serial]; !ok {
			return fmt.Errorf("pool: available serial %d is not registered", serial)
		}
		next.insert(serial)
	}
	*p = *next
	return nil
}
