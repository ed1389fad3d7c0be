package ownership

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Record states that Owner holds Asset #Serial.
type Record struct {
	Asset  common.Address `json:"asset"`
	Serial uint64         `json:"serial"`
	Owner  common.Address `json:"owner"`
}

type key struct {
	asset  common.Address
	serial uint64
}

// Static resolves ownership from a fixed table, typically a holder snapshot
// exported off-chain. Unknown serials resolve to the zero address.
type Static struct {
	mu     sync.RWMutex
	owners map[key]common.Address
}

func NewStatic(records []Record) *Static {
	s := &Static{owners: make(map[key]common.Address, len(records))}
	for _, r := range records {
		s.owners[key{r.Asset, r.Serial}] = r.Owner
	}
	return s
}

// LoadStatic reads a JSON array of records from path.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holdings: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode holdings %s: %w", path, err)
	}
	return NewStatic(records), nil
}

// Set records a new owner, replacing any previous one.
func (s *Static) Set(asset common.Address, serial uint64, owner common.Address) {
	s.mu.Lock()
	s.owners[key{asset, serial}] = owner
	s.mu.Unlock()
}

func (s *Static) OwnerOf(ctx context.Context, asset common.Address, serial uint64) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}
	s.mu.RLock()
	owner := s.owners[key{asset, serial}]
	s.mu.RUnlock()
	return owner, nil
}

func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.owners)
}
