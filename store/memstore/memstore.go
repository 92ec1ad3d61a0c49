// Package memstore is an in-memory implementation of the store package's
// persistence interfaces, used by tests and local development in place of
// a real host-backed key-value layer.
package memstore

import (
	"sync"

	"flashbets/chain"
	"flashbets/oracle"
	"flashbets/position"
	"flashbets/store"
)

// Store implements every interface in the store package over plain Go
// maps guarded by a single mutex, mirroring the narrow Get/Put contract
// the engine's components are wired against.
type Store struct {
	mu sync.Mutex

	markets   map[[16]byte]*store.MarketRecord
	positions map[uint64]*position.Position
	vault     *store.VaultSnapshot
	chains    map[string]*chain.Chain
	feeds     map[[16]byte]*oracle.Feed
	users     map[string]*store.UserAccount
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		markets:   make(map[[16]byte]*store.MarketRecord),
		positions: make(map[uint64]*position.Position),
		chains:    make(map[string]*chain.Chain),
		feeds:     make(map[[16]byte]*oracle.Feed),
		users:     make(map[string]*store.UserAccount),
	}
}

func (s *Store) GetMarket(id [16]byte) (*store.MarketRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	return m, ok, nil
}

func (s *Store) PutMarket(record *store.MarketRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[record.ID] = record
	return nil
}

func (s *Store) GetPosition(id uint64) (*position.Position, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	return p, ok, nil
}

func (s *Store) PutPosition(p *position.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[p.ID] = p
	return nil
}

func (s *Store) DeletePosition(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, id)
	return nil
}

func (s *Store) GetVault() (*store.VaultSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vault == nil {
		return nil, false, nil
	}
	return s.vault, true, nil
}

func (s *Store) PutVault(snapshot *store.VaultSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vault = snapshot
	return nil
}

func (s *Store) GetChain(owner string) (*chain.Chain, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chains[owner]
	return c, ok, nil
}

func (s *Store) PutChain(owner string, c *chain.Chain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains[owner] = c
	return nil
}

func (s *Store) DeleteChain(owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chains, owner)
	return nil
}

func (s *Store) GetFeed(marketID [16]byte) (*oracle.Feed, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feeds[marketID]
	return f, ok, nil
}

func (s *Store) PutFeed(marketID [16]byte, feed *oracle.Feed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[marketID] = feed
	return nil
}

func (s *Store) GetUser(addr string) (*store.UserAccount, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[addr]
	return u, ok, nil
}

func (s *Store) PutUser(account *store.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[account.Address] = account
	return nil
}
