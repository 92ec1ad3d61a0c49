package liquidation

import (
	"sync"

	"flashbets/native/common"
)

// epochQuotaStore is an in-memory native/common.Store backing the
// per-keeper, per-epoch liquidation-attempt cap. It is deliberately
// separate from the per-second rate.Limiter in Engine: the limiter smooths
// a keeper's burst rate, this quota bounds its total attempt volume across
// an epoch, so a keeper pacing itself just under the per-second limit still
// cannot exhaust a market's candidates by attrition.
type epochQuotaStore struct {
	mu       sync.Mutex
	counters map[string]common.QuotaNow
}

func newEpochQuotaStore() *epochQuotaStore {
	return &epochQuotaStore{counters: make(map[string]common.QuotaNow)}
}

func (s *epochQuotaStore) key(module string, epoch uint64, addr []byte) string {
	return module + "/" + string(addr)
}

func (s *epochQuotaStore) Load(module string, epoch uint64, addr []byte) (common.QuotaNow, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now, ok := s.counters[s.key(module, epoch, addr)]
	return now, ok, nil
}

func (s *epochQuotaStore) Save(module string, epoch uint64, addr []byte, counters common.QuotaNow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[s.key(module, epoch, addr)] = counters
	return nil
}
