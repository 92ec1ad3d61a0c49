package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// SeedMarket describes one market to bootstrap at genesis, read from a
// human-edited YAML file rather than the TOML tunables file: operators
// hand-author this list, so it favors YAML's comment-friendly syntax over
// TOML's stricter table layout.
type SeedMarket struct {
	Name         string   `yaml:"name"`
	Outcomes     []string `yaml:"outcomes"`
	AMMKind      string   `yaml:"amm_kind"`
	SettleSlot   uint64   `yaml:"settle_slot"`
	LiquidityUSD float64  `yaml:"liquidity_usd"`
}

// SeedFile is the top-level shape of a markets.yaml bootstrap file.
type SeedFile struct {
	Markets []SeedMarket `yaml:"markets"`
}

// LoadSeed reads and validates a bootstrap market list. A missing file is
// not an error: a fresh deployment with no seed markets is valid, it just
// starts empty.
func LoadSeed(path string) ([]SeedMarket, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, err
	}
	for i, m := range seed.Markets {
		if len(m.Outcomes) < 2 {
			return nil, &SeedError{Market: m.Name, Index: i, Reason: "fewer than two outcomes"}
		}
	}
	return seed.Markets, nil
}

// SeedError reports a malformed entry in the seed file, identified by its
// position so the operator can find it without re-parsing the YAML.
type SeedError struct {
	Market string
	Index  int
	Reason string
}

func (e *SeedError) Error() string {
	return "seed market " + e.Market + ": " + e.Reason
}
