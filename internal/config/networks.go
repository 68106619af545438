package config

import (
	_ "embed"
	"fmt"
	"sort"

	"raffle/internal/oracle"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

//go:embed networks.toml
var defaultNetworks string

// Network holds the raffle parameters of one deployment target.
type Network struct {
	Name                 string `toml:"-"`
	ChainID              uint64 `toml:"chainId"`
	Interval             int64  `toml:"interval"`
	EntranceFee          string `toml:"entranceFee"`
	SubscriptionID       uint64 `toml:"subscriptionId"`
	GasLane              string `toml:"gasLane"`
	CallbackGasLimit     uint32 `toml:"callbackGasLimit"`
	RequestConfirmations uint16 `toml:"requestConfirmations"`
	VRFCoordinator       string `toml:"vrfCoordinator"`
}

// Networks is the network table.
type Networks struct {
	Development []string            `toml:"development"`
	Networks    map[string]*Network `toml:"networks"`
}

// LoadNetworks decodes the table at path, or the built-in one when path is
// empty.
func LoadNetworks(path string) (*Networks, error) {
	var n Networks
	if path == "" {
		if _, err := toml.Decode(defaultNetworks, &n); err != nil {
			return nil, fmt.Errorf("decode built-in networks: %w", err)
		}
	} else if _, err := toml.DecodeFile(path, &n); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	for name, nw := range n.Networks {
		nw.Name = name
	}
	return &n, nil
}

// Lookup returns the named network.
func (n *Networks) Lookup(name string) (*Network, error) {
	nw, ok := n.Networks[name]
	if !ok {
		return nil, fmt.Errorf("unknown network %q", name)
	}
	return nw, nil
}

// IsDevelopment reports whether name runs against the mock coordinator.
func (n *Networks) IsDevelopment(name string) bool {
	for _, d := range n.Development {
		if d == name {
			return true
		}
	}
	return false
}

// Names lists the configured networks alphabetically.
func (n *Networks) Names() []string {
	names := make([]string, 0, len(n.Networks))
	for name := range n.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fee parses the entrance fee in wei.
func (nw *Network) Fee() (*uint256.Int, error) {
	if nw.EntranceFee == "" {
		return nil, fmt.Errorf("network %s: entrance fee not configured", nw.Name)
	}
	fee, err := uint256.FromDecimal(nw.EntranceFee)
	if err != nil {
		return nil, fmt.Errorf("network %s: entrance fee %q: %w", nw.Name, nw.EntranceFee, err)
	}
	if fee.IsZero() {
		return nil, fmt.Errorf("network %s: entrance fee must be positive", nw.Name)
	}
	return fee, nil
}

// RequestParams returns the randomness request parameters of the network.
func (nw *Network) RequestParams() oracle.RequestParams {
	confirmations := nw.RequestConfirmations
	if confirmations == 0 {
		confirmations = oracle.DefaultRequestConfirmations
	}
	return oracle.RequestParams{
		KeyHash:              common.HexToHash(nw.GasLane),
		SubscriptionID:       nw.SubscriptionID,
		RequestConfirmations: confirmations,
		CallbackGasLimit:     nw.CallbackGasLimit,
		NumWords:             1,
	}
}
