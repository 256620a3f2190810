// Package peerid provides the peer identity handed to every simulated oracle
// node. An identity is a secp256k1 node key; peers know each other by the
// enode ID derived from its public key and dial each other through enode URLs.
//
// The text encoding (used in configuration files and the run summary) is the
// hex private key, so an identity survives a round trip through YAML/JSON and
// a fuzz run can be replayed with the same peers.

package peerid

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/p2p/enode"
)

// Identity is a peer's node key.
type Identity struct {
	key *ecdsa.PrivateKey
}

// Generate creates a fresh random identity.
func Generate() (Identity, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Identity{}, err
	}
	return Identity{key: key}, nil
}

// FromKey wraps an existing private key.
func FromKey(key *ecdsa.PrivateKey) Identity {
	return Identity{key: key}
}

// FromString parses a hex encoded private key, with or without "0x" prefix.
func FromString(str string) (Identity, error) {
	str = strings.TrimPrefix(strings.TrimSpace(str), "0x")
	if str == "" {
		return Identity{}, errors.New("empty peer identity")
	}
	key, err := crypto.HexToECDSA(str)
	if err != nil {
		return Identity{}, err
	}
	return Identity{key: key}, nil
}

// Empty reports whether the identity holds no key.
func (id Identity) Empty() bool {
	return id.key == nil
}

// ID is the enode ID other peers know this identity by.
func (id Identity) ID() enode.ID {
	return enode.PubkeyToIDV4(&id.key.PublicKey)
}

// String returns the enode ID as hex. It is stable for the lifetime of the key.
func (id Identity) String() string {
	if id.Empty() {
		return ""
	}
	return id.ID().String()
}

// URL returns the enode URL the peer listens on at 127.0.0.1:port.
func (id Identity) URL(port int) string {
	return enode.NewV4(&id.key.PublicKey, net.IPv4(127, 0, 0, 1), port, port).URLv4()
}

// Key exposes the private key.
func (id Identity) Key() *ecdsa.PrivateKey {
	return id.key
}

// MarshalText encodes the private key as 0x-prefixed hex.
func (id Identity) MarshalText() ([]byte, error) {
	if id.Empty() {
		return nil, errors.New("empty peer identity")
	}
	return []byte(hexutil.Encode(crypto.FromECDSA(id.key))), nil
}

// UnmarshalText decodes a hex private key.
func (id *Identity) UnmarshalText(input []byte) error {
	res, err := FromString(string(input))
	if err != nil {
		return err
	}
	*id = res
	return nil
}

// FakeKey derives a deterministic key from n. Same n, same key.
// Meant for tests and reproducible local runs only.
func FakeKey(n int) *ecdsa.PrivateKey {
	seed := make([]byte, 8)
	binary.BigEndian.PutUint64(seed, uint64(n))
	key, err := crypto.ToECDSA(crypto.Keccak256(seed))
	if err != nil {
		panic(err)
	}
	return key
}
