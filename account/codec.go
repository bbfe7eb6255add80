package account

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tos-network/xaccount/params"
)

const (
	identityPrefix  = "TOSXA1"
	identityVersion = uint8(1)
)

type identityEnvelope struct {
	Version        uint8
	ChainNamespace string
	ChainID        string
	Owner          []byte
}

// ValidateIdentity checks identity field bounds.
func ValidateIdentity(id *Identity) error {
	if id == nil {
		return ErrInvalidIdentity
	}
	if strings.TrimSpace(id.ChainNamespace) == "" || len(id.ChainNamespace) > params.MaxChainTagLen {
		return fmt.Errorf("%w: chain namespace", ErrInvalidIdentity)
	}
	if strings.TrimSpace(id.ChainID) == "" || len(id.ChainID) > params.MaxChainTagLen {
		return fmt.Errorf("%w: chain id", ErrInvalidIdentity)
	}
	if len(id.Owner) == 0 || len(id.Owner) > params.MaxOwnerKeyLen {
		return fmt.Errorf("%w: owner key", ErrInvalidIdentity)
	}
	return nil
}

// EncodeIdentity serializes id into its canonical byte form. Address
// derivation and account state both consume this encoding, so two
// identities are the same account exactly when their canonical bytes match.
func EncodeIdentity(id Identity) ([]byte, error) {
	if err := ValidateIdentity(&id); err != nil {
		return nil, err
	}
	env := identityEnvelope{
		Version:        identityVersion,
		ChainNamespace: id.ChainNamespace,
		ChainID:        id.ChainID,
		Owner:          id.Owner,
	}
	body, err := rlp.EncodeToBytes(&env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	out := make([]byte, len(identityPrefix)+len(body))
	copy(out, []byte(identityPrefix))
	copy(out[len(identityPrefix):], body)
	return out, nil
}

// DecodeIdentity parses canonical identity bytes.
func DecodeIdentity(data []byte) (*Identity, error) {
	if len(data) <= len(identityPrefix) || !bytes.Equal(data[:len(identityPrefix)], []byte(identityPrefix)) {
		return nil, ErrInvalidIdentity
	}
	var env identityEnvelope
	if err := rlp.DecodeBytes(data[len(identityPrefix):], &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if env.Version != identityVersion {
		return nil, ErrInvalidIdentity
	}
	id := &Identity{
		ChainNamespace: env.ChainNamespace,
		ChainID:        env.ChainID,
		Owner:          env.Owner,
	}
	if err := ValidateIdentity(id); err != nil {
		return nil, err
	}
	return id, nil
}
