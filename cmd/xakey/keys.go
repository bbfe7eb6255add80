package main

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/xaccount/oracle"
)

// ownerKey is loaded owner key material able to produce signature proofs
// for its scheme. Public holds the canonical owner key bytes bound into
// the account identity.
type ownerKey struct {
	Scheme string
	Public []byte
	secret []byte
	sign   func(digest common.Hash) ([]byte, error)
}

// Sign produces a proof over digest in the scheme's wire format.
func (k *ownerKey) Sign(digest common.Hash) ([]byte, error) {
	return k.sign(digest)
}

// passphraseReader defers passphrase retrieval until a keystore file
// actually needs one.
func passphraseReader(ctx *cli.Context) func() string {
	return func() string { return getPassphrase(ctx, false) }
}

func ownerKeyFromECDSA(priv *ecdsa.PrivateKey) *ownerKey {
	return &ownerKey{
		Scheme: oracle.SchemeSecp256k1,
		Public: crypto.CompressPubkey(&priv.PublicKey),
		secret: crypto.FromECDSA(priv),
		sign: func(digest common.Hash) ([]byte, error) {
			return crypto.Sign(digest[:], priv)
		},
	}
}

func ownerKeyFromEd25519(priv ed25519.PrivateKey) *ownerKey {
	pub := priv.Public().(ed25519.PublicKey)
	return &ownerKey{
		Scheme: oracle.SchemeEd25519,
		Public: append([]byte(nil), pub...),
		secret: append([]byte(nil), priv.Seed()...),
		sign: func(digest common.Hash) ([]byte, error) {
			return ed25519.Sign(priv, digest[:]), nil
		},
	}
}

func ownerKeyFromP256(priv *ecdsa.PrivateKey) *ownerKey {
	scalar := make([]byte, 32)
	priv.D.FillBytes(scalar)
	return &ownerKey{
		Scheme: oracle.SchemeSecp256r1,
		Public: elliptic.Marshal(elliptic.P256(), priv.PublicKey.X, priv.PublicKey.Y),
		secret: scalar,
		sign: func(digest common.Hash) ([]byte, error) {
			r, s, err := ecdsa.Sign(crand.Reader, priv, digest[:])
			if err != nil {
				return nil, err
			}
			sig := make([]byte, 64)
			r.FillBytes(sig[:32])
			s.FillBytes(sig[32:])
			return sig, nil
		},
	}
}

// loadOwnerKey reads key material from path. A JSON document is decrypted
// as a keystore file (always secp256k1); anything else is a hex-encoded
// raw key interpreted per scheme. The passphrase callback runs only for
// keystore files, so raw key loads never prompt.
func loadOwnerKey(path string, passphrase func() string, scheme string) (*ownerKey, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(strings.TrimSpace(string(content)), "{") {
		key, err := keystore.DecryptKey(content, passphrase())
		if err != nil {
			return nil, fmt.Errorf("decrypt keystore: %w", err)
		}
		return ownerKeyFromECDSA(key.PrivateKey), nil
	}

	raw, err := decodeKeyHex(string(content))
	if err != nil {
		return nil, err
	}
	switch scheme {
	case oracle.SchemeSecp256k1:
		priv, err := crypto.ToECDSA(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid secp256k1 private key: %w", err)
		}
		return ownerKeyFromECDSA(priv), nil
	case oracle.SchemeEd25519:
		priv, err := ed25519PrivateFromBytes(raw)
		if err != nil {
			return nil, err
		}
		return ownerKeyFromEd25519(priv), nil
	case oracle.SchemeSecp256r1:
		priv, err := secp256r1PrivateFromBytes(raw)
		if err != nil {
			return nil, err
		}
		return ownerKeyFromP256(priv), nil
	default:
		return nil, fmt.Errorf("unsupported scheme %q", scheme)
	}
}

func decodeKeyHex(content string) ([]byte, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	if trimmed == "" {
		return nil, fmt.Errorf("empty private key file")
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data for private key: %w", err)
	}
	return raw, nil
}

func ed25519PrivateFromBytes(raw []byte) (ed25519.PrivateKey, error) {
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(append([]byte(nil), raw...)), nil
	default:
		return nil, fmt.Errorf("invalid ed25519 private key size: %d", len(raw))
	}
}

func secp256r1PrivateFromBytes(raw []byte) (*ecdsa.PrivateKey, error) {
	if len(raw) == 0 || len(raw) > 32 {
		return nil, fmt.Errorf("invalid secp256r1 private key size: %d", len(raw))
	}
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(raw)
	if d.Sign() <= 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("invalid secp256r1 private scalar")
	}
	out := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve},
		D:         d,
	}
	out.PublicKey.X, out.PublicKey.Y = curve.ScalarBaseMult(d.Bytes())
	if out.PublicKey.X == nil || out.PublicKey.Y == nil {
		return nil, fmt.Errorf("invalid secp256r1 public key")
	}
	return out, nil
}
