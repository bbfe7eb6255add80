package oracle

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"errors"
	"fmt"
	"math/big"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tos-network/xaccount/params"
)

// Signature schemes understood by LocalVerifier.
const (
	SchemeSecp256k1 = "secp256k1"
	SchemeSecp256r1 = "secp256r1"
	SchemeEd25519   = "ed25519"
)

// ErrUnknownScheme indicates a LocalVerifier configured with a scheme it
// cannot dispatch.
var ErrUnknownScheme = errors.New("oracle: unknown signature scheme")

const verdictCacheBytes = 16 << 20

// LocalVerifier is the in-process reference oracle backend. Signature checks
// run natively per scheme; native tx hash checks are answered from an
// attestation store. Signature verdicts are memoized: verification is pure,
// and replay-heavy workloads re-check identical triples.
type LocalVerifier struct {
	scheme string
	store  *Store
	cache  *fastcache.Cache
}

// NewLocalVerifier returns a verifier for the given signature scheme. An
// empty scheme infers one from the owner key length (32 bytes ed25519,
// 33 or 65 bytes secp256k1). store may be nil, in which case native tx
// hash checks report the backend unavailable.
func NewLocalVerifier(scheme string, store *Store) *LocalVerifier {
	return &LocalVerifier{
		scheme: scheme,
		store:  store,
		cache:  fastcache.New(verdictCacheBytes),
	}
}

func inferScheme(ownerKey []byte) string {
	switch len(ownerKey) {
	case ed25519.PublicKeySize:
		return SchemeEd25519
	case 33, 65:
		return SchemeSecp256k1
	default:
		return ""
	}
}

// VerifySignature checks sig over msgHash against ownerKey. Malformed
// signatures are a negative verdict, not a failure; an empty owner key or
// an undispatchable scheme is a failed call.
func (v *LocalVerifier) VerifySignature(ownerKey []byte, msgHash common.Hash, sig []byte) (bool, error) {
	if len(ownerKey) == 0 || len(ownerKey) > params.MaxOwnerKeyLen {
		return false, ErrInvalidInput
	}
	scheme := v.scheme
	if scheme == "" {
		scheme = inferScheme(ownerKey)
	}

	key := verdictKey(ownerKey, msgHash, sig)
	if got, ok := v.cache.HasGet(nil, key); ok && len(got) == 1 {
		return got[0] == 1, nil
	}

	var verdict bool
	switch scheme {
	case SchemeSecp256k1:
		verdict = verifySecp256k1(ownerKey, msgHash, sig)
	case SchemeSecp256r1:
		verdict = verifySecp256r1(ownerKey, msgHash, sig)
	case SchemeEd25519:
		verdict = verifyEd25519(ownerKey, msgHash, sig)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownScheme, v.scheme)
	}

	if verdict {
		v.cache.Set(key, []byte{1})
	} else {
		v.cache.Set(key, []byte{0})
	}
	return verdict, nil
}

// VerifyNativeTxHash answers whether txHash is attested to authorize
// payloadHash for ownerKey on (namespace, chainID). A missing attestation
// is a negative verdict; a missing or failing store is a failed call.
func (v *LocalVerifier) VerifyNativeTxHash(namespace, chainID string, ownerKey []byte, payloadHash common.Hash, txHash []byte) (bool, error) {
	if namespace == "" || chainID == "" || len(ownerKey) == 0 {
		return false, ErrInvalidInput
	}
	if len(txHash) == 0 {
		return false, nil
	}
	if v.store == nil {
		return false, fmt.Errorf("%w: no attestation store", ErrBackendUnavailable)
	}
	att, err := v.store.Lookup(namespace, chainID, txHash)
	if errors.Is(err, ErrAttestationNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return att.PayloadHash == payloadHash && bytes.Equal(att.Owner, ownerKey), nil
}

func verdictKey(ownerKey []byte, msgHash common.Hash, sig []byte) []byte {
	buf := make([]byte, 0, len(ownerKey)+common.HashLength+len(sig))
	buf = append(buf, ownerKey...)
	buf = append(buf, msgHash[:]...)
	buf = append(buf, sig...)
	return crypto.Keccak256(buf)
}

// verifySecp256k1 checks an [R || S] (or [R || S || V], V ignored)
// signature against a 33- or 65-byte secp256k1 public key.
func verifySecp256k1(ownerKey []byte, msgHash common.Hash, sig []byte) bool {
	switch len(sig) {
	case 64:
	case 65:
		sig = sig[:64]
	default:
		return false
	}
	if len(ownerKey) != 33 && len(ownerKey) != 65 {
		return false
	}
	return crypto.VerifySignature(ownerKey, msgHash[:], sig)
}

// verifySecp256r1 checks an [R || S] signature against an uncompressed
// 65-byte P-256 public key.
func verifySecp256r1(ownerKey []byte, msgHash common.Hash, sig []byte) bool {
	if len(ownerKey) != 65 || ownerKey[0] != 0x04 || len(sig) != 64 {
		return false
	}
	x, y := elliptic.Unmarshal(elliptic.P256(), ownerKey)
	if x == nil || y == nil {
		return false
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	return ecdsa.Verify(&ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, msgHash[:], r, s)
}

func verifyEd25519(ownerKey []byte, msgHash common.Hash, sig []byte) bool {
	if len(ownerKey) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(ownerKey), msgHash[:], sig)
}
