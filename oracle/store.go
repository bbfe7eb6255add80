package oracle

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"golang.org/x/crypto/sha3"

	"github.com/tos-network/xaccount/params"
)

const (
	attestationVersion = uint8(1)
	maxTxHashLen       = 128
)

// attestKeyPrefix namespaces attestation records inside the database.
var attestKeyPrefix = []byte("xat1")

// Attestation records that a native transaction txHash observed on
// (namespace, chainID) authorizes payloadHash for owner. How observations
// are produced is out of scope; the store only answers lookups.
type Attestation struct {
	Namespace   string
	ChainID     string
	Owner       []byte
	PayloadHash common.Hash
	TxHash      []byte
}

type attestRecord struct {
	Version     uint8
	Namespace   string
	ChainID     string
	Owner       []byte
	PayloadHash common.Hash
	TxHash      []byte
}

// Store is a leveldb-backed attestation database used by LocalVerifier to
// answer native tx hash checks.
type Store struct {
	db *leveldb.DB
}

// OpenStore opens (or creates) an attestation store at path.
func OpenStore(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("oracle: open attestation store: %v", err)
	}
	return &Store{db: db}, nil
}

// OpenMemoryStore returns an in-memory attestation store.
func OpenMemoryStore() *Store {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		// Memory storage cannot fail to open.
		panic(err)
	}
	return &Store{db: db}
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// attestKey derives the record key from the lookup tuple. Fields are
// length-prefixed before hashing so no two tuples share an encoding.
//
// Digest input layout:
//
//	u16(len(namespace)) || namespace || u16(len(chainID)) || chainID || u16(len(txHash)) || txHash
func attestKey(namespace, chainID string, txHash []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	var l [2]byte
	for _, field := range [][]byte{[]byte(namespace), []byte(chainID), txHash} {
		binary.BigEndian.PutUint16(l[:], uint16(len(field)))
		h.Write(l[:])
		h.Write(field)
	}
	return h.Sum(append([]byte{}, attestKeyPrefix...))
}

func validateAttestation(a *Attestation) error {
	if a.Namespace == "" || len(a.Namespace) > params.MaxChainTagLen {
		return ErrInvalidInput
	}
	if a.ChainID == "" || len(a.ChainID) > params.MaxChainTagLen {
		return ErrInvalidInput
	}
	if len(a.Owner) == 0 || len(a.Owner) > params.MaxOwnerKeyLen {
		return ErrInvalidInput
	}
	if len(a.TxHash) == 0 || len(a.TxHash) > maxTxHashLen {
		return ErrInvalidInput
	}
	return nil
}

// Attest persists a. Re-attesting the same (namespace, chainID, txHash)
// tuple overwrites the previous record.
func (s *Store) Attest(a Attestation) error {
	if err := validateAttestation(&a); err != nil {
		return err
	}
	rec := attestRecord{
		Version:     attestationVersion,
		Namespace:   a.Namespace,
		ChainID:     a.ChainID,
		Owner:       a.Owner,
		PayloadHash: a.PayloadHash,
		TxHash:      a.TxHash,
	}
	body, err := rlp.EncodeToBytes(&rec)
	if err != nil {
		return fmt.Errorf("oracle: encode attestation: %v", err)
	}
	return s.db.Put(attestKey(a.Namespace, a.ChainID, a.TxHash), body, nil)
}

// Lookup returns the attestation stored for (namespace, chainID, txHash),
// or ErrAttestationNotFound.
func (s *Store) Lookup(namespace, chainID string, txHash []byte) (*Attestation, error) {
	body, err := s.db.Get(attestKey(namespace, chainID, txHash), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrAttestationNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeAttestation(body)
}

// Has reports whether an attestation exists for (namespace, chainID, txHash).
func (s *Store) Has(namespace, chainID string, txHash []byte) (bool, error) {
	return s.db.Has(attestKey(namespace, chainID, txHash), nil)
}

// List returns every stored attestation. Intended for tooling; the result
// order follows the key digests, not insertion order.
func (s *Store) List() ([]Attestation, error) {
	iter := s.db.NewIterator(util.BytesPrefix(attestKeyPrefix), nil)
	defer iter.Release()

	var out []Attestation
	for iter.Next() {
		a, err := decodeAttestation(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeAttestation(body []byte) (*Attestation, error) {
	var rec attestRecord
	if err := rlp.DecodeBytes(body, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if rec.Version != attestationVersion {
		return nil, fmt.Errorf("%w: unknown attestation version %d", ErrMalformedResult, rec.Version)
	}
	return &Attestation{
		Namespace:   rec.Namespace,
		ChainID:     rec.ChainID,
		Owner:       rec.Owner,
		PayloadHash: rec.PayloadHash,
		TxHash:      rec.TxHash,
	}, nil
}
