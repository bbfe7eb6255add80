package registry

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tos-network/xaccount/account"
	"github.com/tos-network/xaccount/params"
)

// AccountDeployedTopic identifies AccountDeployed logs. The registry emits
// one per first deployment, never on idempotent re-deploys.
var AccountDeployedTopic = crypto.Keccak256Hash([]byte("AccountDeployed(bytes,address,string,string)"))

// AccountDeployedEvent is the decoded body of an AccountDeployed log.
type AccountDeployedEvent struct {
	Owner          []byte
	Account        common.Address
	ChainNamespace string
	ChainID        string
}

const deriveCacheSize = 4096

// deriveCache memoizes address derivation. Derivation is pure in the
// canonical identity bytes and the type hash, so entries never invalidate.
var deriveCache, _ = lru.New(deriveCacheSize)

// Address derives the account address for canonical identity bytes under
// typeHash. The derivation is the CREATE2 scheme with the registry as
// deployer, the identity digest as salt and the type hash as init code.
func Address(canonicalIdentity []byte, typeHash common.Hash) common.Address {
	salt := crypto.Keccak256Hash(canonicalIdentity)
	return crypto.CreateAddress2(params.AccountRegistryAddress, salt, typeHash.Bytes())
}

// DeriveAddress computes the address id's account deploys at. It reads no
// account state and never mutates anything; the same identity always maps
// to the same address for as long as its chain type registration stands.
func DeriveAddress(db vm.StateDB, id account.Identity) (common.Address, error) {
	canonical, err := account.EncodeIdentity(id)
	if err != nil {
		return common.Address{}, err
	}
	typeHash, ok := LookupChainType(db, id.ChainNamespace)
	if !ok {
		return common.Address{}, ErrChainTypeUnregistered
	}
	key := crypto.Keccak256Hash(canonical, typeHash.Bytes())
	if cached, hit := deriveCache.Get(key); hit {
		deriveCacheHitMeter.Mark(1)
		return cached.(common.Address), nil
	}
	deriveCacheMissMeter.Mark(1)
	addr := Address(canonical, typeHash)
	deriveCache.Add(key, addr)
	return addr, nil
}

// Deploy materializes id's account at its derived address. Deployment is
// idempotent: an already-initialized account is returned as-is with no
// state change and no log. First deployment requires a bound verifier
// implementation for the chain type, initializes identity state with a
// zero nonce, records the implementation class and emits an
// AccountDeployed log. Funds sent to the address before deployment are
// retained.
func Deploy(db vm.StateDB, id account.Identity) (common.Address, error) {
	addr, err := DeriveAddress(db, id)
	if err != nil {
		return common.Address{}, err
	}
	if account.Exists(db, addr) {
		return addr, nil
	}
	if !ImplementationBound(db, id.ChainNamespace) {
		return common.Address{}, ErrImplementationNotBound
	}
	typeHash, _ := LookupChainType(db, id.ChainNamespace)

	if !db.Exist(addr) {
		db.CreateAccount(addr)
	}
	db.SetNonce(addr, 1)
	account.WriteImplementationClass(db, addr, typeHash)
	if err := account.Initialize(db, addr, id); err != nil {
		return common.Address{}, err
	}
	db.AddLog(accountDeployedLog(id, addr))
	accountDeployMeter.Mark(1)
	log.Debug("Deployed cross-chain account", "address", addr, "namespace", id.ChainNamespace, "chainid", id.ChainID)
	return addr, nil
}

func accountDeployedLog(id account.Identity, addr common.Address) *types.Log {
	body, _ := rlp.EncodeToBytes(&AccountDeployedEvent{
		Owner:          id.Owner,
		Account:        addr,
		ChainNamespace: id.ChainNamespace,
		ChainID:        id.ChainID,
	})
	return &types.Log{
		Address: params.AccountRegistryAddress,
		Topics: []common.Hash{
			AccountDeployedTopic,
			crypto.Keccak256Hash(id.Owner),
			common.BytesToHash(addr.Bytes()),
		},
		Data: body,
	}
}

// DecodeAccountDeployed parses an AccountDeployed log body.
func DecodeAccountDeployed(l *types.Log) (*AccountDeployedEvent, error) {
	if len(l.Topics) == 0 || l.Topics[0] != AccountDeployedTopic {
		return nil, fmt.Errorf("not an AccountDeployed log")
	}
	var ev AccountDeployedEvent
	if err := rlp.DecodeBytes(l.Data, &ev); err != nil {
		return nil, fmt.Errorf("corrupt AccountDeployed log: %v", err)
	}
	return &ev, nil
}
