package main

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/xaccount/account"
	"github.com/tos-network/xaccount/oracle"
	"github.com/tos-network/xaccount/params"
	"github.com/tos-network/xaccount/registry"
	"github.com/tos-network/xaccount/sysaction"
	"github.com/tos-network/xaccount/xcall"
)

// localTreasury is the sender of system action transactions in local runs.
var localTreasury = common.BytesToAddress(crypto.Keccak256([]byte("xakey/local/treasury"))[12:])

var (
	fundFlag = &cli.StringFlag{
		Name:  "fund",
		Usage: "wei credited to the derived account address before deployment",
	}
	proofFlag = &cli.StringFlag{
		Name:  "proof",
		Usage: "hex encoded proof to submit instead of signing locally",
	}
)

var commandExec = &cli.Command{
	Name:      "exec",
	Usage:     "run a payload through a local in-memory chain",
	ArgsUsage: "<keyfile>",
	Description: `
Deploy the owner's proxy account on a fresh in-memory chain and execute a
payload against it, exercising the full verification pipeline: address
derivation, counterfactual funding, deployment, digest computation, proof
verification and the payload sub-call.

The run is entirely local. Nothing is broadcast anywhere; the command
exists to validate payloads and proofs before submitting them for real.
`,
	Flags: append([]cli.Flag{
		passphraseFlag,
		jsonFlag,
		fundFlag,
		proofFlag,
		configFileFlag,
		namespaceFlag,
		chainIDFlag,
		schemeFlag,
		storeFlag,
	}, payloadFlags...),
	Action: func(ctx *cli.Context) error {
		cfg := makeConfig(ctx)

		keyfilepath := ctx.Args().First()
		if keyfilepath == "" {
			Fatalf("Keyfile must be given as argument")
		}
		key, err := loadOwnerKey(keyfilepath, passphraseReader(ctx), cfg.Scheme)
		if err != nil {
			Fatalf("Error loading keyfile: %v", err)
		}

		now := uint64(time.Now().Unix())
		p, err := payloadFromFlags(ctx, 0)
		if err != nil {
			Fatalf("Invalid payload: %v", err)
		}
		if !ctx.IsSet(deadlineFlag.Name) {
			p.Deadline = now + 600
		}

		fund, err := parseBigFlag(ctx, fundFlag.Name)
		if err != nil {
			Fatalf("Invalid fund amount: %v", err)
		}
		var proof []byte
		if raw := ctx.String(proofFlag.Name); raw != "" {
			if proof, err = decodeKeyHex(raw); err != nil {
				Fatalf("Invalid proof: %v", err)
			}
		}

		res, err := runLocalExecution(cfg, key, p, fund, proof, now)
		if err != nil {
			if res != nil {
				printExecResult(ctx, res)
			}
			Fatalf("Execution failed: %v", err)
		}
		printExecResult(ctx, res)
		return nil
	},
}

// execResult reports what one local run did. When execution fails the
// result still carries the deployment outcome and the digest.
type execResult struct {
	Account          common.Address                 `json:"account"`
	Owner            hexutil.Bytes                  `json:"owner"`
	Digest           common.Hash                    `json:"digest"`
	Proof            hexutil.Bytes                  `json:"proof"`
	NonceBefore      uint64                         `json:"nonceBefore"`
	NonceAfter       uint64                         `json:"nonceAfter"`
	GasUsed          uint64                         `json:"gasUsed"`
	AccountBalance   *hexutil.Big                   `json:"accountBalance"`
	RecipientBalance *hexutil.Big                   `json:"recipientBalance"`
	Executed         bool                           `json:"executed"`
	Deployed         *registry.AccountDeployedEvent `json:"deployed,omitempty"`
	PayloadExecuted  *account.PayloadExecutedEvent  `json:"payloadExecuted,omitempty"`
}

// Process-wide local verifiers, one per scheme and attestation store. The
// oracle binds implementations process-globally, so repeated runs must
// reuse the same verifier instance.
var (
	verifierMu sync.Mutex
	verifiers  = make(map[string]*oracle.LocalVerifier)
)

func verifierFor(scheme, storePath string) (*oracle.LocalVerifier, error) {
	verifierMu.Lock()
	defer verifierMu.Unlock()
	key := scheme + "\x00" + storePath
	if v, ok := verifiers[key]; ok {
		return v, nil
	}
	var store *oracle.Store
	if storePath != "" {
		var err error
		store, err = oracle.OpenStore(storePath)
		if err != nil {
			return nil, fmt.Errorf("open attestation store: %w", err)
		}
	}
	v := oracle.NewLocalVerifier(scheme, store)
	verifiers[key] = v
	return v, nil
}

func newRunState() (*state.StateDB, error) {
	return state.New(common.Hash{}, state.NewDatabase(rawdb.NewMemoryDatabase()), nil)
}

// runLocalExecution performs the whole deploy-and-execute cycle on a fresh
// in-memory state. proof overrides local signing when non-nil; tx hash
// based payloads always require it.
func runLocalExecution(cfg *xakeyConfig, key *ownerKey, p *account.Payload, fund *big.Int, proof []byte, now uint64) (*execResult, error) {
	if p.VerificationType == account.TxHashBased && proof == nil {
		return nil, fmt.Errorf("tx hash based payloads need --proof with the native transaction hash")
	}

	st, err := newRunState()
	if err != nil {
		return nil, err
	}
	typeHash := oracle.VMTypeHash(key.Scheme)
	verifier, err := verifierFor(key.Scheme, cfg.StorePath)
	if err != nil {
		return nil, err
	}
	if err := registry.RegisterChainType(st, cfg.Namespace, typeHash); err != nil {
		return nil, err
	}
	if err := registry.RegisterImplementation(st, cfg.Namespace, typeHash, verifier); err != nil {
		if errors.Is(err, oracle.ErrImplementationExists) {
			return nil, fmt.Errorf("scheme %q already bound to a different backend in this process: %w", key.Scheme, err)
		}
		return nil, err
	}
	xcall.Mount(params.VerifyOracleAddress, oracle.NewContract(verifier))

	id := account.Identity{
		ChainNamespace: cfg.Namespace,
		ChainID:        cfg.ChainID,
		Owner:          key.Public,
	}

	// Counterfactual funding: the derived address holds value before any
	// account exists at it.
	addr, err := registry.DeriveAddress(st, id)
	if err != nil {
		return nil, err
	}
	if fund != nil && fund.Sign() > 0 {
		st.AddBalance(addr, fund)
	}

	deployData, err := sysaction.MakeSysAction(sysaction.ActionAccountDeploy, registry.DeployAction{
		Identity: registry.IdentityArgsFrom(id),
	})
	if err != nil {
		return nil, err
	}
	gasDeploy, err := sysaction.Execute(localMsg{from: localTreasury, data: deployData}, st, now, big.NewInt(1))
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}

	eng := account.NewEngine(st, addr, nil, nil)
	res := &execResult{
		Account:     addr,
		Owner:       key.Public,
		GasUsed:     gasDeploy,
		NonceBefore: eng.Nonce(),
	}
	collectRunEvents(res, st)

	digest, err := eng.ComputePayloadHash(now, p)
	if err != nil {
		return res, err
	}
	res.Digest = digest
	if proof == nil {
		if proof, err = key.Sign(digest); err != nil {
			return res, err
		}
	}
	res.Proof = proof

	execData, err := sysaction.MakeSysAction(sysaction.ActionPayloadExecute, account.ExecuteAction{
		Account: addr,
		Payload: account.PayloadArgsFrom(p),
		Proof:   proof,
	})
	if err != nil {
		return res, err
	}
	gasExec, execErr := sysaction.Execute(localMsg{from: localTreasury, data: execData}, st, now, big.NewInt(2))
	res.GasUsed += gasExec
	res.NonceAfter = eng.Nonce()
	res.AccountBalance = (*hexutil.Big)(st.GetBalance(addr))
	res.RecipientBalance = (*hexutil.Big)(st.GetBalance(p.To))
	collectRunEvents(res, st)
	if execErr != nil {
		return res, execErr
	}
	res.Executed = true
	return res, nil
}

func collectRunEvents(res *execResult, st *state.StateDB) {
	for _, lg := range st.Logs() {
		if ev, err := registry.DecodeAccountDeployed(lg); err == nil {
			res.Deployed = ev
		}
		if ev, err := account.DecodePayloadExecuted(lg); err == nil {
			res.PayloadExecuted = ev
		}
	}
}

// localMsg satisfies sysaction.Msg for in-memory runs.
type localMsg struct {
	from  common.Address
	value *big.Int
	data  []byte
}

func (m localMsg) From() common.Address { return m.from }
func (m localMsg) To() *common.Address  { return &params.SystemActionAddress }
func (m localMsg) Value() *big.Int      { return m.value }
func (m localMsg) Data() []byte         { return m.data }

func printExecResult(ctx *cli.Context, res *execResult) {
	if ctx.Bool(jsonFlag.Name) {
		mustPrintJSON(res)
		return
	}
	fmt.Println("Account:  ", res.Account.Hex())
	fmt.Printf("Owner:     %x\n", []byte(res.Owner))
	if res.Digest != (common.Hash{}) {
		fmt.Println("Digest:   ", res.Digest.Hex())
	}
	if len(res.Proof) > 0 {
		fmt.Printf("Proof:     %x\n", []byte(res.Proof))
	}
	fmt.Printf("Nonce:     %d -> %d\n", res.NonceBefore, res.NonceAfter)
	fmt.Println("Gas used: ", res.GasUsed)
	if res.AccountBalance != nil {
		fmt.Printf("Account balance:   %s\n", formatWei((*big.Int)(res.AccountBalance)))
	}
	if res.RecipientBalance != nil {
		fmt.Printf("Recipient balance: %s\n", formatWei((*big.Int)(res.RecipientBalance)))
	}
	if res.Deployed != nil {
		fmt.Printf("Event:     AccountDeployed account=%s namespace=%s chainid=%s\n",
			res.Deployed.Account.Hex(), res.Deployed.ChainNamespace, res.Deployed.ChainID)
	}
	if res.PayloadExecuted != nil {
		fmt.Printf("Event:     PayloadExecuted to=%s data=%x\n",
			res.PayloadExecuted.To.Hex(), res.PayloadExecuted.Data)
	}
	if res.Executed {
		fmt.Println("Status:    executed")
	} else {
		fmt.Println("Status:    not executed")
	}
}

// formatWei renders a wei amount with its TOS equivalent.
func formatWei(v *big.Int) string {
	if v == nil {
		v = new(big.Int)
	}
	tos := new(big.Rat).SetFrac(v, big.NewInt(params.TOS))
	return fmt.Sprintf("%s wei (%s TOS)", v.String(), tos.FloatString(6))
}
