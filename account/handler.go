package account

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/tos-network/xaccount/oracle"
	"github.com/tos-network/xaccount/sysaction"
)

func init() {
	sysaction.DefaultRegistry.Register(&payloadHandler{})
}

// ExecuteAction is the XA_PAYLOAD_EXECUTE payload. The account address is
// explicit: senders derive it offline or read it from the AccountDeployed
// log of the registry.
type ExecuteAction struct {
	Account common.Address `json:"account"`
	Payload PayloadArgs    `json:"payload"`
	Proof   hexutil.Bytes  `json:"proof"`
}

// PayloadArgs is the JSON wire form of a Payload.
type PayloadArgs struct {
	To                   common.Address `json:"to"`
	Value                *hexutil.Big   `json:"value,omitempty"`
	Data                 hexutil.Bytes  `json:"data,omitempty"`
	GasLimit             uint64         `json:"gasLimit"`
	MaxFeePerGas         *hexutil.Big   `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big   `json:"maxPriorityFeePerGas,omitempty"`
	Nonce                uint64         `json:"nonce"`
	Deadline             uint64         `json:"deadline"`
	VerificationType     uint8          `json:"verificationType"`
}

// ToPayload converts the wire form into a Payload.
func (a *PayloadArgs) ToPayload() *Payload {
	return &Payload{
		To:                   a.To,
		Value:                (*big.Int)(a.Value),
		Data:                 a.Data,
		GasLimit:             a.GasLimit,
		MaxFeePerGas:         (*big.Int)(a.MaxFeePerGas),
		MaxPriorityFeePerGas: (*big.Int)(a.MaxPriorityFeePerGas),
		Nonce:                a.Nonce,
		Deadline:             a.Deadline,
		VerificationType:     VerificationType(a.VerificationType),
	}
}

// PayloadArgsFrom converts a Payload into its wire form.
func PayloadArgsFrom(p *Payload) PayloadArgs {
	return PayloadArgs{
		To:                   p.To,
		Value:                (*hexutil.Big)(p.Value),
		Data:                 p.Data,
		GasLimit:             p.GasLimit,
		MaxFeePerGas:         (*hexutil.Big)(p.MaxFeePerGas),
		MaxPriorityFeePerGas: (*hexutil.Big)(p.MaxPriorityFeePerGas),
		Nonce:                p.Nonce,
		Deadline:             p.Deadline,
		VerificationType:     uint8(p.VerificationType),
	}
}

// payloadHandler executes XA_PAYLOAD_EXECUTE actions against account engines.
type payloadHandler struct{}

func (h *payloadHandler) CanHandle(kind sysaction.ActionKind) bool {
	return kind == sysaction.ActionPayloadExecute
}

func (h *payloadHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	var act ExecuteAction
	if err := sysaction.DecodePayload(sa, &act); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !Exists(ctx.StateDB, act.Account) {
		return ErrAccountNotInitialized
	}

	typeHash := ReadImplementationClass(ctx.StateDB, act.Account)
	verifier, ok := oracle.ImplementationFor(typeHash)
	if !ok {
		return fmt.Errorf("%w: no implementation bound for class %s", ErrPrecompileCallFailed, typeHash)
	}

	// Value attached to the action is custody funding: it reaches the
	// account before the payload runs, so deposit and execution can share
	// one transaction.
	if ctx.Value != nil && ctx.Value.Sign() > 0 {
		if ctx.StateDB.GetBalance(ctx.From).Cmp(ctx.Value) < 0 {
			return vm.ErrInsufficientBalance
		}
		ctx.StateDB.SubBalance(ctx.From, ctx.Value)
		ctx.StateDB.AddBalance(act.Account, ctx.Value)
	}

	eng := NewEngine(ctx.StateDB, act.Account, verifier, ctx.Caller)
	return eng.ExecutePayload(ctx.Time, act.Payload.ToPayload(), act.Proof)
}
