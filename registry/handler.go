package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/tos-network/xaccount/account"
	"github.com/tos-network/xaccount/sysaction"
)

func init() {
	sysaction.DefaultRegistry.Register(&deployHandler{})
}

// DeployAction is the XA_ACCOUNT_DEPLOY payload.
type DeployAction struct {
	Identity IdentityArgs `json:"identity"`
}

// IdentityArgs is the JSON wire form of an account.Identity.
type IdentityArgs struct {
	ChainNamespace string        `json:"chainNamespace"`
	ChainID        string        `json:"chainId"`
	Owner          hexutil.Bytes `json:"owner"`
}

// ToIdentity converts the wire form into an account.Identity.
func (a *IdentityArgs) ToIdentity() account.Identity {
	return account.Identity{
		ChainNamespace: a.ChainNamespace,
		ChainID:        a.ChainID,
		Owner:          a.Owner,
	}
}

// IdentityArgsFrom converts an account.Identity into its wire form.
func IdentityArgsFrom(id account.Identity) IdentityArgs {
	return IdentityArgs{
		ChainNamespace: id.ChainNamespace,
		ChainID:        id.ChainID,
		Owner:          id.Owner,
	}
}

// deployHandler executes XA_ACCOUNT_DEPLOY actions against the factory.
type deployHandler struct{}

func (h *deployHandler) CanHandle(kind sysaction.ActionKind) bool {
	return kind == sysaction.ActionAccountDeploy
}

func (h *deployHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	var act DeployAction
	if err := sysaction.DecodePayload(sa, &act); err != nil {
		return fmt.Errorf("%w: %v", account.ErrInvalidIdentity, err)
	}

	addr, err := Deploy(ctx.StateDB, act.Identity.ToIdentity())
	if err != nil {
		return err
	}

	// Value attached to the action funds the deployed account.
	if ctx.Value != nil && ctx.Value.Sign() > 0 {
		if ctx.StateDB.GetBalance(ctx.From).Cmp(ctx.Value) < 0 {
			return vm.ErrInsufficientBalance
		}
		ctx.StateDB.SubBalance(ctx.From, ctx.Value)
		ctx.StateDB.AddBalance(addr, ctx.Value)
	}
	return nil
}
