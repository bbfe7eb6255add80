package sysaction

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/tos-network/xaccount/params"
	"github.com/tos-network/xaccount/xcall"
)

// Context carries the transaction environment a handler executes in.
type Context struct {
	From        common.Address // sender of the system action tx
	Value       *big.Int       // value attached to the tx, custody-credited by handlers
	Time        uint64         // block timestamp, unix seconds
	BlockNumber *big.Int
	StateDB     vm.StateDB
	Caller      xcall.Caller // outbound call router for payload execution
}

// Handler processes one or more action kinds.
type Handler interface {
	CanHandle(kind ActionKind) bool
	Handle(ctx *Context, sa *SysAction) error
}

// Registry holds registered handlers.
type Registry struct{ handlers []Handler }

// DefaultRegistry is the process-wide handler registry. The registry and
// account packages self-register via init().
var DefaultRegistry = &Registry{}

// Register adds a handler to the registry.
func (r *Registry) Register(h Handler) { r.handlers = append(r.handlers, h) }

// Msg is the minimal message interface for Execute, satisfied by core.Message.
type Msg interface {
	From() common.Address
	To() *common.Address
	Value() *big.Int
	Data() []byte
}

// Execute processes the system action in msg.Data and dispatches it to a
// registered handler. Returns (gasUsed, error). Handler state writes are
// atomic: any error reverts everything the handler changed, custody
// transfers included.
func Execute(msg Msg, db vm.StateDB, time uint64, blockNumber *big.Int) (uint64, error) {
	sa, err := Decode(msg.Data())
	if err != nil {
		return params.SysActionGas, err
	}
	ctx := &Context{
		From:        msg.From(),
		Value:       msg.Value(),
		Time:        time,
		BlockNumber: blockNumber,
		StateDB:     db,
		Caller:      xcall.NewRouter(db),
	}
	return params.SysActionGas, dispatch(ctx, sa)
}

// ExecuteWithContext dispatches using a pre-built Context (used by tools and tests).
func ExecuteWithContext(ctx *Context, data []byte) error {
	sa, err := Decode(data)
	if err != nil {
		return err
	}
	return dispatch(ctx, sa)
}

func dispatch(ctx *Context, sa *SysAction) error {
	for _, h := range DefaultRegistry.handlers {
		if !h.CanHandle(sa.Action) {
			continue
		}
		snap := ctx.StateDB.Snapshot()
		if err := h.Handle(ctx, sa); err != nil {
			ctx.StateDB.RevertToSnapshot(snap)
			return err
		}
		return nil
	}
	return fmt.Errorf("unknown system action: %q", sa.Action)
}
