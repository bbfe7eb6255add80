package main

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/xaccount/account"
	"github.com/tos-network/xaccount/params"
)

type outputHash struct {
	Account      string `json:"account"`
	ChainID      string `json:"chainId"`
	Nonce        uint64 `json:"nonce"`
	Deadline     uint64 `json:"deadline"`
	DeadlineTime string `json:"deadlineTime,omitempty"`
	Domain       string `json:"domain"`
	Digest       string `json:"digest"`
}

var (
	accountFlag = &cli.StringFlag{
		Name:  "account",
		Usage: "proxy account address the payload executes from",
	}
	nonceFlag = &cli.Uint64Flag{
		Name:  "nonce",
		Usage: "current stored nonce of the account",
	}
	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "target address of the payload",
	}
	valueFlag = &cli.StringFlag{
		Name:  "value",
		Usage: "value transferred by the payload, in wei",
	}
	dataFlag = &cli.StringFlag{
		Name:  "data",
		Usage: "hex encoded calldata of the payload",
	}
	gasFlag = &cli.Uint64Flag{
		Name:  "gas",
		Usage: "gas limit of the payload",
	}
	maxFeeFlag = &cli.StringFlag{
		Name:  "max-fee",
		Usage: "max fee per gas, in wei",
	}
	maxPriorityFeeFlag = &cli.StringFlag{
		Name:  "max-priority-fee",
		Usage: "max priority fee per gas, in wei",
	}
	deadlineFlag = &cli.Uint64Flag{
		Name:  "deadline",
		Usage: "unix timestamp the payload stays valid through",
	}
	proofTypeFlag = &cli.StringFlag{
		Name:  "type",
		Usage: "proof type: sig or txhash",
		Value: "sig",
	}
)

var payloadFlags = []cli.Flag{
	toFlag,
	valueFlag,
	dataFlag,
	gasFlag,
	maxFeeFlag,
	maxPriorityFeeFlag,
	deadlineFlag,
	proofTypeFlag,
}

var commandHash = &cli.Command{
	Name:  "hash",
	Usage: "compute the digest an owner signs for a payload",
	Description: `
Compute the payload digest offline from the payload fields, the account
address and the account's current stored nonce.

The digest binds the protocol version, the owner's chain id, the account
address and every payload field, so it can be signed on an air-gapped
machine and submitted later.
`,
	Flags: append([]cli.Flag{
		jsonFlag,
		accountFlag,
		nonceFlag,
		configFileFlag,
		namespaceFlag,
		chainIDFlag,
		schemeFlag,
	}, payloadFlags...),
	Action: func(ctx *cli.Context) error {
		cfg := makeConfig(ctx)

		if !common.IsHexAddress(ctx.String(accountFlag.Name)) {
			Fatalf("--account must be a valid hex address")
		}
		addr := common.HexToAddress(ctx.String(accountFlag.Name))
		nonce := ctx.Uint64(nonceFlag.Name)

		p, err := payloadFromFlags(ctx, nonce)
		if err != nil {
			Fatalf("Invalid payload: %v", err)
		}
		digest, err := account.HashPayloadAt(cfg.ChainID, addr, p, nonce)
		if err != nil {
			Fatalf("Failed to hash payload: %v", err)
		}

		out := outputHash{
			Account:  addr.Hex(),
			ChainID:  cfg.ChainID,
			Nonce:    nonce,
			Deadline: p.Deadline,
			Domain:   account.DomainSeparatorFor(cfg.ChainID, addr).Hex(),
			Digest:   digest.Hex(),
		}
		if p.Deadline != 0 {
			out.DeadlineTime = params.DeadlineTime(p.Deadline).UTC().Format(time.RFC3339)
		}

		if ctx.Bool(jsonFlag.Name) {
			mustPrintJSON(out)
		} else {
			fmt.Println("Account: ", out.Account)
			fmt.Println("ChainID: ", out.ChainID)
			fmt.Println("Nonce:   ", out.Nonce)
			if out.DeadlineTime != "" {
				fmt.Printf("Deadline: %d (%s)\n", out.Deadline, out.DeadlineTime)
			} else {
				fmt.Println("Deadline:", out.Deadline)
			}
			fmt.Println("Domain:  ", out.Domain)
			fmt.Println("Digest:  ", out.Digest)
		}
		return nil
	},
}

// payloadFromFlags assembles a payload from the shared payload flag set.
// The nonce argument fills the informational Nonce field.
func payloadFromFlags(ctx *cli.Context, nonce uint64) (*account.Payload, error) {
	p := &account.Payload{
		GasLimit: ctx.Uint64(gasFlag.Name),
		Nonce:    nonce,
		Deadline: ctx.Uint64(deadlineFlag.Name),
	}
	if to := ctx.String(toFlag.Name); to != "" {
		if !common.IsHexAddress(to) {
			return nil, fmt.Errorf("invalid --to address %q", to)
		}
		p.To = common.HexToAddress(to)
	}
	var err error
	if p.Value, err = parseBigFlag(ctx, valueFlag.Name); err != nil {
		return nil, err
	}
	if p.MaxFeePerGas, err = parseBigFlag(ctx, maxFeeFlag.Name); err != nil {
		return nil, err
	}
	if p.MaxPriorityFeePerGas, err = parseBigFlag(ctx, maxPriorityFeeFlag.Name); err != nil {
		return nil, err
	}
	if raw := ctx.String(dataFlag.Name); raw != "" {
		data, derr := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
		if derr != nil {
			return nil, fmt.Errorf("invalid --data: %w", derr)
		}
		p.Data = data
	}
	switch ctx.String(proofTypeFlag.Name) {
	case "sig", "":
		p.VerificationType = account.SignatureBased
	case "txhash":
		p.VerificationType = account.TxHashBased
	default:
		return nil, fmt.Errorf("unknown proof type %q, want sig or txhash", ctx.String(proofTypeFlag.Name))
	}
	return p, nil
}

func parseBigFlag(ctx *cli.Context, name string) (*big.Int, error) {
	raw := ctx.String(name)
	if raw == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(raw, 0)
	if !ok {
		return nil, fmt.Errorf("invalid --%s value %q", name, raw)
	}
	return v, nil
}
