package main

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"
)

type outputDerive struct {
	Namespace string `json:"namespace"`
	ChainID   string `json:"chainId"`
	Scheme    string `json:"scheme"`
	Owner     string `json:"owner"`
	Account   string `json:"account"`
}

var ownerFlag = &cli.StringFlag{
	Name:  "owner",
	Usage: "hex encoded owner public key (skips loading a keyfile)",
}

var commandDerive = &cli.Command{
	Name:      "derive",
	Usage:     "derive the proxy account address for an owner key",
	ArgsUsage: "[ <keyfile> ]",
	Description: `
Compute the deterministic proxy account address controlled by an owner key
under the configured chain namespace and chain id.

The derivation is fully offline. The resulting address is valid before the
account is ever deployed, so it can receive funds counterfactually.
`,
	Flags: []cli.Flag{
		passphraseFlag,
		jsonFlag,
		ownerFlag,
		configFileFlag,
		namespaceFlag,
		chainIDFlag,
		schemeFlag,
	},
	Action: func(ctx *cli.Context) error {
		cfg := makeConfig(ctx)

		var (
			pub    []byte
			scheme = cfg.Scheme
		)
		if raw := ctx.String(ownerFlag.Name); raw != "" {
			decoded, err := decodeKeyHex(raw)
			if err != nil {
				Fatalf("Invalid owner key: %v", err)
			}
			pub = decoded
		} else {
			keyfilepath := ctx.Args().First()
			if keyfilepath == "" {
				Fatalf("Keyfile or --owner must be given")
			}
			key, err := loadOwnerKey(keyfilepath, passphraseReader(ctx), cfg.Scheme)
			if err != nil {
				Fatalf("Error loading keyfile: %v", err)
			}
			pub = key.Public
			scheme = key.Scheme
		}

		addr, err := deriveAccountAddress(cfg, scheme, pub)
		if err != nil {
			Fatalf("Failed to derive account address: %v", err)
		}

		out := outputDerive{
			Namespace: cfg.Namespace,
			ChainID:   cfg.ChainID,
			Scheme:    scheme,
			Owner:     hex.EncodeToString(pub),
			Account:   addr.Hex(),
		}
		if ctx.Bool(jsonFlag.Name) {
			mustPrintJSON(out)
		} else {
			fmt.Println("Namespace:", out.Namespace)
			fmt.Println("ChainID:  ", out.ChainID)
			fmt.Println("Scheme:   ", out.Scheme)
			fmt.Println("Owner:    ", out.Owner)
			fmt.Println("Account:  ", out.Account)
		}
		return nil
	},
}
