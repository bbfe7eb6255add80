package main

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
)

type outputSign struct {
	Scheme    string `json:"scheme"`
	Owner     string `json:"owner"`
	Digest    string `json:"digest"`
	Signature string `json:"signature"`
}

var digestFlag = &cli.StringFlag{
	Name:  "digest",
	Usage: "hex encoded 32 byte payload digest to sign",
}

var commandSign = &cli.Command{
	Name:      "sign",
	Usage:     "sign a payload digest with an owner keyfile",
	ArgsUsage: "<keyfile>",
	Description: `
Sign a 32 byte payload digest, typically produced by the hash command,
with the owner key in the given keyfile. The signature is emitted in the
wire format of the key's scheme.
`,
	Flags: []cli.Flag{
		passphraseFlag,
		jsonFlag,
		digestFlag,
		configFileFlag,
		namespaceFlag,
		chainIDFlag,
		schemeFlag,
	},
	Action: func(ctx *cli.Context) error {
		cfg := makeConfig(ctx)

		keyfilepath := ctx.Args().First()
		if keyfilepath == "" {
			Fatalf("Keyfile must be given as argument")
		}
		raw, err := decodeKeyHex(ctx.String(digestFlag.Name))
		if err != nil {
			Fatalf("Invalid digest: %v", err)
		}
		if len(raw) != common.HashLength {
			Fatalf("Invalid digest: want %d bytes, have %d", common.HashLength, len(raw))
		}
		digest := common.BytesToHash(raw)

		key, err := loadOwnerKey(keyfilepath, passphraseReader(ctx), cfg.Scheme)
		if err != nil {
			Fatalf("Error loading keyfile: %v", err)
		}
		sig, err := key.Sign(digest)
		if err != nil {
			Fatalf("Failed to sign digest: %v", err)
		}

		out := outputSign{
			Scheme:    key.Scheme,
			Owner:     hex.EncodeToString(key.Public),
			Digest:    digest.Hex(),
			Signature: hex.EncodeToString(sig),
		}
		if ctx.Bool(jsonFlag.Name) {
			mustPrintJSON(out)
		} else {
			fmt.Println("Scheme:   ", out.Scheme)
			fmt.Println("Owner:    ", out.Owner)
			fmt.Println("Digest:   ", out.Digest)
			fmt.Println("Signature:", out.Signature)
		}
		return nil
	},
}
