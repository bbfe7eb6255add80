package main

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"
)

type outputInspect struct {
	Scheme     string `json:"scheme"`
	PublicKey  string `json:"publicKey"`
	Account    string `json:"account,omitempty"`
	PrivateKey string `json:"privateKey,omitempty"`
}

var commandInspect = &cli.Command{
	Name:      "inspect",
	Usage:     "inspect an owner keyfile",
	ArgsUsage: "<keyfile>",
	Description: `
Print various information about the keyfile.

Private key information can be printed by using the --private flag;
make sure to use this feature with great caution!
`,
	Flags: []cli.Flag{
		passphraseFlag,
		jsonFlag,
		&cli.BoolFlag{
			Name:  "private",
			Usage: "include the private key in the output",
		},
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
		key, err := loadOwnerKey(keyfilepath, passphraseReader(ctx), cfg.Scheme)
		if err != nil {
			Fatalf("Error loading keyfile: %v", err)
		}

		out := outputInspect{
			Scheme:    key.Scheme,
			PublicKey: hex.EncodeToString(key.Public),
		}
		if addr, derr := deriveAccountAddress(cfg, key.Scheme, key.Public); derr == nil {
			out.Account = addr.Hex()
		}
		if ctx.Bool("private") {
			out.PrivateKey = hex.EncodeToString(key.secret)
		}

		if ctx.Bool(jsonFlag.Name) {
			mustPrintJSON(out)
		} else {
			fmt.Println("Scheme:      ", out.Scheme)
			fmt.Println("Public key:  ", out.PublicKey)
			if out.Account != "" {
				fmt.Println("Account:     ", out.Account)
			}
			if out.PrivateKey != "" {
				fmt.Println("Private key: ", out.PrivateKey)
			}
		}
		return nil
	},
}
