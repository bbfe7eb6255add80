package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/xaccount/oracle"
)

var (
	txHashFlag = &cli.StringFlag{
		Name:  "txhash",
		Usage: "hex encoded native chain transaction hash",
	}
	payloadHashFlag = &cli.StringFlag{
		Name:  "payload-hash",
		Usage: "hex encoded 32 byte payload digest the transaction attests to",
	}
)

var commandAttest = &cli.Command{
	Name:  "attest",
	Usage: "manage the local native transaction attestation store",
	Description: `
Record and list attestations linking native chain transactions to payload
digests. The store backs tx hash based verification: a payload proves
itself by referencing an attested transaction instead of carrying a
signature.
`,
	Subcommands: []*cli.Command{
		{
			Name:      "add",
			Usage:     "record an attestation",
			ArgsUsage: "<keyfile>",
			Flags: []cli.Flag{
				passphraseFlag,
				jsonFlag,
				txHashFlag,
				payloadHashFlag,
				configFileFlag,
				namespaceFlag,
				chainIDFlag,
				schemeFlag,
				storeFlag,
			},
			Action: attestAdd,
		},
		{
			Name:  "list",
			Usage: "list recorded attestations",
			Flags: []cli.Flag{
				jsonFlag,
				configFileFlag,
				namespaceFlag,
				chainIDFlag,
				storeFlag,
			},
			Action: attestList,
		},
	},
}

func attestAdd(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	if cfg.StorePath == "" {
		Fatalf("--store must point at an attestation store directory")
	}

	keyfilepath := ctx.Args().First()
	if keyfilepath == "" {
		Fatalf("Keyfile must be given as argument")
	}
	key, err := loadOwnerKey(keyfilepath, passphraseReader(ctx), cfg.Scheme)
	if err != nil {
		Fatalf("Error loading keyfile: %v", err)
	}

	txHash, err := decodeKeyHex(ctx.String(txHashFlag.Name))
	if err != nil {
		Fatalf("Invalid tx hash: %v", err)
	}
	rawPayload, err := decodeKeyHex(ctx.String(payloadHashFlag.Name))
	if err != nil {
		Fatalf("Invalid payload hash: %v", err)
	}
	if len(rawPayload) != common.HashLength {
		Fatalf("Invalid payload hash: want %d bytes, have %d", common.HashLength, len(rawPayload))
	}

	store, err := oracle.OpenStore(cfg.StorePath)
	if err != nil {
		Fatalf("Failed to open attestation store: %v", err)
	}
	defer store.Close()

	att := oracle.Attestation{
		Namespace:   cfg.Namespace,
		ChainID:     cfg.ChainID,
		Owner:       key.Public,
		PayloadHash: common.BytesToHash(rawPayload),
		TxHash:      txHash,
	}
	if err := store.Attest(att); err != nil {
		Fatalf("Failed to record attestation: %v", err)
	}

	if ctx.Bool(jsonFlag.Name) {
		mustPrintJSON(att)
	} else {
		fmt.Printf("Recorded attestation for tx %x on %s:%s\n", txHash, cfg.Namespace, cfg.ChainID)
	}
	return nil
}

func attestList(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	if cfg.StorePath == "" {
		Fatalf("--store must point at an attestation store directory")
	}

	store, err := oracle.OpenStore(cfg.StorePath)
	if err != nil {
		Fatalf("Failed to open attestation store: %v", err)
	}
	defer store.Close()

	atts, err := store.List()
	if err != nil {
		Fatalf("Failed to list attestations: %v", err)
	}

	if ctx.Bool(jsonFlag.Name) {
		mustPrintJSON(atts)
		return nil
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Namespace", "ChainID", "Owner", "TxHash", "PayloadHash"})
	for _, a := range atts {
		table.Append([]string{
			a.Namespace,
			a.ChainID,
			abbreviateHex(a.Owner),
			abbreviateHex(a.TxHash),
			a.PayloadHash.Hex(),
		})
	}
	table.Render()
	return nil
}

func abbreviateHex(b []byte) string {
	s := hex.EncodeToString(b)
	if len(s) > 16 {
		return s[:8] + ".." + s[len(s)-6:]
	}
	return s
}
