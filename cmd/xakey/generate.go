package main

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/xaccount/account"
	"github.com/tos-network/xaccount/oracle"
	"github.com/tos-network/xaccount/registry"
)

type outputGenerate struct {
	Path      string `json:"path"`
	Scheme    string `json:"scheme"`
	PublicKey string `json:"publicKey"`
	Account   string `json:"account,omitempty"`
	Mnemonic  string `json:"mnemonic,omitempty"`
}

var (
	privateKeyFlag = &cli.StringFlag{
		Name:  "privatekey",
		Usage: "file containing a raw private key to import",
	}
	lightKDFFlag = &cli.BoolFlag{
		Name:  "lightkdf",
		Usage: "use less secure scrypt parameters",
	}
	mnemonicGenerateFlag = &cli.BoolFlag{
		Name:  "mnemonic-generate",
		Usage: "generate a fresh BIP-39 mnemonic and derive the key from it",
	}
	mnemonicFlag = &cli.StringFlag{
		Name:  "mnemonic",
		Usage: "derive the key from an existing BIP-39 mnemonic",
	}
	mnemonicPassphraseFlag = &cli.StringFlag{
		Name:  "mnemonic-passphrase",
		Usage: "optional BIP-39 passphrase protecting the mnemonic",
	}
	mnemonicBitsFlag = &cli.IntFlag{
		Name:  "mnemonic-bits",
		Usage: "entropy bits for a generated mnemonic (128..256, multiple of 32)",
		Value: defaultMnemonicBits,
	}
	hdPathFlag = &cli.StringFlag{
		Name:  "hd-path",
		Usage: "BIP-32 derivation path for mnemonic-derived keys",
		Value: defaultHDPath,
	}
)

var commandGenerate = &cli.Command{
	Name:      "generate",
	Usage:     "generate a new owner keyfile",
	ArgsUsage: "[ <keyfile> ]",
	Description: `
Generate a new owner keyfile for the configured scheme.

secp256k1 keys are written as password protected keystore documents.
ed25519 and secp256r1 keys are written as hex encoded raw key files.

If you want to encrypt an existing private key, it can be supplied via the
--privatekey flag. Keys can also be derived from a BIP-39 mnemonic with
--mnemonic or --mnemonic-generate.
`,
	Flags: []cli.Flag{
		passphraseFlag,
		jsonFlag,
		privateKeyFlag,
		lightKDFFlag,
		mnemonicGenerateFlag,
		mnemonicFlag,
		mnemonicPassphraseFlag,
		mnemonicBitsFlag,
		hdPathFlag,
		configFileFlag,
		namespaceFlag,
		chainIDFlag,
		schemeFlag,
	},
	Action: func(ctx *cli.Context) error {
		cfg := makeConfig(ctx)

		keyfilepath := ctx.Args().First()
		if keyfilepath == "" {
			keyfilepath = defaultKeyfileName
		}
		if _, err := os.Stat(keyfilepath); err == nil {
			Fatalf("Keyfile already exists at %s.", keyfilepath)
		} else if !os.IsNotExist(err) {
			Fatalf("Error checking if keyfile exists: %v", err)
		}

		var mnemonic string
		switch {
		case ctx.Bool(mnemonicGenerateFlag.Name):
			if err := validateMnemonicBits(ctx.Int(mnemonicBitsFlag.Name)); err != nil {
				Fatalf("Invalid mnemonic entropy: %v", err)
			}
			var err error
			mnemonic, err = generateMnemonic(ctx.Int(mnemonicBitsFlag.Name))
			if err != nil {
				Fatalf("Failed to generate mnemonic: %v", err)
			}
		case ctx.String(mnemonicFlag.Name) != "":
			mnemonic = ctx.String(mnemonicFlag.Name)
		}

		key, err := materializeKey(ctx, cfg.Scheme, mnemonic)
		if err != nil {
			Fatalf("Failed to obtain key material: %v", err)
		}

		if err := writeOwnerKeyFile(ctx, keyfilepath, cfg.Scheme, key); err != nil {
			Fatalf("Failed to write keyfile: %v", err)
		}

		out := outputGenerate{
			Path:      keyfilepath,
			Scheme:    key.owner.Scheme,
			PublicKey: hex.EncodeToString(key.owner.Public),
		}
		if ctx.Bool(mnemonicGenerateFlag.Name) {
			out.Mnemonic = mnemonic
		}
		if addr, err := deriveAccountAddress(cfg, key.owner.Scheme, key.owner.Public); err == nil {
			out.Account = addr.Hex()
		}

		if ctx.Bool(jsonFlag.Name) {
			mustPrintJSON(out)
		} else {
			fmt.Println("Path:     ", out.Path)
			fmt.Println("Scheme:   ", out.Scheme)
			fmt.Println("PublicKey:", out.PublicKey)
			if out.Account != "" {
				fmt.Println("Account:  ", out.Account)
			}
			if out.Mnemonic != "" {
				fmt.Println("Mnemonic: ", out.Mnemonic)
			}
		}
		return nil
	},
}

// generatedKey carries both the signing wrapper and the raw material
// still needed to serialize the key to disk.
type generatedKey struct {
	owner   *ownerKey
	ecdsa   *ecdsa.PrivateKey
	ed25519 ed25519.PrivateKey
}

func materializeKey(ctx *cli.Context, scheme, mnemonic string) (*generatedKey, error) {
	rawFile := ctx.String(privateKeyFlag.Name)
	hdPath := ctx.String(hdPathFlag.Name)
	mnemonicPass := ctx.String(mnemonicPassphraseFlag.Name)

	switch scheme {
	case oracle.SchemeSecp256k1:
		var (
			priv *ecdsa.PrivateKey
			err  error
		)
		switch {
		case rawFile != "":
			priv, err = crypto.LoadECDSA(rawFile)
			if err != nil {
				return nil, fmt.Errorf("can't load private key: %w", err)
			}
		case mnemonic != "":
			priv, err = deriveECDSAFromMnemonic(mnemonic, mnemonicPass, hdPath)
			if err != nil {
				return nil, err
			}
		default:
			priv, err = crypto.GenerateKey()
			if err != nil {
				return nil, fmt.Errorf("failed to generate random private key: %w", err)
			}
		}
		return &generatedKey{owner: ownerKeyFromECDSA(priv), ecdsa: priv}, nil

	case oracle.SchemeEd25519:
		var (
			priv ed25519.PrivateKey
			err  error
		)
		switch {
		case rawFile != "":
			content, rerr := os.ReadFile(rawFile)
			if rerr != nil {
				return nil, fmt.Errorf("can't load private key: %w", rerr)
			}
			raw, derr := decodeKeyHex(string(content))
			if derr != nil {
				return nil, derr
			}
			priv, err = ed25519PrivateFromBytes(raw)
			if err != nil {
				return nil, err
			}
		case mnemonic != "":
			priv, err = deriveEd25519PrivateFromMnemonic(mnemonic, mnemonicPass, hdPath)
			if err != nil {
				return nil, err
			}
		default:
			_, priv, err = ed25519.GenerateKey(crand.Reader)
			if err != nil {
				return nil, fmt.Errorf("failed to generate random private key: %w", err)
			}
		}
		return &generatedKey{owner: ownerKeyFromEd25519(priv), ed25519: priv}, nil

	case oracle.SchemeSecp256r1:
		if mnemonic != "" {
			return nil, fmt.Errorf("mnemonic derivation is not supported for scheme %q", scheme)
		}
		var (
			priv *ecdsa.PrivateKey
			err  error
		)
		if rawFile != "" {
			content, rerr := os.ReadFile(rawFile)
			if rerr != nil {
				return nil, fmt.Errorf("can't load private key: %w", rerr)
			}
			raw, derr := decodeKeyHex(string(content))
			if derr != nil {
				return nil, derr
			}
			priv, err = secp256r1PrivateFromBytes(raw)
			if err != nil {
				return nil, err
			}
		} else {
			priv, err = ecdsa.GenerateKey(elliptic.P256(), crand.Reader)
			if err != nil {
				return nil, fmt.Errorf("failed to generate random private key: %w", err)
			}
		}
		return &generatedKey{owner: ownerKeyFromP256(priv), ecdsa: priv}, nil

	default:
		return nil, fmt.Errorf("unsupported scheme %q", scheme)
	}
}

func writeOwnerKeyFile(ctx *cli.Context, path, scheme string, key *generatedKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create directory %s: %w", filepath.Dir(path), err)
	}

	switch scheme {
	case oracle.SchemeSecp256k1:
		// Create the keyfile object with a random UUID.
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate random uuid: %w", err)
		}
		k := &keystore.Key{
			Id:         id,
			Address:    crypto.PubkeyToAddress(key.ecdsa.PublicKey),
			PrivateKey: key.ecdsa,
		}
		passphrase := getPassphrase(ctx, true)
		scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
		if ctx.Bool(lightKDFFlag.Name) {
			scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
		}
		keyjson, err := keystore.EncryptKey(k, passphrase, scryptN, scryptP)
		if err != nil {
			return fmt.Errorf("error encrypting key: %w", err)
		}
		return os.WriteFile(path, keyjson, 0600)

	case oracle.SchemeEd25519:
		seed := key.ed25519.Seed()
		return os.WriteFile(path, []byte(hex.EncodeToString(seed)+"\n"), 0600)

	case oracle.SchemeSecp256r1:
		scalar := make([]byte, 32)
		key.ecdsa.D.FillBytes(scalar)
		return os.WriteFile(path, []byte(hex.EncodeToString(scalar)+"\n"), 0600)

	default:
		return fmt.Errorf("unsupported scheme %q", scheme)
	}
}

// deriveAccountAddress computes the deterministic proxy account address
// for an owner key without touching any state.
func deriveAccountAddress(cfg *xakeyConfig, scheme string, pub []byte) (common.Address, error) {
	id := account.Identity{
		ChainNamespace: cfg.Namespace,
		ChainID:        cfg.ChainID,
		Owner:          pub,
	}
	canonical, err := account.EncodeIdentity(id)
	if err != nil {
		return common.Address{}, err
	}
	return registry.Address(canonical, oracle.VMTypeHash(scheme)), nil
}
