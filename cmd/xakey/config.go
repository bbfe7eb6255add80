package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/xaccount/oracle"
)

// xakeyConfig holds the chain tuple and attestation store settings shared
// by most commands. Values come from an optional TOML file and are
// overridden by flags.
type xakeyConfig struct {
	Namespace string
	ChainID   string
	Scheme    string
	StorePath string
}

// These settings ensure that TOML keys use the same names as Go struct
// fields and mistyped fields are rejected.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	namespaceFlag = &cli.StringFlag{
		Name:  "namespace",
		Usage: "chain namespace of the owner identity (e.g. eip155, cosmos, solana)",
	}
	chainIDFlag = &cli.StringFlag{
		Name:  "chainid",
		Usage: "chain reference of the owner identity within its namespace",
	}
	schemeFlag = &cli.StringFlag{
		Name:  "scheme",
		Usage: "signature scheme of the owner key (secp256k1, secp256r1, ed25519)",
	}
	storeFlag = &cli.StringFlag{
		Name:  "store",
		Usage: "attestation store directory",
	}
)

func loadConfig(file string, cfg *xakeyConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

func makeConfig(ctx *cli.Context) *xakeyConfig {
	cfg := &xakeyConfig{
		Namespace: "eip155",
		ChainID:   "1",
		Scheme:    oracle.SchemeSecp256k1,
	}
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, cfg); err != nil {
			Fatalf("Failed to load config file: %v", err)
		}
	}
	if ctx.IsSet(namespaceFlag.Name) {
		cfg.Namespace = ctx.String(namespaceFlag.Name)
	}
	if ctx.IsSet(chainIDFlag.Name) {
		cfg.ChainID = ctx.String(chainIDFlag.Name)
	}
	if ctx.IsSet(schemeFlag.Name) {
		cfg.Scheme = ctx.String(schemeFlag.Name)
	}
	if ctx.IsSet(storeFlag.Name) {
		cfg.StorePath = ctx.String(storeFlag.Name)
	}
	return cfg
}
