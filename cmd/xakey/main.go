package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
)

const (
	defaultKeyfileName = "owner.json"
)

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var app *cli.App

func init() {
	app = &cli.App{
		Name:                 filepath.Base(os.Args[0]),
		Usage:                "a cross-chain account key and payload tool",
		Version:              versionString(),
		EnableBashCompletion: true,
		HideVersion:          gitCommit == "",
	}
	app.Commands = []*cli.Command{
		commandGenerate,
		commandInspect,
		commandDerive,
		commandHash,
		commandSign,
		commandAttest,
		commandExec,
	}
}

func versionString() string {
	if len(gitCommit) < 8 {
		return "dev"
	}
	v := gitCommit[:8]
	if gitDate != "" {
		v += "-" + gitDate
	}
	return v
}

// Commonly used command line flags.
var (
	passphraseFlag = &cli.StringFlag{
		Name:  "passwordfile",
		Usage: "the file that contains the password for the keyfile",
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
)

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
