package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/console/prompt"
	"github.com/urfave/cli/v2"
)

// Fatalf formats a message to stderr and exits.
func Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// getPassphrase obtains a passphrase from the --passwordfile flag or
// prompts the user for one.
func getPassphrase(ctx *cli.Context, confirmation bool) string {
	passphraseFile := ctx.String(passphraseFlag.Name)
	if passphraseFile != "" {
		content, err := os.ReadFile(passphraseFile)
		if err != nil {
			Fatalf("Failed to read password file '%s': %v", passphraseFile, err)
		}
		lines := strings.Split(string(content), "\n")
		if len(lines) == 0 {
			Fatalf("Empty password file '%s'.", passphraseFile)
		}
		return strings.TrimRight(lines[0], "\r")
	}
	return promptPassphrase(confirmation)
}

func promptPassphrase(confirmation bool) string {
	passphrase, err := prompt.Stdin.PromptPassword("Password: ")
	if err != nil {
		Fatalf("Failed to read password: %v", err)
	}
	if confirmation {
		confirm, err := prompt.Stdin.PromptPassword("Repeat password: ")
		if err != nil {
			Fatalf("Failed to read password confirmation: %v", err)
		}
		if passphrase != confirm {
			Fatalf("Passwords do not match")
		}
	}
	return passphrase
}

// mustPrintJSON prints the JSON encoding of the given object and exits the
// program with an error message when the marshaling fails.
func mustPrintJSON(jsonObject interface{}) {
	str, err := json.MarshalIndent(jsonObject, "", "  ")
	if err != nil {
		Fatalf("Failed to marshal JSON object: %v", err)
	}
	fmt.Println(string(str))
}
