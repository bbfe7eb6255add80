package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tos-network/xaccount/account"
	"github.com/tos-network/xaccount/oracle"
	"github.com/tos-network/xaccount/params"
	"github.com/tos-network/xaccount/registry"
)

func runApp(t *testing.T, args ...string) {
	t.Helper()
	if err := app.Run(append([]string{"xakey"}, args...)); err != nil {
		t.Fatalf("xakey %s: %v", strings.Join(args, " "), err)
	}
}

func writePasswordFile(t *testing.T, dir, password string) string {
	t.Helper()
	path := filepath.Join(dir, "password.txt")
	if err := os.WriteFile(path, []byte(password+"\n"), 0600); err != nil {
		t.Fatalf("write password file: %v", err)
	}
	return path
}

func TestGenerateKeystoreFromMnemonic(t *testing.T) {
	dir := t.TempDir()
	pwfile := writePasswordFile(t, dir, "foobar")
	keyfile := filepath.Join(dir, "owner.json")

	runApp(t, "generate",
		"--passwordfile", pwfile,
		"--lightkdf",
		"--mnemonic", testMnemonic,
		keyfile,
	)

	keyjson, err := os.ReadFile(keyfile)
	if err != nil {
		t.Fatalf("read keyfile: %v", err)
	}
	key, err := keystore.DecryptKey(keyjson, "foobar")
	if err != nil {
		t.Fatalf("decrypt keyfile: %v", err)
	}
	wantPriv := "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	if got := hex.EncodeToString(crypto.FromECDSA(key.PrivateKey)); got != wantPriv {
		t.Fatalf("private key = %s, want %s", got, wantPriv)
	}
	if want := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"); key.Address != want {
		t.Fatalf("address = %s, want %s", key.Address.Hex(), want.Hex())
	}
}

func TestGenerateEd25519SeedFile(t *testing.T) {
	dir := t.TempDir()
	keyfile := filepath.Join(dir, "owner.seed")

	runApp(t, "generate", "--scheme", "ed25519", keyfile)

	content, err := os.ReadFile(keyfile)
	if err != nil {
		t.Fatalf("read keyfile: %v", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(content)))
	if err != nil {
		t.Fatalf("keyfile is not hex: %v", err)
	}
	if len(seed) != ed25519.SeedSize {
		t.Fatalf("seed size = %d, want %d", len(seed), ed25519.SeedSize)
	}

	key, err := loadOwnerKey(keyfile, func() string { return "" }, oracle.SchemeEd25519)
	if err != nil {
		t.Fatalf("load keyfile: %v", err)
	}
	wantPub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	if !strings.EqualFold(hex.EncodeToString(key.Public), hex.EncodeToString(wantPub)) {
		t.Fatalf("public key mismatch")
	}

	sig, err := key.Sign(common.HexToHash("0xdeadbeef"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != ed25519.SignatureSize {
		t.Fatalf("signature size = %d, want %d", len(sig), ed25519.SignatureSize)
	}
}

func TestDeriveAccountAddressOffline(t *testing.T) {
	cfg := &xakeyConfig{Namespace: "cosmos", ChainID: "cosmoshub-4", Scheme: oracle.SchemeEd25519}
	pub := make([]byte, ed25519.PublicKeySize)
	for i := range pub {
		pub[i] = byte(i + 1)
	}

	addr, err := deriveAccountAddress(cfg, cfg.Scheme, pub)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	canonical, err := account.EncodeIdentity(account.Identity{
		ChainNamespace: cfg.Namespace,
		ChainID:        cfg.ChainID,
		Owner:          pub,
	})
	if err != nil {
		t.Fatalf("encode identity: %v", err)
	}
	if want := registry.Address(canonical, oracle.VMTypeHash(cfg.Scheme)); addr != want {
		t.Fatalf("address = %s, want %s", addr.Hex(), want.Hex())
	}

	again, err := deriveAccountAddress(cfg, cfg.Scheme, pub)
	if err != nil {
		t.Fatalf("derive again: %v", err)
	}
	if again != addr {
		t.Fatalf("derivation not deterministic")
	}
	otherCfg := &xakeyConfig{Namespace: "cosmos", ChainID: "osmosis-1", Scheme: cfg.Scheme}
	other, err := deriveAccountAddress(otherCfg, cfg.Scheme, pub)
	if err != nil {
		t.Fatalf("derive other chain: %v", err)
	}
	if other == addr {
		t.Fatalf("different chain ids derived the same address")
	}
}

func TestAttestAddCommand(t *testing.T) {
	dir := t.TempDir()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 7)
	}
	keyfile := filepath.Join(dir, "owner.seed")
	if err := os.WriteFile(keyfile, []byte(hex.EncodeToString(seed)+"\n"), 0600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	storeDir := filepath.Join(dir, "attestations")
	payloadHash := crypto.Keccak256Hash([]byte("attested payload"))

	runApp(t, "attest", "add",
		"--scheme", "ed25519",
		"--namespace", "cosmos",
		"--chainid", "cosmoshub-4",
		"--store", storeDir,
		"--txhash", "1122334455",
		"--payload-hash", payloadHash.Hex(),
		keyfile,
	)

	store, err := oracle.OpenStore(storeDir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()

	att, err := store.Lookup("cosmos", "cosmoshub-4", []byte{0x11, 0x22, 0x33, 0x44, 0x55})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if att.PayloadHash != payloadHash {
		t.Fatalf("payload hash = %s, want %s", att.PayloadHash.Hex(), payloadHash.Hex())
	}
	wantOwner := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	if hex.EncodeToString(att.Owner) != hex.EncodeToString(wantOwner) {
		t.Fatalf("owner mismatch")
	}
}

func edTestKey(t *testing.T, tag byte) *ownerKey {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = tag
	}
	return ownerKeyFromEd25519(ed25519.NewKeyFromSeed(seed))
}

func TestRunLocalExecutionEndToEnd(t *testing.T) {
	cfg := &xakeyConfig{Namespace: "cosmos", ChainID: "cosmoshub-4", Scheme: oracle.SchemeEd25519}
	key := edTestKey(t, 0x42)
	now := uint64(time.Now().Unix())
	recipient := common.HexToAddress("0x00000000000000000000000000000000ee000001")
	p := &account.Payload{
		To:               recipient,
		Value:            big.NewInt(1_200),
		GasLimit:         50_000,
		Deadline:         now + 100,
		VerificationType: account.SignatureBased,
	}

	res, err := runLocalExecution(cfg, key, p, big.NewInt(5_000), nil, now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Executed {
		t.Fatalf("payload not executed")
	}
	if res.NonceBefore != 0 || res.NonceAfter != 1 {
		t.Fatalf("nonce %d -> %d, want 0 -> 1", res.NonceBefore, res.NonceAfter)
	}
	if got := (*big.Int)(res.RecipientBalance); got.Cmp(big.NewInt(1_200)) != 0 {
		t.Fatalf("recipient balance = %v, want 1200", got)
	}
	if got := (*big.Int)(res.AccountBalance); got.Cmp(big.NewInt(3_800)) != 0 {
		t.Fatalf("account balance = %v, want 3800", got)
	}
	if res.GasUsed != 2*params.SysActionGas {
		t.Fatalf("gas used = %d, want %d", res.GasUsed, 2*params.SysActionGas)
	}
	if res.Deployed == nil || res.Deployed.Account != res.Account {
		t.Fatalf("missing or wrong AccountDeployed event: %+v", res.Deployed)
	}
	if res.PayloadExecuted == nil || res.PayloadExecuted.To != recipient {
		t.Fatalf("missing or wrong PayloadExecuted event: %+v", res.PayloadExecuted)
	}
	if res.Digest == (common.Hash{}) {
		t.Fatalf("digest not reported")
	}

	// The derived address must match the offline derivation.
	want, err := deriveAccountAddress(cfg, key.Scheme, key.Public)
	if err != nil {
		t.Fatalf("offline derive: %v", err)
	}
	if res.Account != want {
		t.Fatalf("account = %s, want offline derived %s", res.Account.Hex(), want.Hex())
	}
}

func TestRunLocalExecutionExpiredDeadline(t *testing.T) {
	cfg := &xakeyConfig{Namespace: "cosmos", ChainID: "cosmoshub-4", Scheme: oracle.SchemeEd25519}
	key := edTestKey(t, 0x43)
	now := uint64(time.Now().Unix())
	p := &account.Payload{
		To:               common.HexToAddress("0x00000000000000000000000000000000ee000002"),
		Value:            big.NewInt(10),
		Deadline:         now - 1,
		VerificationType: account.SignatureBased,
	}

	res, err := runLocalExecution(cfg, key, p, big.NewInt(100), nil, now)
	if !errors.Is(err, account.ErrExpiredDeadline) {
		t.Fatalf("err = %v, want ErrExpiredDeadline", err)
	}
	if res == nil || res.Executed {
		t.Fatalf("expired payload must report an unexecuted result")
	}
	if res.Deployed == nil {
		t.Fatalf("deployment should have happened before the deadline check")
	}
}

func TestRunLocalExecutionTxHashNeedsProof(t *testing.T) {
	cfg := &xakeyConfig{Namespace: "cosmos", ChainID: "cosmoshub-4", Scheme: oracle.SchemeEd25519}
	key := edTestKey(t, 0x44)
	p := &account.Payload{
		To:               common.HexToAddress("0x00000000000000000000000000000000ee000003"),
		Deadline:         uint64(time.Now().Unix()) + 100,
		VerificationType: account.TxHashBased,
	}
	if _, err := runLocalExecution(cfg, key, p, nil, nil, uint64(time.Now().Unix())); err == nil {
		t.Fatalf("tx hash payload without proof accepted")
	}
}

func TestRunLocalExecutionTxHashAttested(t *testing.T) {
	dir := t.TempDir()
	storeDir := filepath.Join(dir, "attestations")
	cfg := &xakeyConfig{
		Namespace: "eip155",
		ChainID:   "56",
		Scheme:    oracle.SchemeSecp256k1,
		StorePath: storeDir,
	}
	scalar := make([]byte, 32)
	for i := range scalar {
		scalar[i] = byte(i + 1)
	}
	priv, err := crypto.ToECDSA(scalar)
	if err != nil {
		t.Fatalf("make key: %v", err)
	}
	key := ownerKeyFromECDSA(priv)
	now := uint64(time.Now().Unix())
	recipient := common.HexToAddress("0x00000000000000000000000000000000ee000004")
	p := &account.Payload{
		To:               recipient,
		Value:            big.NewInt(700),
		Deadline:         now + 100,
		VerificationType: account.TxHashBased,
	}

	// Attest the digest before the run, the way a relayer observing the
	// native chain would.
	addr, err := deriveAccountAddress(cfg, key.Scheme, key.Public)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	digest, err := account.HashPayloadAt(cfg.ChainID, addr, p, 0)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	txHash := []byte{0xaa, 0xbb, 0xcc}
	store, err := oracle.OpenStore(storeDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Attest(oracle.Attestation{
		Namespace:   cfg.Namespace,
		ChainID:     cfg.ChainID,
		Owner:       key.Public,
		PayloadHash: digest,
		TxHash:      txHash,
	}); err != nil {
		t.Fatalf("attest: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	res, err := runLocalExecution(cfg, key, p, big.NewInt(1_000), txHash, now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Executed {
		t.Fatalf("attested payload not executed")
	}
	if res.Digest != digest {
		t.Fatalf("digest = %s, want precomputed %s", res.Digest.Hex(), digest.Hex())
	}
	if got := (*big.Int)(res.RecipientBalance); got.Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("recipient balance = %v, want 700", got)
	}
}
