package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sadiqsaidu/solvend/config"
	"github.com/sadiqsaidu/solvend/merkletree"
	"github.com/sadiqsaidu/solvend/native/reportmarket"
)

// itemJSON mirrors the backend's distribution input: one claimant identity
// and the amount owed in minor units.
type itemJSON struct {
	Claimant string `json:"claimant"`
	Amount   uint64 `json:"amount"`
}

type proofJSON struct {
	Amount uint64   `json:"amount"`
	Proof  []string `json:"proof"`
}

type treeJSON struct {
	Root   string               `json:"root"`
	Leaves []string             `json:"leaves"`
	Proofs map[string]proofJSON `json:"proofs"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	var err error
	switch os.Args[1] {
	case "merkle-build":
		err = runBuild(os.Args[2:])
	case "merkle-verify":
		err = runVerify(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: solvend-cli <merkle-build|merkle-verify> [flags]")
}

// runBuild reads distribution items and writes the tree with per-claimant
// proofs, ready for SubmitDistributionRoot and the claim clients.
func runBuild(args []string) error {
	fs := flag.NewFlagSet("merkle-build", flag.ExitOnError)
	inPath := fs.String("in", "./distribution.json", "Path to the claimant/amount list")
	outPath := fs.String("out", "./merkle_tree.json", "Path to write the tree and proofs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw, err := os.ReadFile(*inPath)
	if err != nil {
		return err
	}
	var entries []itemJSON
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse %s: %w", *inPath, err)
	}
	items := make([]merkletree.Item, len(entries))
	for i, entry := range entries {
		claimant, err := config.ParseAddress(entry.Claimant)
		if err != nil {
			return fmt.Errorf("claimant %q: %w", entry.Claimant, err)
		}
		items[i] = merkletree.Item{Claimant: claimant, Amount: entry.Amount}
	}
	tree, err := merkletree.Build(items)
	if err != nil {
		return err
	}
	root := tree.Root()
	out := treeJSON{
		Root:   hex.EncodeToString(root[:]),
		Leaves: make([]string, len(items)),
		Proofs: make(map[string]proofJSON, len(items)),
	}
	for i, item := range items {
		leaf := reportmarket.LeafHash(item.Claimant, item.Amount)
		out.Leaves[i] = hex.EncodeToString(leaf[:])
		proof, err := tree.Proof(i)
		if err != nil {
			return err
		}
		encoded := make([]string, len(proof))
		for j, sibling := range proof {
			encoded[j] = hex.EncodeToString(sibling[:])
		}
		out.Proofs[strings.ToLower(entries[i].Claimant)] = proofJSON{Amount: item.Amount, Proof: encoded}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (root %s, %d leaves)\n", *outPath, out.Root, len(items))
	return nil
}

// runVerify checks one claimant's proof against a root the way the on-chain
// verifier will.
func runVerify(args []string) error {
	fs := flag.NewFlagSet("merkle-verify", flag.ExitOnError)
	rootHex := fs.String("root", "", "Distribution root (hex)")
	claimantHex := fs.String("claimant", "", "Claimant identity (hex)")
	amount := fs.Uint64("amount", 0, "Claim amount in minor units")
	proofCSV := fs.String("proof", "", "Comma-separated sibling hashes (hex)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	root, err := parseHash(*rootHex)
	if err != nil {
		return fmt.Errorf("root: %w", err)
	}
	claimant, err := config.ParseAddress(*claimantHex)
	if err != nil {
		return fmt.Errorf("claimant: %w", err)
	}
	var proof [][32]byte
	if trimmed := strings.TrimSpace(*proofCSV); trimmed != "" {
		for _, part := range strings.Split(trimmed, ",") {
			sibling, err := parseHash(part)
			if err != nil {
				return fmt.Errorf("proof element %q: %w", part, err)
			}
			proof = append(proof, sibling)
		}
	}
	if reportmarket.VerifyProof(reportmarket.LeafHash(claimant, *amount), proof, root) {
		fmt.Println("proof valid")
		return nil
	}
	return fmt.Errorf("proof does not verify")
}

func parseHash(value string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	if err != nil {
		return out, err
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("expected %d bytes, got %d", len(out), len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
