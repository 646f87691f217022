package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alanyoungcy/pharosbet/internal/wallet"
)

// encryptKey reads a hex private key and a password and writes an encrypted
// key file for wallet.encrypted_key_path. Both values come from
// PHAROSBET_WALLET_PRIVATE_KEY and PHAROSBET_WALLET_KEY_PASSWORD, or from
// the first two lines of stdin.
func encryptKey(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("encrypt-key", flag.ContinueOnError)
	out := fs.String("out", "wallet.key.json", "output path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	hexKey := os.Getenv("PHAROSBET_WALLET_PRIVATE_KEY")
	password := os.Getenv("PHAROSBET_WALLET_KEY_PASSWORD")
	lines := bufio.NewScanner(stdin)
	if hexKey == "" && lines.Scan() {
		hexKey = strings.TrimSpace(lines.Text())
	}
	if password == "" && lines.Scan() {
		password = strings.TrimSpace(lines.Text())
	}
	if hexKey == "" || password == "" {
		return errors.New("private key and password are required")
	}

	key, err := wallet.ParseKey(hexKey)
	if err != nil {
		return err
	}
	data, err := wallet.SealKey(key, password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(stdout, "wrote encrypted key to %s\n", *out)
	return nil
}
