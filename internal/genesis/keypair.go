package genesis

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mr-tron/base58"
)

const (
	keypairLen   = 64
	publicKeyLen = 32
)

// Keypair is a solana-keygen keypair file.
type Keypair struct {
	// Path is where the file lives in the work directory.
	Path string

	// Pubkey is the base58 public key.
	Pubkey string

	// Raw is the file content, a JSON array of 64 bytes.
	Raw []byte
}

// ReadKeypair loads a keypair file written by solana-keygen.
func ReadKeypair(path string) (Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Keypair{}, fmt.Errorf("failed to read keypair: %w", err)
	}

	pubkey, err := ParsePubkey(raw)
	if err != nil {
		return Keypair{}, fmt.Errorf("keypair %s: %w", path, err)
	}

	return Keypair{Path: path, Pubkey: pubkey, Raw: raw}, nil
}

// ParsePubkey returns the base58 public key of a JSON keypair. The public
// key is the trailing half of the 64-byte secret.
func ParsePubkey(raw []byte) (string, error) {
	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return "", fmt.Errorf("invalid keypair encoding: %w", err)
	}
	if len(values) != keypairLen {
		return "", fmt.Errorf("invalid keypair length %d, want %d", len(values), keypairLen)
	}

	key := make([]byte, keypairLen)
	for i, v := range values {
		if v < 0 || v > 255 {
			return "", fmt.Errorf("invalid keypair byte %d at offset %d", v, i)
		}
		key[i] = byte(v)
	}

	return base58.Encode(key[keypairLen-publicKeyLen:]), nil
}
