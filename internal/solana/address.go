package solana

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mr-tron/base58"
)

var (
	// ErrInvalidAddress is returned for strings that are not base58 32-byte keys.
	ErrInvalidAddress = errors.New("invalid solana address")

	addressPattern   = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	signaturePattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{87,88}$`)
)

// Chain is the best guess at which network an identifier belongs to.
type Chain string

const (
	ChainSolana   Chain = "solana"
	ChainEthereum Chain = "ethereum"
	ChainInvalid  Chain = "invalid"
)

// ValidateAddress reports whether s looks like a Solana account address.
func ValidateAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// ValidateSignature reports whether s looks like a Solana transaction signature.
func ValidateSignature(s string) bool {
	return signaturePattern.MatchString(s)
}

// ChainType classifies an address.
func ChainType(address string) Chain {
	switch {
	case strings.HasPrefix(address, "0x"):
		return ChainEthereum
	case ValidateAddress(address):
		return ChainSolana
	default:
		return ChainInvalid
	}
}

// IsEthereumTxHash reports whether hash has the shape of an Ethereum transaction hash.
func IsEthereumTxHash(hash string) bool {
	return strings.HasPrefix(hash, "0x") && len(hash) == 66
}

// PublicKey is an ed25519 public key, the identity of a Solana account.
type PublicKey [32]byte

// SystemProgramID is the native system program, the all-zero key.
var SystemProgramID PublicKey

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	if !ValidateAddress(s) {
		return pk, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != len(pk) {
		return pk, fmt.Errorf("%w: decoded to %d bytes", ErrInvalidAddress, len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Short renders an address as "abcd...wxyz".
func Short(address string) string {
	if len(address) <= 8 {
		return address
	}
	return address[:4] + "..." + address[len(address)-4:]
}
