package tron

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

const (
	// AddressLength is the length of a base58check encoded TRON address.
	AddressLength = 34
	// AddressVersion is the version byte prefixed to every TRON mainnet/testnet address.
	AddressVersion byte = 0x41

	addressPayloadLength = 20
)

// AddressError reports why a string is not a TRON address.
type AddressError struct {
	Address string
	Reason  string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid TRON address %q: %s", e.Address, e.Reason)
}

// ParseAddress checks that s is a base58check TRON address and returns it trimmed.
func ParseAddress(s string) (string, error) {
	address := strings.TrimSpace(s)
	if len(address) != AddressLength {
		return "", &AddressError{Address: s, Reason: fmt.Sprintf("expected %d characters", AddressLength)}
	}

	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return "", &AddressError{Address: s, Reason: err.Error()}
	}
	if version != AddressVersion {
		return "", &AddressError{Address: s, Reason: fmt.Sprintf("unexpected version byte 0x%02x", version)}
	}
	if len(payload) != addressPayloadLength {
		return "", &AddressError{Address: s, Reason: "unexpected payload length"}
	}

	return address, nil
}

// ValidateAddress reports whether s is a well-formed TRON address.
func ValidateAddress(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}

// EncodeAddress renders a 20 byte account identifier as a TRON address.
func EncodeAddress(account []byte) (string, error) {
	if len(account) != addressPayloadLength {
		return "", fmt.Errorf("tron: account identifier must be %d bytes, got %d", addressPayloadLength, len(account))
	}
	return base58.CheckEncode(account, AddressVersion), nil
}
