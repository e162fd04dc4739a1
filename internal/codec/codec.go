// Package codec decodes ABI-encoded log topics and data words into addresses
// and integers, and encodes addresses into topic filter values. Pure
// functions, no I/O.
package codec

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrMalformedTopic reports a topic that is not a 32-byte hex string.
var ErrMalformedTopic = errors.New("malformed topic")

const wordSize = 32

// DecodeAddress reinterprets the low 20 bytes of a 32-byte topic as an
// address.
func DecodeAddress(topic string) (string, error) {
	raw, err := hexutil.Decode(topic)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedTopic, err)
	}
	if len(raw) != wordSize {
		return "", fmt.Errorf("%w: got %d bytes", ErrMalformedTopic, len(raw))
	}
	return common.BytesToAddress(raw[wordSize-common.AddressLength:]).Hex(), nil
}

// DecodeBig parses a topic or data word as a big-endian unsigned integer.
func DecodeBig(value string) (*big.Int, error) {
	raw, err := hexutil.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTopic, err)
	}
	return new(big.Int).SetBytes(raw), nil
}

// DecodeUint64 parses a topic or data word as a uint64.
func DecodeUint64(value string) (uint64, error) {
	n, err := DecodeBig(value)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: value does not fit in uint64", ErrMalformedTopic)
	}
	return n.Uint64(), nil
}

// EncodeAddressTopic left-pads a 20-byte address to a 32-byte topic filter
// value.
func EncodeAddressTopic(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid address: %s", address)
	}
	return common.BytesToHash(common.HexToAddress(address).Bytes()).Hex(), nil
}

// Word extracts the 32-byte word at position pos from a log data payload.
func Word(data string, pos int) (string, error) {
	raw, err := hexutil.Decode(data)
	if err != nil {
		return "", fmt.Errorf("invalid data: %w", err)
	}
	start := pos * wordSize
	if pos < 0 || start+wordSize > len(raw) {
		return "", fmt.Errorf("data word %d out of range (%d bytes)", pos, len(raw))
	}
	return hexutil.Encode(raw[start : start+wordSize]), nil
}
