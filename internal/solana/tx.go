package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const signatureLen = ed25519.SignatureSize

// ErrNotSigner is returned when a transaction does not list the key as a required signer.
var ErrNotSigner = errors.New("key is not a required signer")

// BuildTransfer returns a legacy message that moves lamports from one account
// to another through the system program. from pays the fee.
func BuildTransfer(from, to PublicKey, lamports uint64, recentBlockhash string) ([]byte, error) {
	hash, err := base58.Decode(recentBlockhash)
	if err != nil || len(hash) != 32 {
		return nil, fmt.Errorf("invalid blockhash %q", recentBlockhash)
	}

	var msg bytes.Buffer
	// Header: one signer, no read-only signers, system program read-only.
	msg.Write([]byte{1, 0, 1})

	writeShortVec(&msg, 3)
	msg.Write(from[:])
	msg.Write(to[:])
	msg.Write(SystemProgramID[:])

	msg.Write(hash)

	writeShortVec(&msg, 1)
	msg.WriteByte(2) // program index
	writeShortVec(&msg, 2)
	msg.Write([]byte{0, 1})

	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 2) // SystemInstruction::Transfer
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	writeShortVec(&msg, len(data))
	msg.Write(data)

	return msg.Bytes(), nil
}

// NewUnsigned wraps a message with empty signature slots for its required signers.
func NewUnsigned(message []byte) ([]byte, error) {
	n, err := requiredSigners(message)
	if err != nil {
		return nil, err
	}
	var tx bytes.Buffer
	writeShortVec(&tx, n)
	tx.Write(make([]byte, n*signatureLen))
	tx.Write(message)
	return tx.Bytes(), nil
}

// SignTransaction signs a serialized legacy or v0 transaction with key,
// placing the signature in the key's signer slot. It returns a new buffer
// and the base58 signature.
func SignTransaction(raw []byte, key ed25519.PrivateKey) ([]byte, string, error) {
	count, n, err := readShortVec(raw)
	if err != nil {
		return nil, "", fmt.Errorf("reading signature count: %w", err)
	}
	msgStart := n + count*signatureLen
	if len(raw) < msgStart {
		return nil, "", fmt.Errorf("transaction truncated")
	}
	message := raw[msgStart:]

	slot, err := signerSlot(message, key.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, "", err
	}
	if slot >= count {
		return nil, "", fmt.Errorf("signer slot %d outside %d signatures", slot, count)
	}

	sig := ed25519.Sign(key, message)
	out := make([]byte, len(raw))
	copy(out, raw)
	copy(out[n+slot*signatureLen:], sig)
	return out, base58.Encode(sig), nil
}

// messageKeys returns the header offset, required signer count and static account keys.
func messageKeys(message []byte) (int, []PublicKey, error) {
	off := 0
	if len(message) > 0 && message[0]&0x80 != 0 {
		off = 1 // versioned message prefix
	}
	if len(message) < off+3 {
		return 0, nil, fmt.Errorf("message header truncated")
	}
	required := int(message[off])
	count, n, err := readShortVec(message[off+3:])
	if err != nil {
		return 0, nil, fmt.Errorf("reading account keys: %w", err)
	}
	start := off + 3 + n
	if len(message) < start+count*32 {
		return 0, nil, fmt.Errorf("account keys truncated")
	}
	keys := make([]PublicKey, count)
	for i := range keys {
		copy(keys[i][:], message[start+i*32:])
	}
	return required, keys, nil
}

func requiredSigners(message []byte) (int, error) {
	required, _, err := messageKeys(message)
	return required, err
}

func signerSlot(message []byte, pub ed25519.PublicKey) (int, error) {
	required, keys, err := messageKeys(message)
	if err != nil {
		return 0, err
	}
	for i := 0; i < required && i < len(keys); i++ {
		if bytes.Equal(keys[i][:], pub) {
			return i, nil
		}
	}
	return 0, ErrNotSigner
}

// writeShortVec encodes n in Solana's compact-u16 format.
func writeShortVec(b *bytes.Buffer, n int) {
	for {
		elem := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			b.WriteByte(elem)
			return
		}
		b.WriteByte(elem | 0x80)
	}
}

func readShortVec(b []byte) (value, size int, err error) {
	for size < 3 {
		if size >= len(b) {
			return 0, 0, fmt.Errorf("compact-u16 truncated")
		}
		elem := int(b[size])
		value |= (elem & 0x7f) << (7 * size)
		size++
		if elem&0x80 == 0 {
			return value, size, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}
