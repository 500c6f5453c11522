package signing

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/wattxchange/wallet-core/internal/accounts"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

// messageMagic prefixes signed messages on the QTUM-family chains.
const messageMagic = "Qtum Signed Message:\n"

// signPayloadUTXO signs a serialized payment payload with a compact
// recoverable ECDSA signature over its double-SHA256.
func signPayloadUTXO(key *accounts.HDKey, req TxRequest) ([]byte, error) {
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("%w: missing payment payload", errs.ErrInvalidInput)
	}
	hash := doubleSHA256(req.Data)
	return signCompact(key, hash)
}

// signMessageUTXO signs a personal message under the network magic,
// matching what explorers and nodes verify.
func signMessageUTXO(key *accounts.HDKey, message []byte) ([]byte, error) {
	buf := make([]byte, 0, 2+len(messageMagic)+9+len(message))
	buf = appendVarInt(buf, uint64(len(messageMagic)))
	buf = append(buf, messageMagic...)
	buf = appendVarInt(buf, uint64(len(message)))
	buf = append(buf, message...)

	return signCompact(key, doubleSHA256(buf))
}

func signCompact(key *accounts.HDKey, hash []byte) ([]byte, error) {
	priv := secp256k1.PrivKeyFromBytes(key.PrivateKeyBytes())
	defer priv.Zero()
	return secpecdsa.SignCompact(priv, hash, true), nil
}

func doubleSHA256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// appendVarInt appends a Bitcoin-style variable-length integer.
func appendVarInt(buf []byte, v uint64) []byte {
	switch {
	case v < 0xfd:
		return append(buf, byte(v))
	case v <= 0xffff:
		buf = append(buf, 0xfd)
		return binary.LittleEndian.AppendUint16(buf, uint16(v))
	case v <= 0xffffffff:
		buf = append(buf, 0xfe)
		return binary.LittleEndian.AppendUint32(buf, uint32(v))
	default:
		buf = append(buf, 0xff)
		return binary.LittleEndian.AppendUint64(buf, v)
	}
}
