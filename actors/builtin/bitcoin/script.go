package bitcoin

import (
	"bytes"

	"github.com/btcpeg/bridge-core/actors/abi"
)

// Opcodes used by the six canonical templates this bridge recognizes
// (spec §6's table). Only the handful actually needed are named.
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqualVerify = 0x88
	opEqual       = 0x87
	opCheckSig    = 0xac
	opPush20      = 0x14
	opPush32      = 0x20
	opTaproot     = 0x51 // OP_1, the P2TR witness version byte
)

// BuildScript constructs the canonical scriptPubKey for (scriptType,
// payload) per the template table in spec §6. payload must already be the
// correct width for the type (20 or 32 bytes, per ScriptType.PayloadSize).
func BuildScript(scriptType abi.ScriptType, payload []byte) ([]byte, error) {
	size, err := scriptType.PayloadSize()
	if err != nil {
		return nil, err
	}
	if len(payload) != size {
		return nil, &ErrMalformed{Reason: "payload length does not match script type"}
	}
	var buf bytes.Buffer
	switch scriptType {
	case abi.ScriptTypeP2PK:
		buf.WriteByte(opPush32)
		buf.Write(payload)
		buf.WriteByte(opCheckSig)
	case abi.ScriptTypeP2PKH:
		buf.WriteByte(opDup)
		buf.WriteByte(opHash160)
		buf.WriteByte(opPush20)
		buf.Write(payload)
		buf.WriteByte(opEqualVerify)
		buf.WriteByte(opCheckSig)
	case abi.ScriptTypeP2SH:
		buf.WriteByte(opHash160)
		buf.WriteByte(opPush20)
		buf.Write(payload)
		buf.WriteByte(opEqual)
	case abi.ScriptTypeP2WPKH:
		buf.WriteByte(0x00)
		buf.WriteByte(opPush20)
		buf.Write(payload)
	case abi.ScriptTypeP2WSH:
		buf.WriteByte(0x00)
		buf.WriteByte(opPush32)
		buf.Write(payload)
	case abi.ScriptTypeP2TR:
		buf.WriteByte(opTaproot)
		buf.WriteByte(opPush32)
		buf.Write(payload)
	default:
		return nil, &ErrMalformed{Reason: "unsupported script type"}
	}
	return buf.Bytes(), nil
}

// MatchesScript reports whether scriptPubKey is exactly the canonical
// template for (scriptType, payload) — byte-exact, no partial or
// prefix matching (spec §9: "fail closed ... no silent truncation").
func MatchesScript(scriptPubKey []byte, scriptType abi.ScriptType, payload []byte) (bool, error) {
	want, err := BuildScript(scriptType, payload)
	if err != nil {
		return false, err
	}
	return bytes.Equal(scriptPubKey, want), nil
}
