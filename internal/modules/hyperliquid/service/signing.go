package service

import (
	"bytes"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	agentChainID    = 1337
	agentDomainName = "Exchange"
	agentDomainVer  = "1"
	zeroAddress     = "0x0000000000000000000000000000000000000000"
	mainnetAgentSrc = "a"
	testnetAgentSrc = "b"
)

// actionHash = keccak(msgpack(action) || nonce(8 байт BE) || 0x00 — без vault).
func actionHash(action any, nonce int64) (common.Hash, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(action); err != nil {
		return common.Hash{}, errors.Wrap(err, "msgpack action")
	}

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(nonce))
	buf.Write(n[:])
	buf.WriteByte(0x00)

	return crypto.Keccak256Hash(buf.Bytes()), nil
}

// agentTypedData — EIP-712 "phantom agent", которым подписываются L1-действия.
func agentTypedData(connectionID common.Hash, mainnet bool) apitypes.TypedData {
	source := testnetAgentSrc
	if mainnet {
		source = mainnetAgentSrc
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": {
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              agentDomainName,
			Version:           agentDomainVer,
			ChainId:           math.NewHexOrDecimal256(agentChainID),
			VerifyingContract: zeroAddress,
		},
		Message: apitypes.TypedDataMessage{
			"source":       source,
			"connectionId": connectionID.Bytes(),
		},
	}
}

// agentDigest — итоговый EIP-712 хеш: keccak("\x19\x01" || domainSeparator || hashStruct(Agent)).
func agentDigest(connectionID common.Hash, mainnet bool) (common.Hash, error) {
	td := agentTypedData(connectionID, mainnet)

	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "hash domain")
	}
	messageHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "hash agent")
	}

	raw := []byte("\x19\x01")
	raw = append(raw, domainSeparator...)
	raw = append(raw, messageHash...)
	return crypto.Keccak256Hash(raw), nil
}

func (c *Client) signL1Action(action any, nonce int64) (signatureWire, error) {
	if c.key == nil {
		return signatureWire{}, ErrNoSigner
	}

	hash, err := actionHash(action, nonce)
	if err != nil {
		return signatureWire{}, err
	}
	digest, err := agentDigest(hash, c.mainnet)
	if err != nil {
		return signatureWire{}, err
	}

	sig, err := crypto.Sign(digest.Bytes(), c.key)
	if err != nil {
		return signatureWire{}, errors.Wrap(err, "sign")
	}

	return signatureWire{
		R: hexutil.Encode(sig[:32]),
		S: hexutil.Encode(sig[32:64]),
		V: sig[64] + 27,
	}, nil
}
