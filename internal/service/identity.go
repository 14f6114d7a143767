package service

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

const (
	tagKYC           = "has_kyc"
	tagBotProtection = "bot_protection"
)

// IdentityService verifies the externally signed purchase attestation for
// events with KYC or bot protection enabled. KYC takes precedence.
type IdentityService struct {
	registry domain.SignerRegistry
}

func NewIdentityService(registry domain.SignerRegistry) *IdentityService {
	return &IdentityService{registry: registry}
}

// Check validates the attestation payload and signature. The payload must be
// the exact concatenation of caller, event, type, stage, quantity and the
// mode tag; the signature must recover to the registered signer. Events with
// neither flag pass through unchecked.
func (i *IdentityService) Check(
	ctx context.Context,
	event *domain.Event,
	ticketType *domain.TicketType,
	stage *domain.TicketStage,
	caller domain.Address,
	quantity uint32,
	signature []byte,
	payload []byte,
) error {
	var tag string
	switch {
	case event.HasKYC:
		tag = tagKYC
	case event.BotProtection:
		tag = tagBotProtection
	default:
		return nil
	}

	if len(payload) == 0 {
		return domain.ErrMissingPayload()
	}
	if len(signature) == 0 {
		return domain.ErrMissingSignature()
	}

	expected := AttestationPayload(caller, event.ID, ticketType.ID, stage.ID, quantity, tag)
	if !bytes.Equal(payload, expected) {
		return domain.ErrPayloadInvalid()
	}

	signer, err := i.registry.Signer(ctx)
	if err != nil {
		return err
	}

	return verifyPersonalSign(signer, payload, signature)
}

// AttestationPayload builds the deterministic byte sequence both the signer
// and the gate must agree on.
func AttestationPayload(caller domain.Address, eventID, typeID, stageID string, quantity uint32, tag string) []byte {
	var b bytes.Buffer
	b.WriteString(string(caller))
	b.WriteString(eventID)
	b.WriteString(typeID)
	b.WriteString(stageID)
	b.WriteString(strconv.FormatUint(uint64(quantity), 10))
	b.WriteString(tag)
	return b.Bytes()
}

// verifyPersonalSign checks an EIP-191 personal-sign signature over message
// and compares the recovered address with the registered signer.
func verifyPersonalSign(signer domain.Address, message, signature []byte) error {
	if len(signature) != crypto.SignatureLength {
		return domain.ErrSignatureInvalid()
	}

	// Wallets emit V as 27/28; go-ethereum expects 0/1.
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return domain.ErrSignatureInvalid()
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	expected := common.HexToAddress(string(signer))
	if !strings.EqualFold(recovered.Hex(), expected.Hex()) {
		return domain.ErrSignatureInvalid()
	}
	return nil
}
