package service

import (
	"context"
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

func signedAttestation(t *testing.T, key *ecdsa.PrivateKey, payload []byte) []byte {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash(payload), key)
	require.NoError(t, err)
	return sig
}

func identityFixture(t *testing.T) (*IdentityService, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := domain.Address(crypto.PubkeyToAddress(key.PublicKey).Hex())
	return NewIdentityService(&fakeRegistry{signer: signer}), key
}

func TestIdentityCheckSkipsUnprotectedEvents(t *testing.T) {
	svc, _ := identityFixture(t)
	event := domain.Event{ID: testEventID}
	ticketType := domain.TicketType{ID: testTypeID}
	stage := domain.TicketStage{ID: testStageID}

	err := svc.Check(context.Background(), &event, &ticketType, &stage, testBuyer, 1, nil, nil)
	assert.NoError(t, err)
}

func TestIdentityCheckRequiresPayloadAndSignature(t *testing.T) {
	svc, key := identityFixture(t)
	event := domain.Event{ID: testEventID, HasKYC: true}
	ticketType := domain.TicketType{ID: testTypeID}
	stage := domain.TicketStage{ID: testStageID}
	payload := AttestationPayload(testBuyer, testEventID, testTypeID, testStageID, 2, "has_kyc")

	err := svc.Check(context.Background(), &event, &ticketType, &stage, testBuyer, 2, nil, nil)
	assert.ErrorIs(t, err, domain.ErrMissingPayload())

	err = svc.Check(context.Background(), &event, &ticketType, &stage, testBuyer, 2, nil, payload)
	assert.ErrorIs(t, err, domain.ErrMissingSignature())

	sig := signedAttestation(t, key, payload)
	err = svc.Check(context.Background(), &event, &ticketType, &stage, testBuyer, 2, sig, payload)
	assert.NoError(t, err)
}

func TestIdentityCheckRejectsWrongPayload(t *testing.T) {
	svc, key := identityFixture(t)
	event := domain.Event{ID: testEventID, HasKYC: true}
	ticketType := domain.TicketType{ID: testTypeID}
	stage := domain.TicketStage{ID: testStageID}

	// Signed for a different quantity than the one being bought.
	payload := AttestationPayload(testBuyer, testEventID, testTypeID, testStageID, 1, "has_kyc")
	sig := signedAttestation(t, key, payload)

	err := svc.Check(context.Background(), &event, &ticketType, &stage, testBuyer, 2, sig, payload)
	assert.ErrorIs(t, err, domain.ErrPayloadInvalid())
}

func TestIdentityCheckRejectsForeignSigner(t *testing.T) {
	svc, _ := identityFixture(t)
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	event := domain.Event{ID: testEventID, HasKYC: true}
	ticketType := domain.TicketType{ID: testTypeID}
	stage := domain.TicketStage{ID: testStageID}
	payload := AttestationPayload(testBuyer, testEventID, testTypeID, testStageID, 1, "has_kyc")
	sig := signedAttestation(t, otherKey, payload)

	err = svc.Check(context.Background(), &event, &ticketType, &stage, testBuyer, 1, sig, payload)
	assert.ErrorIs(t, err, domain.ErrSignatureInvalid())
}

func TestIdentityCheckWalletStyleRecoveryID(t *testing.T) {
	svc, key := identityFixture(t)
	event := domain.Event{ID: testEventID, BotProtection: true}
	ticketType := domain.TicketType{ID: testTypeID}
	stage := domain.TicketStage{ID: testStageID}
	payload := AttestationPayload(testBuyer, testEventID, testTypeID, testStageID, 1, "bot_protection")

	// Wallets emit V as 27/28 rather than 0/1.
	sig := signedAttestation(t, key, payload)
	sig[crypto.RecoveryIDOffset] += 27

	err := svc.Check(context.Background(), &event, &ticketType, &stage, testBuyer, 1, sig, payload)
	assert.NoError(t, err)
}

func TestIdentityCheckKYCTakesPrecedence(t *testing.T) {
	svc, key := identityFixture(t)
	event := domain.Event{ID: testEventID, HasKYC: true, BotProtection: true}
	ticketType := domain.TicketType{ID: testTypeID}
	stage := domain.TicketStage{ID: testStageID}

	botPayload := AttestationPayload(testBuyer, testEventID, testTypeID, testStageID, 1, "bot_protection")
	sig := signedAttestation(t, key, botPayload)
	err := svc.Check(context.Background(), &event, &ticketType, &stage, testBuyer, 1, sig, botPayload)
	assert.ErrorIs(t, err, domain.ErrPayloadInvalid())

	kycPayload := AttestationPayload(testBuyer, testEventID, testTypeID, testStageID, 1, "has_kyc")
	sig = signedAttestation(t, key, kycPayload)
	err = svc.Check(context.Background(), &event, &ticketType, &stage, testBuyer, 1, sig, kycPayload)
	assert.NoError(t, err)
}

func TestIdentityCheckMalformedSignature(t *testing.T) {
	svc, _ := identityFixture(t)
	event := domain.Event{ID: testEventID, HasKYC: true}
	ticketType := domain.TicketType{ID: testTypeID}
	stage := domain.TicketStage{ID: testStageID}
	payload := AttestationPayload(testBuyer, testEventID, testTypeID, testStageID, 1, "has_kyc")

	err := svc.Check(context.Background(), &event, &ticketType, &stage, testBuyer, 1, []byte{0x01, 0x02}, payload)
	assert.ErrorIs(t, err, domain.ErrSignatureInvalid())
}
