package domain

import (
	"fmt"

	"github.com/ticketforge/ticketing-api/shared/errors"
)

// Tier names the inventory level an error refers to
type Tier string

const (
	TierStage Tier = "stage"
	TierType  Tier = "type"
	TierEvent Tier = "event"
)

// Not-found errors, one per inventory level

func ErrEventNotFound(eventID string) *errors.Error {
	return errors.NotFound("event", eventID)
}

func ErrTicketTypeNotFound(typeID string) *errors.Error {
	return errors.NotFound("ticket type", typeID)
}

func ErrTicketStageNotFound(stageID string) *errors.Error {
	return errors.NotFound("ticket stage", stageID)
}

// Stage state errors

func ErrStageInactive(stageID string) *errors.Error {
	return errors.New(errors.ErrorTypeBusinessRule, "STAGE_INACTIVE",
		"the sale is not active for this stage").
		WithDetails("stage_id", stageID)
}

func ErrSaleNotStarted(stageID string) *errors.Error {
	return errors.New(errors.ErrorTypeBusinessRule, "SALE_NOT_STARTED",
		"the stage mint starts in the future").
		WithDetails("stage_id", stageID)
}

func ErrSaleEnded(stageID string) *errors.Error {
	return errors.New(errors.ErrorTypeBusinessRule, "SALE_ENDED",
		"the stage mint has ended").
		WithDetails("stage_id", stageID)
}

// Access errors

func ErrNotWhitelisted(wallet Address) *errors.Error {
	return errors.New(errors.ErrorTypeForbidden, "NOT_WHITELISTED",
		"the wallet is not on the whitelist").
		WithDetails("wallet", string(wallet))
}

func ErrOnlyUserAccounts(addr Address) *errors.Error {
	return errors.New(errors.ErrorTypeForbidden, "ONLY_USER_ACCOUNTS",
		"only user accounts are allowed to mint").
		WithDetails("address", string(addr))
}

// Quantity, limit and capacity errors

func ErrInvalidQuantity(quantity uint32) *errors.Error {
	return errors.InvalidInput("quantity", "must be higher than 0").
		WithDetails("quantity", quantity)
}

func ErrLimitExceeded(tier Tier, max uint32) *errors.Error {
	return errors.New(errors.ErrorTypeBusinessRule, "LIMIT_EXCEEDED",
		fmt.Sprintf("max buys per %s would be over the maximum of %d", tier, max)).
		WithDetails("tier", string(tier)).
		WithDetails("max_per_user", max)
}

func ErrSoldOut(tier Tier) *errors.Error {
	return errors.New(errors.ErrorTypeBusinessRule, "SOLD_OUT",
		fmt.Sprintf("the %s capacity is sold out", tier)).
		WithDetails("tier", string(tier))
}

// Payment errors

func ErrPaymentInvalid() *errors.Error {
	return errors.New(errors.ErrorTypeValidation, "PAYMENT_INVALID",
		"the attached payment does not match any configured price")
}

func ErrPaymentMismatch() *errors.Error {
	return errors.New(errors.ErrorTypeValidation, "PAYMENT_MISMATCH",
		"the payment amount is wrong")
}

func ErrSwapTokenInvalid() *errors.Error {
	return errors.New(errors.ErrorTypeValidation, "SWAP_TOKEN_INVALID",
		"the swap output does not match any configured price")
}

func ErrInsufficientSwapOutput() *errors.Error {
	return errors.New(errors.ErrorTypeValidation, "INSUFFICIENT_SWAP_OUTPUT",
		"the swap output is under the total value required for the buy")
}

func ErrNonFungiblePayment() *errors.Error {
	return errors.New(errors.ErrorTypeValidation, "NON_FUNGIBLE_PAYMENT",
		"non-fungible settlements are not supported")
}

// Identity gate errors

func ErrMissingSignature() *errors.Error {
	return errors.New(errors.ErrorTypeUnauthorized, "MISSING_SIGNATURE", "signature required")
}

func ErrMissingPayload() *errors.Error {
	return errors.New(errors.ErrorTypeUnauthorized, "MISSING_PAYLOAD", "payload required")
}

func ErrPayloadInvalid() *errors.Error {
	return errors.New(errors.ErrorTypeUnauthorized, "PAYLOAD_INVALID", "the payload is invalid")
}

func ErrSignatureInvalid() *errors.Error {
	return errors.New(errors.ErrorTypeUnauthorized, "SIGNATURE_INVALID", "the signature is invalid")
}

// Admin lifecycle errors

func ErrEventIDInUse(eventID string) *errors.Error {
	return errors.Duplicate("event", "id", eventID)
}

func ErrTypeIDInUse(typeID string) *errors.Error {
	return errors.Duplicate("ticket type", "id", typeID)
}

func ErrStageIDInUse(stageID string) *errors.Error {
	return errors.Duplicate("ticket stage", "id", stageID)
}

func ErrInvalidIssuePayment(expected string) *errors.Error {
	return errors.InvalidInput("payment",
		fmt.Sprintf("collection issuance costs exactly %s", expected))
}

func ErrInvalidFeeRate() *errors.Error {
	return errors.InvalidInput("fees", "percentage value should be under 10,000")
}

func ErrDuplicatePriceEntry(token TokenID, nonce uint64) *errors.Error {
	return errors.InvalidInput("prices", "duplicate (token, nonce) price entry").
		WithDetails("token", string(token)).
		WithDetails("nonce", nonce)
}

func ErrNonFungiblePriceEntry(token TokenID, nonce uint64) *errors.Error {
	return errors.InvalidInput("prices", "price entries must be fungible (nonce 0)").
		WithDetails("token", string(token)).
		WithDetails("nonce", nonce)
}

// External collaborator errors

func ErrIssuanceFailed(reason string) *errors.Error {
	return errors.New(errors.ErrorTypeUnavailable, "ISSUANCE_FAILED",
		"token issuance failed").WithDetails("reason", reason)
}

func ErrSwapFailed(cause error) *errors.Error {
	return errors.New(errors.ErrorTypeUnavailable, "SWAP_FAILED",
		"swap aggregation failed").WithCause(cause)
}
