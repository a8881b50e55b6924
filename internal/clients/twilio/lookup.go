// Package twilio verifies contact phone numbers with the Twilio Lookup API.
package twilio

import (
	"context"
	"fmt"

	"voiceagent-server/internal/observability"

	"github.com/twilio/twilio-go"
	lookups "github.com/twilio/twilio-go/rest/lookups/v2"
)

type lookupAPI interface {
	FetchPhoneNumber(phoneNumber string, params *lookups.FetchPhoneNumberParams) (*lookups.LookupsV2PhoneNumber, error)
}

// PhoneVerifier asks Twilio Lookup whether a number is dialable.
type PhoneVerifier struct {
	api    lookupAPI
	logger *observability.Logger
}

// NewPhoneVerifier creates a verifier using account credentials.
func NewPhoneVerifier(accountSID, authToken string, logger *observability.Logger) *PhoneVerifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &PhoneVerifier{api: client.LookupsV2, logger: logger}
}

// VerifyPhone reports whether Twilio considers phone a valid number.
func (v *PhoneVerifier) VerifyPhone(ctx context.Context, phone string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	resp, err := v.api.FetchPhoneNumber(phone, &lookups.FetchPhoneNumberParams{})
	if err != nil {
		v.logger.Error(observability.WithFields(ctx, observability.Field{Key: "phone", Value: phone}),
			"failed to look up phone number", err)
		return false, fmt.Errorf("failed to look up phone number: %w", err)
	}
	return resp.Valid != nil && *resp.Valid, nil
}
