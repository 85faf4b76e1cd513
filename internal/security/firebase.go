package security

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"

	"harvest-wallet-backend/internal/domain"
	"harvest-wallet-backend/internal/logger"
)

// IDTokenVerifier is the part of the Firebase Auth client used here.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type firebaseVerifier struct {
	client IDTokenVerifier
}

// NewFirebaseVerifier accepts Firebase ID tokens, the same tokens callable
// functions receive from client SDKs.
func NewFirebaseVerifier(client IDTokenVerifier) TokenVerifier {
	return &firebaseVerifier{client: client}
}

func (v *firebaseVerifier) Verify(ctx context.Context, token string) (domain.Caller, error) {
	logger.ExternalServiceCall("firebase-auth", "VerifyIDToken")
	tok, err := v.client.VerifyIDToken(ctx, token)
	logger.ExternalServiceResult("firebase-auth", "VerifyIDToken", err)
	if err != nil {
		if auth.IsIDTokenExpired(err) {
			return domain.Caller{}, ErrExpiredToken
		}
		return domain.Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tok.UID == "" {
		return domain.Caller{}, ErrInvalidToken
	}
	email, _ := tok.Claims["email"].(string)
	return domain.Caller{UID: tok.UID, Email: email}, nil
}
