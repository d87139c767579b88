package core

import (
	"strings"
	"time"
)

// Challenge represents the message a wallet is asked to sign before login
type Challenge struct {
	Address  WalletAddress // Wallet that must sign the message
	Site     string        // Site name shown to the user
	Nonce    string        // Random freshness marker
	IssuedAt time.Time     // When the challenge was created
}

// User represents an identity known to the identity backend
type User struct {
	ID          string         `json:"id"`                           // Backend user identifier
	Email       string         `json:"email"`                        // Login email (synthetic for wallet users)
	FullName    string         `json:"full_name,omitempty"`          // Display name
	Metadata    map[string]any `json:"user_metadata,omitempty"`      // Raw user metadata
	ConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"` // Nil while the email is unconfirmed
	CreatedAt   time.Time      `json:"created_at"`                   // When the identity was registered
}

// WalletAddress returns the wallet address stored in the user metadata, if any
func (u *User) WalletAddress() string {
	if u == nil || u.Metadata == nil {
		return ""
	}
	addr, _ := u.Metadata[MetadataWalletAddress].(string)
	return addr
}

// Session represents an authenticated session issued by the identity backend
type Session struct {
	ID           string    `json:"id,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user,omitempty"`
}

// Expired reports whether the access token has passed its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// Subject returns the backend user id of the session owner
func (s *Session) Subject() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.ID
}

// SignUpOptions carries the optional sign-up parameters
type SignUpOptions struct {
	RedirectTo string         // Where the confirmation email links to
	Data       map[string]any // User metadata stored with the identity
}

// SignUpResult is the identity backend response to a sign-up.
// Session is nil when the backend requires email confirmation first.
type SignUpResult struct {
	User    *User
	Session *Session
}

const (
	// MetadataFullName is the user metadata key holding the display name
	MetadataFullName = "full_name"

	// MetadataWalletAddress is the user metadata key holding the raw wallet address
	MetadataWalletAddress = "wallet_address"
)

// AuthEvent names a change of the authentication state
type AuthEvent string

const (
	AuthEventInitialSession AuthEvent = "INITIAL_SESSION"
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	AuthEventUserUpdated    AuthEvent = "USER_UPDATED"
)

// SignUpRequest is the email/password registration payload
type SignUpRequest struct {
	FullName        string `json:"full_name" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate checks the registration rules; a confirmation mismatch is
// reported as ErrPasswordMismatch.
func (r SignUpRequest) Validate() error {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(r.Email)
	if err := validateStruct(r, ErrInvalidSignUp); err != nil {
		return err
	}
	if r.Password != r.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// SignInRequest is the email/password login payload
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
}

// Validate checks the login rules
func (r SignInRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r, ErrInvalidCredential)
}
