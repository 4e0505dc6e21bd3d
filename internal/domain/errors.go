package domain

import "errors"

// Business errors surfaced by the services and mapped to HTTP statuses by handlers
var (
	// ErrUnauthenticated is returned when no valid identity is present
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrSessionRevoked is returned when a refresh credential belongs to a revoked lineage
	ErrSessionRevoked = errors.New("session revoked")

	// ErrAccessDenied is returned for blocked, unapproved or under-leveled users
	ErrAccessDenied = errors.New("access denied")

	// ErrCaseNotFound is returned when the requested case does not exist
	ErrCaseNotFound = errors.New("case not found")

	// ErrUserNotFound is returned when the requested user does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrCaseDisabled is returned when the case has been disabled by an admin
	ErrCaseDisabled = errors.New("case disabled")

	// ErrLevelTooLow is returned when the user's level is below the case minimum
	ErrLevelTooLow = errors.New("level too low")

	// ErrInsufficientBalance is returned when the user cannot afford the case price
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUserCaseLimit is returned when the per-user open limit is reached
	ErrUserCaseLimit = errors.New("user case limit reached")

	// ErrCaseTotalLimit is returned when the global open limit is reached
	ErrCaseTotalLimit = errors.New("case total limit reached")

	// ErrNoPrizesAvailable is returned when every prize in the case is exhausted
	ErrNoPrizesAvailable = errors.New("no prizes available")

	// ErrInvalidLevel is returned when an admin supplies an unknown level
	ErrInvalidLevel = errors.New("invalid level")

	// ErrInvalidImageURL is returned when a case image URL fails validation
	ErrInvalidImageURL = errors.New("invalid image url")

	// ErrSelfModification is returned when an admin targets their own account
	ErrSelfModification = errors.New("cannot modify own account")

	// ErrOAuthStateInvalid is returned when the callback state is missing or expired
	ErrOAuthStateInvalid = errors.New("oauth attempt not found")

	// ErrOAuthCodeReplay is returned when an authorization code is presented twice
	ErrOAuthCodeReplay = errors.New("oauth code already used")

	// ErrOAuthExchange is returned when the provider rejects the token exchange
	ErrOAuthExchange = errors.New("oauth token exchange failed")

	// ErrOAuthScope is returned when the granted scope is missing the identity scope
	ErrOAuthScope = errors.New("invalid oauth scope")
)
