package constants

import "time"

// Centralized constants for env keys, routes, JSON keys and log fields.
const (
	// Environment variable keys
	EnvConfigPath    = "SKIRMISH_CONFIG"
	EnvDBPath        = "SKIRMISH_DB"
	EnvServerAddr    = "SKIRMISH_ADDR"
	EnvTokenSecret   = "SKIRMISH_TOKEN_SECRET"
	EnvTurnTimeout   = "SKIRMISH_TURN_TIMEOUT"
	EnvSwitchTimeout = "SKIRMISH_SWITCH_TIMEOUT"
	EnvDebug         = "SKIRMISH_DEBUG"
	EnvOTelEndpoint  = "SKIRMISH_OTEL_ENDPOINT"

	DefaultConfigPath = "./skirmish_config.json"
	DefaultDBPath     = "./data/skirmish.db"
	DefaultAddr       = ":8080"

	DefaultTurnTimeout   = 60 * time.Second
	DefaultSwitchTimeout = 30 * time.Second
	DefaultRetention     = 10 * time.Minute
	DefaultTokenTTL      = 24 * time.Hour
	JanitorInterval      = 30 * time.Second

	// HTTP headers
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "

	// Token issuer for side tokens
	TokenIssuer = "skirmish"
)

// Routes used by the backend router
const (
	RouteAPIPrefix        = "/api"
	RouteVersion          = "/version"
	RouteReferenceSpecies = "/reference/species"
	RouteReferenceMoves   = "/reference/moves"
	RouteBattles          = "/battles"
	RouteBattleByID       = "/battles/:battleID"
	RouteBattleActions    = "/battles/:battleID/actions"
	RouteBattleStream     = "/battles/:battleID/stream"
	RouteResults          = "/results"
)

// Common JSON response keys
const (
	JSONKeyError   = "error"
	JSONKeyReason  = "reason"
	JSONKeyMessage = "message"
)

// Common error messages used across API handlers
const (
	ErrInvalidRequest      = "Invalid request"
	ErrBattleNotFound      = "Battle not found"
	ErrFailedStartBattle   = "Failed to start battle"
	ErrFailedStoreAction   = "Failed to store action"
	ErrAuthRequired        = "Authentication required"
	ErrInvalidToken        = "Invalid side token"
	ErrTokenBattleMismatch = "Token does not belong to this battle"
	ErrFailedFetchRef      = "Failed to fetch reference data"
	ErrStreamUpgrade       = "Failed to open event stream"
	ErrFailedFetchResults  = "Failed to fetch battle results"
	ErrInternal            = "Internal error"
)

// Gin context keys set by the side token middleware
const (
	CtxKeyBattleID = "battleID"
	CtxKeySide     = "side"
)

// Logging field names
const (
	LogFieldBattleID = "battle_id"
	LogFieldSide     = "side"
	LogFieldTurn     = "turn"
	LogFieldPhase    = "phase"
	LogFieldReason   = "reason"
	LogFieldKind     = "kind"
	LogFieldOutcome  = "outcome"
	LogFieldWinner   = "winner"
	LogFieldProfile  = "profile"
	LogFieldAddr     = "addr"
	LogFieldKey      = "key"
	LogFieldVersion  = "version"
)
