package constants

import "errors"

// Configuration errors.
var (
	ErrUnknownAuthMethod    = errors.New("unknown auth method")
	ErrUnknownTransport     = errors.New("unknown transport")
	ErrAccessTokenRequired  = errors.New("access token is required for token auth")
	ErrClientSecretRequired = errors.New("tenant ID, client ID and client secret are required for client-secret auth")
)

// CLI errors.
var (
	ErrUnsupportedFormat   = errors.New("unsupported output format")
	ErrBodyRequired        = errors.New("request body is required, use --body or --body-file")
	ErrAPIVersionRequired  = errors.New("--api-version is required")
	ErrCheckpointWithStart = errors.New("--checkpoint and --continuation-token are mutually exclusive")
	ErrUnknownConfigKey    = errors.New("unknown configuration key")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrInvalidBody         = errors.New("request body is not valid JSON or YAML")
	ErrUnknownLogBackend   = errors.New("unknown log backend")
)

// Checkpoint errors.
var (
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrCheckpointKey      = errors.New("checkpoint key is required")
	ErrCheckpointKeyChars = errors.New("checkpoint key may only contain letters, digits and -/_=.")
	ErrCheckpointMismatch = errors.New("checkpoint belongs to a different listing")
	ErrNATSURLRequired    = errors.New("NATS URL is required for the nats checkpoint store")
	ErrUnknownStore       = errors.New("unknown checkpoint store")
)
