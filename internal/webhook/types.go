package webhook

// SignatureHeader carries the sender's HMAC-SHA1 signature of the raw body.
const SignatureHeader = "X-TAIGA-WEBHOOK-SIGNATURE"

// Channel settings consumed per request.
const (
	settingSecretKey       = "secret-key"
	settingVerifySignature = "verify-signature"
)

// Response bodies. Fixed text, matched by existing operator tooling.
const (
	responseOK              = "OK"
	responseNoSignature     = "Error: No signature provided."
	responseBadSignature    = "Error: Invalid signature."
	responseBadJSON         = "Error: Invalid JSON data sent."
	responseUnknownTarget   = "Error: Unknown network or channel."
	responseTooLarge        = "Error: Payload too large."
	responseMethodNotice    = "This service handles only POST requests, please don't use other requests."
	responseMissingSegments = "Error: Network and channel required."
)

// Config holds webhook server configuration.
type Config struct {
	// Listen is the address the webhook HTTP server binds.
	Listen string

	// Network is the messaging network this process serves. Requests
	// addressed to any other network are discarded.
	Network string

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64
}

// DefaultMaxBodySize is used when no limit is configured.
const DefaultMaxBodySize = 1048576 // 1 MB
