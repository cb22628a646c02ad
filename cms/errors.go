package cms

import "github.com/pkg/errors"

// Error taxonomy. Each sentinel is wrapped at its raise site
// with errors.Wrap/Wrapf so errors.Is still matches through the wrapping,
// and the wrapped message carries the local detail.
var (
	// Argument validation.
	ErrArgument = errors.New("cms: invalid argument")

	// Parsing.
	ErrParse               = errors.New("cms: parse error")
	ErrUnexpectedStructure = errors.New("cms: unexpected ASN.1 structure")
	ErrTrailingData        = errors.New("cms: trailing data after content info")
	ErrUnsupportedVersion  = errors.New("cms: unsupported CMS version")

	// Algorithm resolution.
	ErrAlgorithm         = errors.New("cms: algorithm error")
	ErrUnknownAlgorithm  = errors.New("cms: unknown algorithm OID")
	ErrAlgorithmMismatch = errors.New("cms: algorithm mismatch")

	// Cryptography.
	ErrCrypto                      = errors.New("cms: cryptographic operation failed")
	ErrSignatureVerificationFailed = errors.New("cms: signature verification failed")
	ErrDecryptionFailed            = errors.New("cms: decryption failed")

	// Recipient / signer resolution.
	ErrRecipient           = errors.New("cms: recipient error")
	ErrNoMatchingRecipient = errors.New("cms: no RecipientInfo matches the configured certificate or key")
	ErrNoMatchingSigner    = errors.New("cms: no certificate in the message verifies the signature")

	// Session preconditions.
	ErrMissingContent       = errors.New("cms: no content set on session")
	ErrMissingCertficate    = errors.New("cms: no certificate set on session")
	ErrDegenerateNotAllowed = errors.New("cms: degenerate SignedData not permitted by session")
)
