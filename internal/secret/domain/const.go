package domain

// Algorithm identifies a symmetric key algorithm family.
type Algorithm string

// Supported algorithms.
const (
	// AESGCM is AES-256-GCM authenticated encryption.
	AESGCM Algorithm = "aes-gcm"
	// ChaCha20 is ChaCha20-Poly1305 authenticated encryption.
	ChaCha20 Algorithm = "chacha20-poly1305"
	// HMACSHA256 is keyed hashing for deterministic searchable hashes.
	HMACSHA256 Algorithm = "hmac-sha256"
)

// KeySize is the key length in bytes shared by all supported algorithms.
const KeySize = 32

// ParseAlgorithm converts an algorithm string to an Algorithm.
func ParseAlgorithm(value string) (Algorithm, error) {
	switch Algorithm(value) {
	case AESGCM:
		return AESGCM, nil
	case ChaCha20:
		return ChaCha20, nil
	case HMACSHA256:
		return HMACSHA256, nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}
