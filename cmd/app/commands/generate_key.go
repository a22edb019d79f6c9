package commands

import (
	"encoding/base64"
	"fmt"
	"io"

	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
	"github.com/sealbox/sealbox/internal/secret/service"
)

// RunGenerateKey generates a random key for the given algorithm and prints it
// base64-encoded. Useful for seeding a backend out of band or for local
// development KMS URIs.
func RunGenerateKey(writer io.Writer, algorithmStr string, size int) error {
	algorithm, err := secretDomain.ParseAlgorithm(algorithmStr)
	if err != nil {
		return fmt.Errorf("invalid algorithm: %s: %w", algorithmStr, err)
	}

	key, err := service.GenerateKey(size, algorithm)
	if err != nil {
		return err
	}

	fmt.Fprintln(writer, base64.StdEncoding.EncodeToString(key))
	return nil
}
