package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/sealbox/sealbox/internal/crypto"
	"github.com/sealbox/sealbox/internal/hash"
	"github.com/sealbox/sealbox/internal/secret/backend"
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
	"github.com/sealbox/sealbox/internal/secret/service"
	"github.com/sealbox/sealbox/internal/token"
)

// secretComponents holds the secret storage backend and the per-slot secret
// services built on top of it.
type secretComponents struct {
	secretBackend     backend.Backend
	secretCache       *backend.Cache
	encryptionService *service.Service
	signingService    *service.Service
	hashService       *service.Service
	envelopeCipher    *crypto.EnvelopeCipher
	signer            *token.Signer
	hasher            *hash.Hasher

	secretBackendInit     sync.Once
	secretCacheInit       sync.Once
	encryptionServiceInit sync.Once
	signingServiceInit    sync.Once
	hashServiceInit       sync.Once
	envelopeCipherInit    sync.Once
	signerInit            sync.Once
	hasherInit            sync.Once
}

// SecretCache returns the process-local secret cache shared by the backend
// and the secret services.
func (c *Container) SecretCache() *backend.Cache {
	c.secretCacheInit.Do(func() {
		c.secretCache = backend.NewCache()
	})
	return c.secretCache
}

// SecretBackend returns the configured secret storage backend. The selection
// happens once; a KMS keeper wrap is applied when KMS_KEY_URI is set.
func (c *Container) SecretBackend() (backend.Backend, error) {
	c.secretBackendInit.Do(func() {
		selected, err := c.initSecretBackend()
		if err != nil {
			c.initErrors["secretBackend"] = err
			return
		}

		if c.config.KMSKeyURI != "" {
			keeper, err := backend.OpenKeeper(context.Background(), c.config.KMSKeyURI)
			if err != nil {
				c.initErrors["secretBackend"] = fmt.Errorf("failed to open KMS keeper: %w", err)
				return
			}
			selected = backend.NewKeeperBackend(selected, keeper)
		}

		c.secretBackend = selected
	})
	if storedErr, exists := c.initErrors["secretBackend"]; exists {
		return nil, storedErr
	}
	return c.secretBackend, nil
}

func (c *Container) initSecretBackend() (backend.Backend, error) {
	switch c.config.SecretBackend {
	case "database":
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for secret backend: %w", err)
		}

		switch c.config.DBDriver {
		case "postgres":
			b := backend.NewPostgreSQLBackend(db)
			if err := b.EnsureSchema(context.Background()); err != nil {
				return nil, fmt.Errorf("failed to ensure secrets schema: %w", err)
			}
			return b, nil
		case "mysql":
			b := backend.NewMySQLBackend(db)
			if err := b.EnsureSchema(context.Background()); err != nil {
				return nil, fmt.Errorf("failed to ensure secrets schema: %w", err)
			}
			return b, nil
		default:
			return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	case "vault":
		b, err := backend.NewVaultBackend(backend.VaultConfig{
			Address:        c.config.VaultAddress,
			Token:          c.config.VaultToken,
			Engine:         c.config.VaultEngine,
			DeploymentSlug: c.config.DeploymentSlug,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create vault backend: %w", err)
		}
		return b, nil
	case "awssm":
		b, err := backend.NewSecretsManagerBackend(
			context.Background(),
			backend.SecretsManagerConfig{
				Region:          c.config.AWSRegion,
				Endpoint:        c.config.AWSEndpoint,
				AccessKeyID:     c.config.AWSAccessKeyID,
				SecretAccessKey: c.config.AWSSecretAccessKey,
				OrganizationID:  c.config.OrganizationID,
				ProjectID:       c.config.ProjectID,
			},
			c.SecretCache(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create secrets manager backend: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported secret backend: %s", c.config.SecretBackend)
	}
}

// EncryptionService returns the secret service for the envelope encryption
// slot.
func (c *Container) EncryptionService() (*service.Service, error) {
	c.encryptionServiceInit.Do(func() {
		algorithm, err := secretDomain.ParseAlgorithm(c.config.EnvelopeAlgorithm)
		if err != nil {
			c.initErrors["encryptionService"] = err
			return
		}

		svc, err := c.initSecretService(secretDomain.SlotEncryption, false, algorithm)
		if err != nil {
			c.initErrors["encryptionService"] = err
			return
		}
		c.encryptionService = svc
	})
	if storedErr, exists := c.initErrors["encryptionService"]; exists {
		return nil, storedErr
	}
	return c.encryptionService, nil
}

// SigningService returns the secret service for the token signing slot.
func (c *Container) SigningService() (*service.Service, error) {
	c.signingServiceInit.Do(func() {
		svc, err := c.initSecretService(secretDomain.SlotSigning, false, secretDomain.HMACSHA256)
		if err != nil {
			c.initErrors["signingService"] = err
			return
		}
		c.signingService = svc
	})
	if storedErr, exists := c.initErrors["signingService"]; exists {
		return nil, storedErr
	}
	return c.signingService, nil
}

// HashService returns the secret service for the hash slot. The slot is
// fixed: rotation never replaces its secret, keeping digests comparable over
// time.
func (c *Container) HashService() (*service.Service, error) {
	c.hashServiceInit.Do(func() {
		svc, err := c.initSecretService(secretDomain.SlotHash, true, secretDomain.HMACSHA256)
		if err != nil {
			c.initErrors["hashService"] = err
			return
		}
		c.hashService = svc
	})
	if storedErr, exists := c.initErrors["hashService"]; exists {
		return nil, storedErr
	}
	return c.hashService, nil
}

func (c *Container) initSecretService(
	slot string,
	fixed bool,
	algorithm secretDomain.Algorithm,
) (*service.Service, error) {
	b, err := c.SecretBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to get backend for slot %q: %w", slot, err)
	}
	return service.New(slot, fixed, algorithm, b, c.SecretCache(), c.Logger()), nil
}

// EnvelopeCipher returns the envelope cipher for sensitive record payloads.
func (c *Container) EnvelopeCipher() (*crypto.EnvelopeCipher, error) {
	c.envelopeCipherInit.Do(func() {
		algorithm, err := secretDomain.ParseAlgorithm(c.config.EnvelopeAlgorithm)
		if err != nil {
			c.initErrors["envelopeCipher"] = err
			return
		}
		c.envelopeCipher = crypto.NewEnvelopeCipher(algorithm)
	})
	if storedErr, exists := c.initErrors["envelopeCipher"]; exists {
		return nil, storedErr
	}
	return c.envelopeCipher, nil
}

// Signer returns the token signer bound to the signing slot.
func (c *Container) Signer() (*token.Signer, error) {
	c.signerInit.Do(func() {
		signing, err := c.SigningService()
		if err != nil {
			c.initErrors["signer"] = fmt.Errorf("failed to get signing service: %w", err)
			return
		}
		c.signer = token.NewSigner(signing, c.config.TokenIssuer, c.config.TokenExpiration)
	})
	if storedErr, exists := c.initErrors["signer"]; exists {
		return nil, storedErr
	}
	return c.signer, nil
}

// Hasher returns the keyed hasher bound to the hash slot.
func (c *Container) Hasher() (*hash.Hasher, error) {
	c.hasherInit.Do(func() {
		hashing, err := c.HashService()
		if err != nil {
			c.initErrors["hasher"] = fmt.Errorf("failed to get hash service: %w", err)
			return
		}
		c.hasher = hash.NewHasher(hashing)
	})
	if storedErr, exists := c.initErrors["hasher"]; exists {
		return nil, storedErr
	}
	return c.hasher, nil
}
