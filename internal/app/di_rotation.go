package app

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/sealbox/sealbox/internal/http"
	"github.com/sealbox/sealbox/internal/metrics"
	"github.com/sealbox/sealbox/internal/record"
	"github.com/sealbox/sealbox/internal/rotation"
)

// providerMeterProvider unwraps the meter provider, keeping the interface nil
// when metrics are disabled.
func providerMeterProvider(provider *metrics.Provider) metric.MeterProvider {
	if provider == nil {
		return nil
	}
	return provider.MeterProvider()
}

// rotationComponents holds the sensitive record stores, the rotation
// coordinator and the HTTP servers built on top of them.
type rotationComponents struct {
	recordStores  []*record.Store[json.RawMessage]
	coordinator   *rotation.Coordinator
	scheduler     *rotation.Scheduler
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	recordStoresInit  sync.Once
	coordinatorInit   sync.Once
	schedulerInit     sync.Once
	httpServerInit    sync.Once
	metricsServerInit sync.Once
}

// RecordStores returns one encrypted record store per configured sensitive
// collection, all bound to the encryption slot.
func (c *Container) RecordStores() ([]*record.Store[json.RawMessage], error) {
	c.recordStoresInit.Do(func() {
		stores, err := c.initRecordStores()
		if err != nil {
			c.initErrors["recordStores"] = err
			return
		}
		c.recordStores = stores
	})
	if storedErr, exists := c.initErrors["recordStores"]; exists {
		return nil, storedErr
	}
	return c.recordStores, nil
}

func (c *Container) initRecordStores() ([]*record.Store[json.RawMessage], error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for record stores: %w", err)
	}

	cipher, err := c.EnvelopeCipher()
	if err != nil {
		return nil, err
	}

	encryption, err := c.EncryptionService()
	if err != nil {
		return nil, err
	}

	var stores []*record.Store[json.RawMessage]
	for _, name := range strings.Split(c.config.SensitiveCollections, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		var repo record.Repository
		switch c.config.DBDriver {
		case "postgres":
			repo = record.NewPostgreSQLRepository(db, name)
		case "mysql":
			repo = record.NewMySQLRepository(db, name)
		default:
			return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}

		stores = append(stores, record.NewStore[json.RawMessage](name, repo, cipher, encryption, c.Logger()))
	}

	return stores, nil
}

// Coordinator returns the rotation coordinator with every slot service and
// record store registered. Registration happens here, once, so a rotation run
// always sees the complete set of participants.
func (c *Container) Coordinator() (*rotation.Coordinator, error) {
	c.coordinatorInit.Do(func() {
		rotationMetrics, err := c.RotationMetrics()
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}

		coordinator := rotation.NewCoordinator(rotationMetrics, c.Logger())

		encryption, err := c.EncryptionService()
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}
		signing, err := c.SigningService()
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}
		hashing, err := c.HashService()
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}

		coordinator.RegisterRotator(encryption)
		coordinator.RegisterRotator(signing)
		coordinator.RegisterRotator(hashing)

		stores, err := c.RecordStores()
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}
		for _, store := range stores {
			coordinator.RegisterSweeper(store)
		}

		c.coordinator = coordinator
	})
	if storedErr, exists := c.initErrors["coordinator"]; exists {
		return nil, storedErr
	}
	return c.coordinator, nil
}

// Scheduler returns the periodic rotation scheduler.
func (c *Container) Scheduler() (*rotation.Scheduler, error) {
	c.schedulerInit.Do(func() {
		coordinator, err := c.Coordinator()
		if err != nil {
			c.initErrors["scheduler"] = fmt.Errorf("failed to get coordinator for scheduler: %w", err)
			return
		}
		c.scheduler = rotation.NewScheduler(coordinator, c.config.RotationInterval, c.Logger())
	})
	if storedErr, exists := c.initErrors["scheduler"]; exists {
		return nil, storedErr
	}
	return c.scheduler, nil
}

// HTTPServer returns the administrative HTTP server.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	coordinator, err := c.Coordinator()
	if err != nil {
		return nil, err
	}

	signer, err := c.Signer()
	if err != nil {
		return nil, err
	}

	hasher, err := c.Hasher()
	if err != nil {
		return nil, err
	}

	stores, err := c.RecordStores()
	if err != nil {
		return nil, err
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}

	logger := c.Logger()
	server := http.NewServer(
		c.config,
		db,
		http.NewRotationHandler(coordinator, logger),
		http.NewTokenHandler(signer, logger),
		http.NewHashHandler(hasher, logger),
		http.NewRecordHandler(stores, logger),
		providerMeterProvider(provider),
		logger,
	)
	return server, nil
}

// MetricsServer returns the metrics HTTP server, or nil when metrics are
// disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}
