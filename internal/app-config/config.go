package appconfig

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/ocean-ntp1/internal/config"
	"github.com/vulpemventures/ocean-ntp1/internal/core/application"
	"github.com/vulpemventures/ocean-ntp1/internal/core/ports"
	greedy_selector "github.com/vulpemventures/ocean-ntp1/internal/infrastructure/coin-selector/greedy"
	dbbadger "github.com/vulpemventures/ocean-ntp1/internal/infrastructure/storage/db/badger"
	"github.com/vulpemventures/ocean-ntp1/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/vulpemventures/ocean-ntp1/internal/infrastructure/storage/db/postgres"
)

// AppConfig is the struct holding all configuration options for every
// application service (ledger and transfer).
// This data structure acts also as a factory of the mentioned application
// services and the portable services used by them.
// Public config args:
//   - MinTxFee - (required) The minimum fee per 1000 bytes, also reserved for every token output.
//   - UtxoExpiryDuration - (required) The duration for the app service to wait until unlocking one or more previously locked utxo.
//   - RepoManagerType - (required) One of the supported repository manager types.
//   - RepoManagerConfig - (optional) Custom config args for the repository manager based on its type.
//   - Shuffler - (optional) The source of randomness of the token selector, defaults to a randomly seeded one.
type AppConfig struct {
	MinTxFee           int64
	UtxoExpiryDuration time.Duration

	RepoManagerType   string
	RepoManagerConfig interface{}
	Shuffler          ports.Shuffler

	rm          ports.RepoManager
	selector    ports.TokenSelector
	ledgerSvc   *application.LedgerService
	transferSvc *application.TransferService
}

func (c *AppConfig) Validate() error {
	if c.MinTxFee <= 0 {
		return fmt.Errorf("missing min tx fee")
	}
	if c.UtxoExpiryDuration <= 0 {
		return fmt.Errorf("missing utxo expiry duration")
	}
	if len(c.RepoManagerType) == 0 {
		return fmt.Errorf("missing repo manager type")
	}
	if _, ok := config.SupportedDbs[c.RepoManagerType]; !ok {
		return fmt.Errorf(
			"repo manager type not supported, must be one of: %s",
			config.SupportedDbs,
		)
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}

	return nil
}

func (c *AppConfig) RepoManager() ports.RepoManager {
	return c.rm
}

func (c *AppConfig) TokenSelector() ports.TokenSelector {
	return c.tokenSelector()
}

func (c *AppConfig) LedgerService() *application.LedgerService {
	return c.ledgerService()
}

func (c *AppConfig) TransferService() *application.TransferService {
	return c.transferService()
}

// Close closes the connection with the repositories, if open.
func (c *AppConfig) Close() {
	if c.rm != nil {
		c.rm.Close()
	}
}

func (c *AppConfig) repoManager() (ports.RepoManager, error) {
	if c.rm != nil {
		return c.rm, nil
	}

	switch c.RepoManagerType {
	case "inmemory":
		c.rm = inmemory.NewRepoManager()
		return c.rm, nil
	case "badger":
		if c.RepoManagerConfig == nil {
			return nil, fmt.Errorf("missing repo manager config args")
		}
		datadir, ok := c.RepoManagerConfig.(string)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be string")
		}
		rm, err := dbbadger.NewRepoManager(datadir, log.New())
		if err != nil {
			return nil, err
		}
		c.rm = rm
		return c.rm, nil
	case "postgres":
		dbConfig, ok := c.RepoManagerConfig.(postgresdb.DbConfig)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be postgresdb.DbConfig")
		}

		rm, err := postgresdb.NewRepoManager(dbConfig)
		if err != nil {
			return nil, err
		}

		c.rm = rm
		return c.rm, nil
	default:
		return nil, fmt.Errorf("unknown repo manager type")
	}
}

func (c *AppConfig) tokenSelector() ports.TokenSelector {
	if c.selector != nil {
		return c.selector
	}

	c.selector = greedy_selector.NewGreedyTokenSelector(c.Shuffler)
	return c.selector
}

func (c *AppConfig) ledgerService() *application.LedgerService {
	if c.ledgerSvc != nil {
		return c.ledgerSvc
	}

	rm, _ := c.repoManager()
	c.ledgerSvc = application.NewLedgerService(rm)
	return c.ledgerSvc
}

func (c *AppConfig) transferService() *application.TransferService {
	if c.transferSvc != nil {
		return c.transferSvc
	}

	rm, _ := c.repoManager()
	c.transferSvc = application.NewTransferService(
		rm, c.tokenSelector(), c.MinTxFee, c.UtxoExpiryDuration,
	)
	return c.transferSvc
}
