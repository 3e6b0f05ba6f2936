// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/Ahmed-aleryani/coinmind/internal/modules/categories"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/profiles"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/transactions"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories on the container's databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.LedgerDB == nil {
		return fmt.Errorf("container has no ledger database")
	}

	conn := container.LedgerDB.Conn()
	container.ProfileRepo = profiles.NewRepository(conn, log)
	container.CategoryRepo = categories.NewRepository(conn, log)
	container.TransactionRepo = transactions.NewRepository(conn, log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
