package reminder

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"ibooking/internal/platform/crypto"
)

// Store is the Postgres implementation of StoreAPI. Profile email
// addresses are encrypted at rest when a data key is configured.
type Store struct {
	DB     *pgxpool.Pool
	Crypto *crypto.Service
}

func NewStore(db *pgxpool.Pool, cryptoSvc *crypto.Service) *Store {
	return &Store{DB: db, Crypto: cryptoSvc}
}
