package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository WithTx wrappers forward the request context into their
// transactional callbacks. The signature is pinned here so a drift breaks
// this package instead of every repository.
var _ func(context.Context, *pgxpool.Pool, func(context.Context, pgx.Tx) error) error = WithTx
