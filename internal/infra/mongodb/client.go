package mongodb

import (
	"context"
	"fmt"

	"telegram-channel-admin/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names are kept from the first deployment; renaming them
// would orphan existing documents.
const (
	colSetups      = "active_setups"
	colMemberships = "added_bots"
	colAuditLog    = "bot_logs"
)

// Connect opens a client and pings the server so a dead store fails the
// process at startup instead of on the first command.
func Connect(ctx context.Context, cfg *config.MongoConfig) (*mongo.Database, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.Timeout))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	closeFn := func() { _ = client.Disconnect(context.Background()) }
	return client.Database(cfg.Database), closeFn, nil
}
