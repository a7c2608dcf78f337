package mongodb

import (
	"context"
	"fmt"
	"time"

	"telegram-channel-admin/internal/domain/model"
	"telegram-channel-admin/internal/domain/ports/repository"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

type AuditRepo struct {
	col *mongo.Collection
}

func NewAuditRepo(db *mongo.Database) *AuditRepo {
	return &AuditRepo{col: db.Collection(colAuditLog)}
}

func (r *AuditRepo) Append(ctx context.Context, e *model.AuditEntry) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if _, err := r.col.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepo) Count(ctx context.Context, ownerID int64) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

func (r *AuditRepo) DeleteOlderThan(ctx context.Context, ownerID int64, cutoff time.Time) (int64, error) {
	filter := bson.M{"owner_id": ownerID, "timestamp": bson.M{"$lt": cutoff}}
	res, err := r.col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete old audit entries: %w", err)
	}
	return res.DeletedCount, nil
}
