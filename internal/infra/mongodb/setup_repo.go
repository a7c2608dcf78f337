package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-channel-admin/internal/domain/model"
	"telegram-channel-admin/internal/domain/ports/repository"
	derror "telegram-channel-admin/internal/error"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ repository.SetupRepository = (*SetupRepo)(nil)

type SetupRepo struct {
	col *mongo.Collection
}

func NewSetupRepo(db *mongo.Database) *SetupRepo {
	return &SetupRepo{col: db.Collection(colSetups)}
}

func (r *SetupRepo) Upsert(ctx context.Context, s *model.Setup) error {
	filter := bson.M{"owner_id": s.OwnerID, "channel_id": s.ChannelID}
	update := bson.M{"$set": bson.M{
		"channel":    s.Channel,
		"post_link":  s.PostLink,
		"max_bots":   s.MaxBots,
		"is_active":  s.IsActive,
		"updated_at": time.Now().UTC(),
	}}
	if _, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert setup: %w", err)
	}
	if s.IsActive {
		return r.deactivateSiblings(ctx, s.OwnerID, s.ChannelID)
	}
	return nil
}

func (r *SetupRepo) Activate(ctx context.Context, ownerID int64, channelID string) error {
	filter := bson.M{"owner_id": ownerID, "channel_id": channelID}
	update := bson.M{"$set": bson.M{"is_active": true, "updated_at": time.Now().UTC()}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("activate setup: %w", err)
	}
	if res.MatchedCount == 0 {
		return derror.ErrNotFound
	}
	return r.deactivateSiblings(ctx, ownerID, channelID)
}

// deactivateSiblings is the second, non-atomic half of activation.
// FindActive tolerates the window where zero or two setups look active.
func (r *SetupRepo) deactivateSiblings(ctx context.Context, ownerID int64, channelID string) error {
	filter := bson.M{"owner_id": ownerID, "channel_id": bson.M{"$ne": channelID}}
	if _, err := r.col.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"is_active": false}}); err != nil {
		return fmt.Errorf("deactivate siblings: %w", err)
	}
	return nil
}

func (r *SetupRepo) FindActive(ctx context.Context, ownerID int64) (*model.Setup, error) {
	var s model.Setup
	err := r.col.FindOne(ctx, bson.M{"owner_id": ownerID, "is_active": true}).Decode(&s)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("find active setup: %w", err)
	}
	// Nothing flagged active; fall back to the first stored setup.
	err = r.col.FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, derror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find fallback setup: %w", err)
	}
	return &s, nil
}

func (r *SetupRepo) Find(ctx context.Context, ownerID int64, channelID string) (*model.Setup, error) {
	var s model.Setup
	err := r.col.FindOne(ctx, bson.M{"owner_id": ownerID, "channel_id": channelID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, derror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find setup: %w", err)
	}
	return &s, nil
}

func (r *SetupRepo) ListAll(ctx context.Context, ownerID int64) ([]*model.Setup, error) {
	cur, err := r.col.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("list setups: %w", err)
	}
	defer cur.Close(ctx)

	var out []*model.Setup
	for cur.Next(ctx) {
		var s model.Setup
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, cur.Err()
}
