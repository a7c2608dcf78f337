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

var _ repository.MembershipRepository = (*MembershipRepo)(nil)

type MembershipRepo struct {
	col *mongo.Collection
}

func NewMembershipRepo(db *mongo.Database) *MembershipRepo {
	return &MembershipRepo{col: db.Collection(colMemberships)}
}

func (r *MembershipRepo) Count(ctx context.Context, channelID string) (int, error) {
	m, err := r.Find(ctx, channelID)
	if errors.Is(err, derror.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(m.Bots), nil
}

func (r *MembershipRepo) Find(ctx context.Context, channelID string) (*model.Membership, error) {
	var m model.Membership
	err := r.col.FindOne(ctx, bson.M{"channel_id": channelID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, derror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find membership: %w", err)
	}
	return &m, nil
}

func (r *MembershipRepo) Add(ctx context.Context, channelID string, botID int64, username string) error {
	filter := bson.M{"channel_id": channelID}
	update := bson.M{
		"$addToSet": bson.M{"bots": botID},
		"$set": bson.M{
			"updated_at":        time.Now().UTC(),
			"last_bot_username": username,
		},
	}
	if _, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("add bot: %w", err)
	}
	return nil
}

func (r *MembershipRepo) Remove(ctx context.Context, channelID string, botID int64) (bool, error) {
	// The filter requires the id to be present. Matching on channel_id
	// alone would let the updated_at write count as a modification even
	// when $pull removed nothing, reporting a removal that never happened.
	filter := bson.M{"channel_id": channelID, "bots": botID}
	update := bson.M{
		"$pull": bson.M{"bots": botID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("remove bot: %w", err)
	}
	return res.MatchedCount > 0, nil
}
