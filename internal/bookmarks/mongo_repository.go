package bookmarks

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/errgroup"
)

// CollectionProvider resolves the bookmarks collection, connecting on first use.
type CollectionProvider func(ctx context.Context) (*mongo.Collection, error)

// maxParallelOrderWrites bounds concurrent per-document updates during ApplyOrder.
const maxParallelOrderWrites = 8

// MongoRepository stores bookmarks as documents keyed by bookmark id.
//
// Append reads the current maximum and inserts in two round trips, so two
// concurrent saves for the same user can receive equal order keys. Listing
// breaks such ties by creation time.
type MongoRepository struct {
	collection CollectionProvider
}

// NewMongoRepository constructs a repository over a lazily resolved collection.
func NewMongoRepository(collection CollectionProvider) *MongoRepository {
	return &MongoRepository{collection: collection}
}

// EnsureIndexes creates the (user, url) uniqueness and (user, order) listing indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	collection, err := r.collection(ctx)
	if err != nil {
		return err
	}
	_, err = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_bookmarks_user_url"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "order", Value: 1}},
			Options: options.Index().SetName("idx_bookmarks_user_order"),
		},
	})
	return err
}

func (r *MongoRepository) FindByID(ctx context.Context, bookmarkID BookmarkID) (Bookmark, error) {
	collection, err := r.collection(ctx)
	if err != nil {
		return Bookmark{}, err
	}
	var bookmark Bookmark
	err = collection.FindOne(ctx, bson.M{"_id": bookmarkID.String()}).Decode(&bookmark)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Bookmark{}, ErrNotFound
	}
	if err != nil {
		return Bookmark{}, err
	}
	return bookmark, nil
}

func (r *MongoRepository) ExistsForURL(ctx context.Context, userID UserID, url string) (bool, error) {
	collection, err := r.collection(ctx)
	if err != nil {
		return false, err
	}
	count, err := collection.CountDocuments(ctx, bson.M{"user_id": userID.String(), "url": url})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MongoRepository) ListByUser(ctx context.Context, userID UserID) ([]Bookmark, error) {
	collection, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	findOptions := options.Find().SetSort(bson.D{
		{Key: "order", Value: 1},
		{Key: "created_at", Value: 1},
	})
	cursor, err := collection.Find(ctx, bson.M{"user_id": userID.String()}, findOptions)
	if err != nil {
		return nil, err
	}
	stored := make([]Bookmark, 0)
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *MongoRepository) Append(ctx context.Context, bookmark *Bookmark) error {
	collection, err := r.collection(ctx)
	if err != nil {
		return err
	}

	var last Bookmark
	lastOptions := options.FindOne().
		SetSort(bson.D{{Key: "order", Value: -1}}).
		SetProjection(bson.M{"order": 1})
	err = collection.FindOne(ctx, bson.M{"user_id": bookmark.UserID}, lastOptions).Decode(&last)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		bookmark.Order = 0
	case err != nil:
		return err
	default:
		bookmark.Order = last.Order + 1
	}

	if bookmark.Tags == nil {
		bookmark.Tags = TagSet{}
	}
	if _, err := collection.InsertOne(ctx, bookmark); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *MongoRepository) UpdateFields(ctx context.Context, bookmarkID BookmarkID, update FieldUpdate) (Bookmark, error) {
	collection, err := r.collection(ctx)
	if err != nil {
		return Bookmark{}, err
	}
	set := bson.M{"updated_at": update.UpdatedAt}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Summary != nil {
		set["summary"] = *update.Summary
	}
	if update.Tags != nil {
		set["tags"] = []string(*update.Tags)
	}

	var updated Bookmark
	err = collection.FindOneAndUpdate(ctx,
		bson.M{"_id": bookmarkID.String()},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Bookmark{}, ErrNotFound
	}
	if err != nil {
		return Bookmark{}, err
	}
	return updated, nil
}

func (r *MongoRepository) Delete(ctx context.Context, bookmarkID BookmarkID) error {
	collection, err := r.collection(ctx)
	if err != nil {
		return err
	}
	result, err := collection.DeleteOne(ctx, bson.M{"_id": bookmarkID.String()})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyOrder issues one scoped update per assignment. Updates run concurrently
// and are not transactional; a failure may leave earlier writes applied.
func (r *MongoRepository) ApplyOrder(ctx context.Context, userID UserID, assignments []OrderAssignment, updatedAt time.Time) (int, error) {
	collection, err := r.collection(ctx)
	if err != nil {
		return 0, err
	}

	var applied atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallelOrderWrites)
	for _, assignment := range assignments {
		group.Go(func() error {
			result, err := collection.UpdateOne(groupCtx,
				bson.M{"_id": assignment.BookmarkID.String(), "user_id": userID.String()},
				bson.M{"$set": bson.M{"order": assignment.Order, "updated_at": updatedAt}},
			)
			if err != nil {
				return err
			}
			applied.Add(result.MatchedCount)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return int(applied.Load()), err
	}
	return int(applied.Load()), nil
}
