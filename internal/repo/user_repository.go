package repo

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/db"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// UserRepository is the identity half of the Identity Store.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUsers(ctx context.Context, ids []string) ([]model.User, error)
	// EnsureUser creates the record on first authentication and refreshes
	// the display fields on later ones.
	EnsureUser(ctx context.Context, identity model.Identity) (*model.User, error)
}

// ConnectionRepository holds the connection graph. Every mutating method is
// a single linearizable transition for the pair it touches and returns the
// named apperr condition when its precondition does not hold.
type ConnectionRepository interface {
	Status(ctx context.Context, userID, otherID string) (model.ConnectionStatus, error)
	CreateRequest(ctx context.Context, requesterID, targetID string, at time.Time) error
	AcceptRequest(ctx context.Context, accepterID, requesterID string) error
	DeleteRequest(ctx context.Context, rejecterID, requesterID string) error
	DeleteConnection(ctx context.Context, userID, otherID string) error
	ListConnections(ctx context.Context, userID string) ([]string, error)
	ListRequests(ctx context.Context, userID string) ([]model.ConnectionRequest, error)
}

// IdentityStore is a backend holding both user records and the graph.
type IdentityStore interface {
	UserRepository
	ConnectionRepository
	EnsureIndexes(ctx context.Context) error
}

type userRepository struct {
	con    *mongo.Database
	users  *db.Repository[model.User]
	logger *zap.Logger
}

// NewUserRepository returns the Mongo-backed identity store. The connection
// graph lives embedded in the user documents; transitions run in
// multi-document transactions, so the deployment must be a replica set.
func NewUserRepository(con *mongo.Database, users *db.Repository[model.User], logger *zap.Logger) IdentityStore {
	return &userRepository{
		con:    con,
		users:  users,
		logger: logger,
	}
}

func (r *userRepository) EnsureIndexes(ctx context.Context) error {
	return r.users.EnsureIndexes(ctx,
		mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	)
}

func (r *userRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperr.ErrMissingID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var user *model.User
	err := withRetry(ctx, r.logger, "userRepo.GetUser", func(ctx context.Context) error {
		u, err := r.users.FindByID(ctx, id)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.ErrUserNotFound
		}
		user = u
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetUsers(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var users []model.User
	err := withRetry(ctx, r.logger, "userRepo.GetUsers", func(ctx context.Context) error {
		var err error
		users, err = r.users.FindAll(ctx, db.NewFilter().In("_id", ids).Build(), db.FindParams{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) EnsureUser(ctx context.Context, identity model.Identity) (*model.User, error) {
	if identity.ID == "" {
		return nil, apperr.ErrMissingID
	}
	if !model.ValidUserID(identity.ID) {
		return nil, apperr.ErrInvalidUserID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$setOnInsert": bson.M{
			"username":            identity.Username,
			"email":               identity.Email,
			"connections":         []string{},
			"connection_requests": []model.ConnectionRequest{},
			"graph_version":       int64(0),
			"is_active":           true,
			"created_at":          now,
		},
		"$set": bson.M{
			"display_name": identity.DisplayName,
			"avatar_url":   identity.AvatarURL,
			"updated_at":   now,
		},
	}

	err := withRetry(ctx, r.logger, "userRepo.EnsureUser", func(ctx context.Context) error {
		_, err := r.users.Upsert(ctx, bson.M{"_id": identity.ID}, update)
		if mongo.IsDuplicateKeyError(err) {
			return apperr.AlreadyExists("IdentityConflict", "email or username already belongs to another user")
		}
		return err
	})
	if err != nil {
		r.logger.Error("failed to ensure user", zap.String("user_id", identity.ID), zap.Error(err))
		return nil, err
	}

	return r.GetUser(ctx, identity.ID)
}

// -----------------------------------------------------------------------------
// Connection graph
// -----------------------------------------------------------------------------

func (r *userRepository) Status(ctx context.Context, userID, otherID string) (model.ConnectionStatus, error) {
	users, err := r.GetUsers(ctx, []string{userID, otherID})
	if err != nil {
		return model.StatusNone, err
	}

	var user, other *model.User
	for i := range users {
		switch users[i].ID {
		case userID:
			user = &users[i]
		case otherID:
			other = &users[i]
		}
	}
	return model.StatusBetween(user, other), nil
}

func (r *userRepository) CreateRequest(ctx context.Context, requesterID, targetID string, at time.Time) error {
	return r.transition(ctx, "userRepo.CreateRequest", requesterID, targetID,
		func(sc mongo.SessionContext, requester, target *model.User) error {
			switch model.StatusBetween(requester, target) {
			case model.StatusConnected:
				return apperr.ErrAlreadyConnected
			case model.StatusPendingOutgoing:
				return apperr.ErrDuplicateRequest
			case model.StatusPendingIncoming:
				return apperr.ErrReciprocalRequestExists
			}

			filter := db.NewFilter().
				Eq("_id", targetID).
				Ne("connection_requests.from", requesterID).
				Ne("connections", requesterID).
				Build()
			res, err := r.users.UpdateOne(sc, filter, bson.M{
				"$push": bson.M{"connection_requests": model.ConnectionRequest{From: requesterID, CreatedAt: at}},
			})
			if err != nil {
				return err
			}
			if res.ModifiedCount == 0 {
				return apperr.ErrDuplicateRequest
			}
			return nil
		})
}

func (r *userRepository) AcceptRequest(ctx context.Context, accepterID, requesterID string) error {
	return r.transition(ctx, "userRepo.AcceptRequest", accepterID, requesterID,
		func(sc mongo.SessionContext, accepter, requester *model.User) error {
			if !accepter.HasRequestFrom(requesterID) {
				return apperr.ErrRequestNotFound
			}

			res, err := r.users.UpdateOne(sc,
				db.NewFilter().Eq("_id", accepterID).Eq("connection_requests.from", requesterID).Build(),
				bson.M{
					"$pull":     bson.M{"connection_requests": bson.M{"from": requesterID}},
					"$addToSet": bson.M{"connections": requesterID},
				})
			if err != nil {
				return err
			}
			if res.MatchedCount == 0 {
				return apperr.ErrRequestNotFound
			}

			_, err = r.users.UpdateOne(sc, bson.M{"_id": requesterID}, bson.M{
				"$pull":     bson.M{"connection_requests": bson.M{"from": accepterID}},
				"$addToSet": bson.M{"connections": accepterID},
			})
			return err
		})
}

func (r *userRepository) DeleteRequest(ctx context.Context, rejecterID, requesterID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := r.users.UpdateOne(ctx,
		db.NewFilter().Eq("_id", rejecterID).Eq("connection_requests.from", requesterID).Build(),
		bson.M{
			"$pull": bson.M{"connection_requests": bson.M{"from": requesterID}},
			"$inc":  bson.M{"graph_version": 1},
		})
	if err != nil {
		return classify("userRepo.DeleteRequest", err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrRequestNotFound
	}
	return nil
}

// DeleteConnection pulls the edge from both sides independently so that a
// half-removed edge left by an earlier failure is repaired.
func (r *userRepository) DeleteConnection(ctx context.Context, userID, otherID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	return withRetry(ctx, r.logger, "userRepo.DeleteConnection", func(ctx context.Context) error {
		for _, side := range [][2]string{{userID, otherID}, {otherID, userID}} {
			_, err := r.users.UpdateOne(ctx, bson.M{"_id": side[0]}, bson.M{
				"$pull": bson.M{"connections": side[1]},
				"$inc":  bson.M{"graph_version": 1},
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *userRepository) ListConnections(ctx context.Context, userID string) ([]string, error) {
	user, err := r.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := append([]string{}, user.Connections...)
	sort.Strings(out)
	return out, nil
}

func (r *userRepository) ListRequests(ctx context.Context, userID string) ([]model.ConnectionRequest, error) {
	user, err := r.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append([]model.ConnectionRequest{}, user.ConnectionRequests...), nil
}

// transition runs fn inside a transaction after bumping graph_version on both
// user documents. The bumps make any two transitions on the same pair
// write-conflict, which WithTransaction resolves by retrying the loser against
// the committed state. Without them two crossing requests would each read a
// clean document and both commit.
func (r *userRepository) transition(ctx context.Context, op, aID, bID string,
	fn func(sc mongo.SessionContext, a, b *model.User) error) error {

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	session, err := r.con.Client().StartSession()
	if err != nil {
		return classify(op, err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		lo, hi := model.SortedPair(aID, bID)
		for _, id := range []string{lo, hi} {
			res, err := r.users.UpdateOne(sc, bson.M{"_id": id}, bson.M{"$inc": bson.M{"graph_version": 1}})
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, apperr.ErrUserNotFound
			}
		}

		a, err := r.users.FindByID(sc, aID)
		if err != nil {
			return nil, err
		}
		b, err := r.users.FindByID(sc, bID)
		if err != nil {
			return nil, err
		}
		return nil, fn(sc, a, b)
	})
	if err != nil {
		r.logger.Debug("graph transition rejected",
			zap.String("op", op),
			zap.String("a", aID),
			zap.String("b", bID),
			zap.Error(err),
		)
	}
	return classify(op, err)
}
