package repo

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

const (
	edgeStatePending   = "pending"
	edgeStateConnected = "connected"
)

// connectionEdge is one row per unordered pair. The composite primary key on
// (user_low, user_high) is the uniqueness constraint that makes the pair
// exactly one of none / pending one way / pending the other way / connected.
type connectionEdge struct {
	bun.BaseModel `bun:"table:connection_edges,alias:ce"`

	UserLow   string    `bun:",pk"`
	UserHigh  string    `bun:",pk"`
	Requester string    `bun:",notnull"`
	State     string    `bun:",notnull"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

type PostgresConnectionRepository struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPostgresConnectionRepository stores the graph as an edge table. User
// records stay in the identity store; this backend only answers for edges.
func NewPostgresConnectionRepository(db *bun.DB, logger *zap.Logger) *PostgresConnectionRepository {
	return &PostgresConnectionRepository{db: db, logger: logger}
}

func (r *PostgresConnectionRepository) CreateSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().Model((*connectionEdge)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return classify("edgeRepo.CreateSchema", err)
	}
	_, err = r.db.NewCreateIndex().
		Model((*connectionEdge)(nil)).
		Index("connection_edges_user_high_idx").
		Column("user_high").
		IfNotExists().
		Exec(ctx)
	return classify("edgeRepo.CreateSchema", err)
}

func (r *PostgresConnectionRepository) Status(ctx context.Context, userID, otherID string) (model.ConnectionStatus, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var edge *connectionEdge
	err := withRetry(ctx, r.logger, "edgeRepo.Status", func(ctx context.Context) error {
		var err error
		edge, err = r.find(ctx, r.db, userID, otherID)
		return err
	})
	if err != nil {
		return model.StatusNone, err
	}
	return edgeStatus(edge, userID), nil
}

func (r *PostgresConnectionRepository) CreateRequest(ctx context.Context, requesterID, targetID string, at time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	lo, hi := model.SortedPair(requesterID, targetID)
	edge := &connectionEdge{
		UserLow:   lo,
		UserHigh:  hi,
		Requester: requesterID,
		State:     edgeStatePending,
		CreatedAt: at,
		UpdatedAt: at,
	}

	// The row may disappear between the failed insert and the read-back when
	// a concurrent reject or remove lands; try the insert again in that case.
	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := r.db.NewInsert().Model(edge).On("CONFLICT (user_low, user_high) DO NOTHING").Exec(ctx)
		if err != nil {
			return classify("edgeRepo.CreateRequest.Insert", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return nil
		}

		existing, err := r.find(ctx, r.db, requesterID, targetID)
		if err != nil {
			return classify("edgeRepo.CreateRequest.Select", err)
		}
		switch edgeStatus(existing, requesterID) {
		case model.StatusConnected:
			return apperr.ErrAlreadyConnected
		case model.StatusPendingOutgoing:
			return apperr.ErrDuplicateRequest
		case model.StatusPendingIncoming:
			return apperr.ErrReciprocalRequestExists
		}
	}
	return apperr.ErrStoreUnavailable(errors.New("edgeRepo.CreateRequest: edge kept changing"))
}

func (r *PostgresConnectionRepository) AcceptRequest(ctx context.Context, accepterID, requesterID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	lo, hi := model.SortedPair(accepterID, requesterID)
	res, err := r.db.NewUpdate().
		Model((*connectionEdge)(nil)).
		Set("state = ?", edgeStateConnected).
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_low = ? AND user_high = ?", lo, hi).
		Where("state = ? AND requester = ?", edgeStatePending, requesterID).
		Exec(ctx)
	if err != nil {
		return classify("edgeRepo.AcceptRequest", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrRequestNotFound
	}
	return nil
}

func (r *PostgresConnectionRepository) DeleteRequest(ctx context.Context, rejecterID, requesterID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	lo, hi := model.SortedPair(rejecterID, requesterID)
	res, err := r.db.NewDelete().
		Model((*connectionEdge)(nil)).
		Where("user_low = ? AND user_high = ?", lo, hi).
		Where("state = ? AND requester = ?", edgeStatePending, requesterID).
		Exec(ctx)
	if err != nil {
		return classify("edgeRepo.DeleteRequest", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrRequestNotFound
	}
	return nil
}

func (r *PostgresConnectionRepository) DeleteConnection(ctx context.Context, userID, otherID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	lo, hi := model.SortedPair(userID, otherID)
	return withRetry(ctx, r.logger, "edgeRepo.DeleteConnection", func(ctx context.Context) error {
		_, err := r.db.NewDelete().
			Model((*connectionEdge)(nil)).
			Where("user_low = ? AND user_high = ?", lo, hi).
			Where("state = ?", edgeStateConnected).
			Exec(ctx)
		return err
	})
}

func (r *PostgresConnectionRepository) ListConnections(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var edges []connectionEdge
	err := withRetry(ctx, r.logger, "edgeRepo.ListConnections", func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(&edges).
			Where("state = ?", edgeStateConnected).
			WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("user_low = ?", userID).WhereOr("user_high = ?", userID)
			}).
			Scan(ctx)
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, otherSide(e, userID))
	}
	sort.Strings(out)
	return out, nil
}

func (r *PostgresConnectionRepository) ListRequests(ctx context.Context, userID string) ([]model.ConnectionRequest, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var edges []connectionEdge
	err := withRetry(ctx, r.logger, "edgeRepo.ListRequests", func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(&edges).
			Where("state = ? AND requester <> ?", edgeStatePending, userID).
			WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("user_low = ?", userID).WhereOr("user_high = ?", userID)
			}).
			Order("created_at ASC").
			Scan(ctx)
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.ConnectionRequest, 0, len(edges))
	for _, e := range edges {
		out = append(out, model.ConnectionRequest{From: e.Requester, CreatedAt: e.CreatedAt})
	}
	return out, nil
}

func (r *PostgresConnectionRepository) find(ctx context.Context, db bun.IDB, a, b string) (*connectionEdge, error) {
	lo, hi := model.SortedPair(a, b)
	edge := new(connectionEdge)
	err := db.NewSelect().Model(edge).Where("user_low = ? AND user_high = ?", lo, hi).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return edge, nil
}

func edgeStatus(edge *connectionEdge, userID string) model.ConnectionStatus {
	switch {
	case edge == nil:
		return model.StatusNone
	case edge.State == edgeStateConnected:
		return model.StatusConnected
	case edge.Requester == userID:
		return model.StatusPendingOutgoing
	default:
		return model.StatusPendingIncoming
	}
}

func otherSide(e connectionEdge, userID string) string {
	if e.UserLow == userID {
		return e.UserHigh
	}
	return e.UserLow
}
