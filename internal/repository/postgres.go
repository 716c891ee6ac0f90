package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uizzuu/ddauction-project-sub000/internal/auctionerrors"
	"github.com/uizzuu/ddauction-project-sub000/internal/config"
	model "github.com/uizzuu/ddauction-project-sub000/internal/models"
)

const queryTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS auctions (
	auction_id     TEXT PRIMARY KEY,
	seller_id      TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	starting_price BIGINT NOT NULL,
	deadline       TIMESTAMPTZ NOT NULL,
	winner_id      TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS bids (
	bid_id     TEXT PRIMARY KEY,
	auction_id TEXT NOT NULL REFERENCES auctions(auction_id),
	bidder_id  TEXT NOT NULL,
	amount     BIGINT NOT NULL,
	is_winning BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bids_auction_amount ON bids (auction_id, amount DESC);

CREATE TABLE IF NOT EXISTS notifications (
	notification_id TEXT PRIMARY KEY,
	recipient_id    TEXT NOT NULL,
	category        TEXT NOT NULL,
	message         TEXT NOT NULL,
	is_read         BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id, created_at DESC);
`

// BuildConnString assembles a pgx connection string from config.
func BuildConnString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Name, cfg.User, cfg.Password, cfg.SSLMode)
}

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// PostgresRepo is the durable AuctionStore implementation. The conditional
// bid insert and status update make it safe under concurrent writers even
// without process-level locking.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRepo wraps an existing pool.
func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

// EnsureSchema creates the tables when they do not exist yet.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func (r *PostgresRepo) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), queryTimeout)
}

// CreateAuction registers a new auction.
func (r *PostgresRepo) CreateAuction(auction model.Auction) error {
	ctx, cancel := r.ctx()
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO auctions (auction_id, seller_id, title, status, starting_price, deadline, winner_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		auction.AuctionID, auction.SellerID, auction.Title, string(auction.Status),
		auction.StartingPrice, auction.Deadline, auction.WinnerID, auction.CreatedAt)
	if err != nil {
		return fmt.Errorf("create auction %s: %w", auction.AuctionID, err)
	}
	return nil
}

const auctionColumns = `auction_id, seller_id, title, status, starting_price, deadline, winner_id, created_at`

func scanAuction(row pgx.Row) (model.Auction, error) {
	var a model.Auction
	var status string
	err := row.Scan(&a.AuctionID, &a.SellerID, &a.Title, &status,
		&a.StartingPrice, &a.Deadline, &a.WinnerID, &a.CreatedAt)
	if err != nil {
		return model.Auction{}, err
	}
	a.Status = model.AuctionStatus(status)
	return a, nil
}

// GetAuction returns auction metadata by id.
func (r *PostgresRepo) GetAuction(auctionID string) (model.Auction, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	row := r.pool.QueryRow(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE auction_id = $1`, auctionID)
	auction, err := scanAuction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// TryCloseAuction performs the conditional ACTIVE -> terminal transition.
func (r *PostgresRepo) TryCloseAuction(auctionID string, to model.AuctionStatus) (model.Auction, bool, error) {
	if !to.Terminal() {
		return model.Auction{}, false, fmt.Errorf("try close auction %s: %s is not a terminal status", auctionID, to)
	}

	ctx, cancel := r.ctx()
	defer cancel()

	row := r.pool.QueryRow(ctx,
		`UPDATE auctions SET status = $2 WHERE auction_id = $1 AND status = $3
		 RETURNING `+auctionColumns,
		auctionID, string(to), string(model.AuctionActive))
	auction, err := scanAuction(row)
	if err == nil {
		return auction, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Auction{}, false, fmt.Errorf("try close auction %s: %w", auctionID, err)
	}

	// No row updated: either the auction is gone or already terminal.
	auction, err = r.GetAuction(auctionID)
	if err != nil {
		return model.Auction{}, false, err
	}
	return auction, false, nil
}

// ListExpiredActiveAuctions returns auctions still ACTIVE past their deadline.
func (r *PostgresRepo) ListExpiredActiveAuctions(now time.Time) ([]model.Auction, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE status = $1 AND deadline <= $2`,
		string(model.AuctionActive), now)
	if err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", err)
	}
	defer rows.Close()

	var expired []model.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("list expired auctions: %w", err)
		}
		expired = append(expired, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", err)
	}
	return expired, nil
}

// InsertBid records the bid only when no equal-or-higher bid exists, so two
// racing submissions of the same amount cannot both land.
func (r *PostgresRepo) InsertBid(bid model.Bid) error {
	ctx, cancel := r.ctx()
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO bids (bid_id, auction_id, bidder_id, amount, is_winning, created_at)
		 SELECT $1, $2, $3, $4, FALSE, $5
		 WHERE NOT EXISTS (SELECT 1 FROM bids WHERE auction_id = $2 AND amount >= $4)`,
		bid.BidID, bid.AuctionID, bid.BidderID, bid.Amount, bid.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert bid for auction %s: %w", bid.AuctionID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	highest, err := r.GetHighestBid(bid.AuctionID)
	if err != nil {
		return fmt.Errorf("insert bid for auction %s: %w", bid.AuctionID, err)
	}
	return fmt.Errorf("insert bid for auction %s: %w",
		bid.AuctionID, &auctionerrors.BidTooLowError{MinRequired: highest.Amount + 1})
}

const bidColumns = `bid_id, auction_id, bidder_id, amount, is_winning, created_at`

func scanBid(row pgx.Row) (model.Bid, error) {
	var b model.Bid
	err := row.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.Amount, &b.IsWinning, &b.CreatedAt)
	return b, err
}

// GetBidsByAuction returns all bids for an auction, highest amount first.
func (r *PostgresRepo) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM auctions WHERE auction_id = $1)`, auctionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE auction_id = $1 ORDER BY amount DESC`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetHighestBid returns the highest bid for an auction.
func (r *PostgresRepo) GetHighestBid(auctionID string) (model.Bid, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	row := r.pool.QueryRow(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE auction_id = $1 ORDER BY amount DESC LIMIT 1`, auctionID)
	bid, err := scanBid(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, err)
	}
	return bid, nil
}

// SetWinningBid marks the winning bid and records the winner on the auction.
func (r *PostgresRepo) SetWinningBid(auctionID, bidID string) error {
	ctx, cancel := r.ctx()
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("set winning bid for auction %s: %w", auctionID, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE bids SET is_winning = (bid_id = $2) WHERE auction_id = $1`, auctionID, bidID)
	if err != nil {
		return fmt.Errorf("set winning bid for auction %s: %w", auctionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set winning bid for auction %s: bid %s: %w", auctionID, bidID, auctionerrors.ErrNoBids)
	}

	_, err = tx.Exec(ctx,
		`UPDATE auctions SET winner_id = (SELECT bidder_id FROM bids WHERE bid_id = $2)
		 WHERE auction_id = $1`, auctionID, bidID)
	if err != nil {
		return fmt.Errorf("set winning bid for auction %s: %w", auctionID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("set winning bid for auction %s: %w", auctionID, err)
	}
	return nil
}

// InsertNotification stores a notification record.
func (r *PostgresRepo) InsertNotification(n model.Notification) error {
	ctx, cancel := r.ctx()
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (notification_id, recipient_id, category, message, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.NotificationID, n.RecipientID, string(n.Category), n.Message, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification for %s: %w", n.RecipientID, err)
	}
	return nil
}

// GetNotificationsByRecipient returns a user's notifications, newest first.
func (r *PostgresRepo) GetNotificationsByRecipient(recipientID string) ([]model.Notification, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT notification_id, recipient_id, category, message, is_read, created_at
		 FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("get notifications for %s: %w", recipientID, err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var category string
		if err := rows.Scan(&n.NotificationID, &n.RecipientID, &category, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("get notifications for %s: %w", recipientID, err)
		}
		n.Category = model.NotificationCategory(category)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get notifications for %s: %w", recipientID, err)
	}
	return out, nil
}

// MarkNotificationRead flips the read flag on a notification.
func (r *PostgresRepo) MarkNotificationRead(notificationID string) error {
	ctx, cancel := r.ctx()
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE notification_id = $1`, notificationID)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", notificationID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark notification %s read: %w", notificationID, auctionerrors.ErrNotificationNotFound)
	}
	return nil
}
