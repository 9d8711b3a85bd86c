package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"auction-engine/internal/repository"

	"github.com/shopspring/decimal"
)

const auctionColumns = `auction_id, seller_id, title, description, starting_price, current_price,
	step_price, buy_now_price, start_time, end_time, status, current_winner, auto_extend,
	restrict_bidders, created_at`

const bidColumns = `bid_id, auction_id, bidder_id, amount, created_at`

func scanAuction(row rowScanner) (model.Auction, error) {
	var (
		a      model.Auction
		buyNow decimal.NullDecimal
		status string
	)
	err := row.Scan(&a.AuctionID, &a.SellerID, &a.Title, &a.Description, &a.StartingPrice, &a.CurrentPrice,
		&a.StepPrice, &buyNow, &a.StartTime, &a.EndTime, &status, &a.CurrentWinner, &a.AutoExtend,
		&a.RestrictBidders, &a.CreatedAt)
	if err != nil {
		return model.Auction{}, err
	}

	a.Status, err = model.ParseAuctionStatus(status)
	if err != nil {
		return model.Auction{}, err
	}
	if buyNow.Valid {
		a.BuyNowPrice = &buyNow.Decimal
	}
	a.StartTime = a.StartTime.UTC()
	a.EndTime = a.EndTime.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func scanBid(row rowScanner) (model.Bid, error) {
	var b model.Bid
	if err := row.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt); err != nil {
		return model.Bid{}, err
	}
	b.CreatedAt = b.CreatedAt.UTC()
	return b, nil
}

func nullableDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// CreateAuction stores a new auction
func (s *Store) CreateAuction(ctx context.Context, a model.Auction) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO auctions (`+auctionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		a.AuctionID, a.SellerID, a.Title, a.Description, a.StartingPrice, a.CurrentPrice,
		a.StepPrice, nullableDecimal(a.BuyNowPrice), a.StartTime, a.EndTime, string(a.Status), a.CurrentWinner,
		a.AutoExtend, a.RestrictBidders, a.CreatedAt)
	if err != nil {
		return mapConstraint(fmt.Sprintf("create auction %s", a.AuctionID), err)
	}
	return nil
}

// GetAuction returns a snapshot of an auction
func (s *Store) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	a, err := scanAuction(s.db.QueryRowContext(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE auction_id = $1`, auctionID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return a, nil
}

func (s *Store) auctionExists(ctx context.Context, auctionID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM auctions WHERE auction_id = $1)`, auctionID).Scan(&exists)
	return exists, err
}

// GetBidsByAuction returns all accepted bids for an auction in commit order
func (s *Store) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	exists, err := s.auctionExists(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+bidColumns+` FROM bids WHERE auction_id = $1 ORDER BY seq`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return bids, nil
}

const highestBidQuery = `SELECT ` + bidColumns + ` FROM bids WHERE auction_id = $1
	ORDER BY amount DESC, created_at ASC, seq ASC LIMIT 1`

// GetWinningBid returns the highest bid for an auction, earliest first on ties
func (s *Store) GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error) {
	b, err := scanBid(s.db.QueryRowContext(ctx, highestBidQuery, auctionID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, err)
	}
	return b, nil
}

// GetAuctionsByUser returns all auctions a user has bid on
func (s *Store) GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+auctionColumns+` FROM auctions
		WHERE auction_id IN (SELECT auction_id FROM bids WHERE bidder_id = $1)
		ORDER BY created_at, auction_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var auctions []model.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("get auctions for user %s: %w", userID, err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, err)
	}
	if len(auctions) == 0 {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, auctionerrors.ErrUserNoBids)
	}
	return auctions, nil
}

// ListDueAuctions returns active auctions whose end time has passed, earliest end first
func (s *Store) ListDueAuctions(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT auction_id FROM auctions
		WHERE status = $1 AND end_time <= $2
		ORDER BY end_time, auction_id`, string(model.AuctionActive), now)
	if err != nil {
		return nil, fmt.Errorf("list due auctions: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list due auctions: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateAuction runs fn inside a transaction holding the auction's row lock
func (s *Store) UpdateAuction(ctx context.Context, auctionID string, fn repository.AuctionFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update auction %s: begin: %w", auctionID, err)
	}
	defer tx.Rollback()

	a, err := scanAuction(tx.QueryRowContext(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE auction_id = $1 FOR UPDATE`, auctionID))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update auction %s: %w", auctionID, err)
	}

	locked := &lockedAuction{ctx: ctx, tx: tx, auctionID: auctionID}
	if err := fn(&a, locked); err != nil {
		if errors.Is(err, repository.ErrUnchanged) {
			return nil
		}
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE auctions SET current_price = $2, end_time = $3, status = $4,
		current_winner = $5 WHERE auction_id = $1`,
		auctionID, a.CurrentPrice, a.EndTime, string(a.Status), a.CurrentWinner)
	if err != nil {
		return fmt.Errorf("update auction %s: %w", auctionID, err)
	}

	for _, b := range locked.staged {
		_, err := tx.ExecContext(ctx, `INSERT INTO bids (`+bidColumns+`) VALUES ($1, $2, $3, $4, $5)`,
			b.BidID, b.AuctionID, b.BidderID, b.Amount, b.CreatedAt)
		if err != nil {
			return mapConstraint(fmt.Sprintf("update auction %s: insert bid %s", auctionID, b.BidID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update auction %s: commit: %w", auctionID, err)
	}
	return nil
}

type lockedAuction struct {
	ctx       context.Context
	tx        *sql.Tx
	auctionID string
	staged    []model.Bid
}

func (l *lockedAuction) HighestBid() (model.Bid, bool, error) {
	best, err := scanBid(l.tx.QueryRowContext(l.ctx, highestBidQuery, l.auctionID))
	ok := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, false, fmt.Errorf("highest bid for auction %s: %w", l.auctionID, err)
	}
	for _, b := range l.staged {
		if !ok || b.Outranks(best) {
			best, ok = b, true
		}
	}
	return best, ok, nil
}

func (l *lockedAuction) AppendBid(bid model.Bid) error {
	if bid.AuctionID != l.auctionID {
		return fmt.Errorf("append bid %s: %w - bid belongs to auction %s", bid.BidID, auctionerrors.ErrInvalidBid, bid.AuctionID)
	}
	l.staged = append(l.staged, bid)
	return nil
}

// IsBanned reports whether userID has been banned from bidding on auctionID
func (s *Store) IsBanned(ctx context.Context, auctionID, userID string) (bool, error) {
	var banned bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM auction_bans WHERE auction_id = $1 AND user_id = $2)`,
		auctionID, userID).Scan(&banned)
	if err != nil {
		return false, fmt.Errorf("check ban on auction %s: %w", auctionID, err)
	}
	return banned, nil
}

// BanBidder prevents userID from bidding on auctionID
func (s *Store) BanBidder(ctx context.Context, auctionID, userID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO auction_bans (auction_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, auctionID, userID)
	if err != nil {
		return mapConstraint(fmt.Sprintf("ban bidder on auction %s", auctionID), err)
	}
	return nil
}
