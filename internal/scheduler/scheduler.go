package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/uizzuu/ddauction-project-sub000/internal/auctionerrors"
	"github.com/uizzuu/ddauction-project-sub000/internal/metrics"
	"github.com/uizzuu/ddauction-project-sub000/internal/models"
	"github.com/uizzuu/ddauction-project-sub000/internal/registry"
	"github.com/uizzuu/ddauction-project-sub000/internal/repository"
	"github.com/uizzuu/ddauction-project-sub000/utils"
)

// Broadcaster delivers the terminal settlement event to subscribers.
type Broadcaster interface {
	PublishClosed(auctionID, winnerID string, finalAmount int64)
}

// Notifier enqueues best-effort user notifications.
type Notifier interface {
	Send(recipientID string, category models.NotificationCategory, message string)
}

// Config holds settlement sweep settings.
type Config struct {
	Interval    time.Duration // sweep interval
	Concurrency int           // max auctions finalized in parallel
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Second,
		Concurrency: 8,
	}
}

// Scheduler periodically finds auctions whose deadline has passed and
// finalizes each exactly once. The conditional close in the registry makes
// overlapping sweeps safe: a finalize that loses the transition race is a
// no-op, and a finalize that fails leaves the auction ACTIVE for the next
// tick.
type Scheduler struct {
	cfg         Config
	reg         *registry.Registry
	store       repository.AuctionStore
	broadcaster Broadcaster
	notifier    Notifier
	metrics     *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
}

// New creates a Scheduler.
func New(cfg Config, reg *registry.Registry, store repository.AuctionStore, broadcaster Broadcaster, notifier Notifier, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		reg:         reg,
		store:       store,
		broadcaster: broadcaster,
		notifier:    notifier,
		metrics:     m,
		now:         time.Now,
	}
}

// Start begins the sweep loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	utils.Info("settlement scheduler started", map[string]any{
		"interval":    s.cfg.Interval.String(),
		"concurrency": s.cfg.Concurrency,
	})
}

// Stop shuts the loop down and waits for in-flight finalizes to complete.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		utils.Info("settlement scheduler stopped", nil)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the sweep loop.
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// Sweep immediately on start.
	s.Sweep()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep finalizes every expired ACTIVE auction. Auctions are processed
// independently with bounded concurrency; one failure never aborts the
// rest.
func (s *Scheduler) Sweep() {
	start := time.Now()
	defer s.metrics.ObserveSweep(start)

	expired, err := s.reg.ListExpired(s.now())
	if err != nil {
		utils.Error("scheduler: failed to list expired auctions", map[string]any{"error": err.Error()})
		return
	}
	if len(expired) == 0 {
		return
	}

	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, auction := range expired {
		wg.Add(1)
		go func(auctionID string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := s.Finalize(auctionID); err != nil {
				utils.Error("scheduler: failed to finalize auction, will retry next sweep", map[string]any{
					"auction_id": auctionID,
					"error":      err.Error(),
				})
			}
		}(auction.AuctionID)
	}
	wg.Wait()

	utils.Info("settlement sweep complete", map[string]any{
		"expired":  len(expired),
		"duration": time.Since(start).String(),
	})
}

// Finalize settles one auction. Idempotent: the conditional close makes a
// lost race a clean skip, so re-running for an already-settled auction does
// nothing.
func (s *Scheduler) Finalize(auctionID string) error {
	auction, err := s.reg.Get(auctionID)
	if err != nil {
		return err
	}
	if auction.Status != models.AuctionActive {
		return nil // already finalized by a concurrent sweep
	}

	highest, err := s.store.GetHighestBid(auctionID)
	hasBids := err == nil
	if err != nil && !errors.Is(err, auctionerrors.ErrNoBids) {
		return fmt.Errorf("scheduler: failed to read highest bid for auction %s: %w", auctionID, err)
	}

	target := models.AuctionExpiredNoBids
	if hasBids {
		target = models.AuctionClosed
	}

	auction, changed, err := s.reg.TryClose(auctionID, target)
	if err != nil {
		return err
	}
	if !changed {
		return nil // another sweep won the transition
	}

	// The terminal status blocks new bids, but one validated just before
	// the deadline can land between the first read and the close. Re-read
	// after winning the transition so settlement reflects every bid that
	// made it in. The transition already happened, so a failed re-read
	// falls back to the earlier read rather than leaving the auction
	// closed but unsettled.
	if late, lateErr := s.store.GetHighestBid(auctionID); lateErr == nil {
		highest, hasBids = late, true
	} else if !errors.Is(lateErr, auctionerrors.ErrNoBids) {
		utils.Warn("scheduler: failed to re-read highest bid, settling with earlier read", map[string]any{
			"auction_id": auctionID,
			"error":      lateErr.Error(),
		})
	}

	if hasBids {
		s.settleWithWinner(auction, highest)
	} else {
		s.metrics.AuctionSettled("expired_no_bids")
		utils.Info("auction expired without bids", map[string]any{"auction_id": auctionID})
	}

	if s.broadcaster != nil {
		if hasBids {
			s.broadcaster.PublishClosed(auctionID, highest.BidderID, highest.Amount)
		} else {
			s.broadcaster.PublishClosed(auctionID, "", 0)
		}
	}
	return nil
}

// settleWithWinner records the winning bid and notifies participants. The
// status transition already happened; failures here are logged, not
// propagated, so the terminal event still goes out.
func (s *Scheduler) settleWithWinner(auction models.Auction, winning models.Bid) {
	if err := s.store.SetWinningBid(auction.AuctionID, winning.BidID); err != nil {
		utils.Error("scheduler: failed to mark winning bid", map[string]any{
			"auction_id": auction.AuctionID,
			"bid_id":     winning.BidID,
			"error":      err.Error(),
		})
	}

	s.metrics.AuctionSettled("closed")
	utils.Info("auction settled", map[string]any{
		"auction_id":   auction.AuctionID,
		"winner_id":    winning.BidderID,
		"final_amount": winning.Amount,
	})

	if s.notifier == nil {
		return
	}
	s.notifier.Send(winning.BidderID, models.NotifyWin,
		fmt.Sprintf("You won %q with a bid of %d", auction.Title, winning.Amount))

	bids, err := s.store.GetBidsByAuction(auction.AuctionID)
	if err != nil {
		utils.Warn("scheduler: failed to load bidders for close notifications", map[string]any{
			"auction_id": auction.AuctionID,
			"error":      err.Error(),
		})
		return
	}
	notified := map[string]struct{}{winning.BidderID: {}}
	for _, b := range bids {
		if _, done := notified[b.BidderID]; done {
			continue
		}
		notified[b.BidderID] = struct{}{}
		s.notifier.Send(b.BidderID, models.NotifyAuctionClosed,
			fmt.Sprintf("Auction %q closed at %d", auction.Title, winning.Amount))
	}
}
