package bidding

import (
	"context"
	"errors"
	"testing"
	"time"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/clock"
	model "auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// stubLocked is a LockedAuction over a fixed bid list
type stubLocked struct {
	bids      []model.Bid
	appendErr error
}

func (l *stubLocked) HighestBid() (model.Bid, bool, error) {
	if len(l.bids) == 0 {
		return model.Bid{}, false, nil
	}
	return l.bids[len(l.bids)-1], true, nil
}

func (l *stubLocked) AppendBid(bid model.Bid) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.bids = append(l.bids, bid)
	return nil
}

func activeAuction() model.Auction {
	return model.Auction{
		AuctionID:     "auction1",
		SellerID:      "seller",
		StartingPrice: dec("100"),
		CurrentPrice:  dec("100"),
		StepPrice:     dec("10"),
		EndTime:       testNow.Add(time.Hour),
		Status:        model.AuctionActive,
	}
}

// runUpdate makes a mocked UpdateAuction invoke the callback on a copy of auction
func runUpdate(auction model.Auction, locked repository.LockedAuction) func(context.Context, string, repository.AuctionFunc) error {
	return func(_ context.Context, _ string, fn repository.AuctionFunc) error {
		a := auction
		return fn(&a, locked)
	}
}

// Tests PlaceBid
func TestBiddingService_PlaceBid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo,
		WithClock(clock.NewManual(testNow)),
		WithNotifier(&notify.Recorder{}),
	)

	// Table-driven test cases
	tests := []struct {
		name          string
		auctionID     string
		bidderID      string
		amount        decimal.Decimal
		mockSetup     func()
		expectError   bool
		expectedError error
	}{
		{
			name:      "valid_first_bid",
			auctionID: "auction1",
			bidderID:  "user1",
			amount:    dec("110"),
			mockSetup: func() {
				mockRepo.EXPECT().UpdateAuction(gomock.Any(), "auction1", gomock.Any()).DoAndReturn(runUpdate(activeAuction(), &stubLocked{}))
				mockRepo.EXPECT().IsBanned(gomock.Any(), "auction1", "user1").Return(false, nil)
			},
		},
		{
			name:          "empty_auctionID",
			auctionID:     "",
			bidderID:      "user1",
			amount:        dec("50"),
			mockSetup:     func() {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "empty_bidderID",
			auctionID:     "auction1",
			bidderID:      "",
			amount:        dec("50"),
			mockSetup:     func() {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "zero_amount",
			auctionID:     "auction1",
			bidderID:      "user1",
			amount:        decimal.Zero,
			mockSetup:     func() {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "negative_amount",
			auctionID:     "auction1",
			bidderID:      "user1",
			amount:        dec("-50"),
			mockSetup:     func() {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:      "auction_not_found",
			auctionID: "missing",
			bidderID:  "user1",
			amount:    dec("110"),
			mockSetup: func() {
				mockRepo.EXPECT().UpdateAuction(gomock.Any(), "missing", gomock.Any()).Return(auctionerrors.ErrNotFound)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrNotFound,
		},
		{
			name:      "bid_too_low",
			auctionID: "auction1",
			bidderID:  "user2",
			amount:    dec("105"),
			mockSetup: func() {
				mockRepo.EXPECT().UpdateAuction(gomock.Any(), "auction1", gomock.Any()).DoAndReturn(runUpdate(activeAuction(), &stubLocked{}))
				mockRepo.EXPECT().IsBanned(gomock.Any(), "auction1", "user2").Return(false, nil)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:      "ban_lookup_fails",
			auctionID: "auction1",
			bidderID:  "user3",
			amount:    dec("120"),
			mockSetup: func() {
				mockRepo.EXPECT().UpdateAuction(gomock.Any(), "auction1", gomock.Any()).DoAndReturn(runUpdate(activeAuction(), &stubLocked{}))
				mockRepo.EXPECT().IsBanned(gomock.Any(), "auction1", "user3").Return(false, errors.New("db failure"))
			},
			expectError:   true,
			expectedError: auctionerrors.ErrInternal,
		},
		{
			name:      "repo_write_fails",
			auctionID: "auction1",
			bidderID:  "user4",
			amount:    dec("120"),
			mockSetup: func() {
				mockRepo.EXPECT().UpdateAuction(gomock.Any(), "auction1", gomock.Any()).Return(errors.New("repo write failed"))
			},
			expectError:   true,
			expectedError: auctionerrors.ErrInternal,
		},
		{
			name:      "append_fails",
			auctionID: "auction1",
			bidderID:  "user5",
			amount:    dec("120"),
			mockSetup: func() {
				mockRepo.EXPECT().UpdateAuction(gomock.Any(), "auction1", gomock.Any()).DoAndReturn(runUpdate(activeAuction(), &stubLocked{appendErr: errors.New("disk full")}))
				mockRepo.EXPECT().IsBanned(gomock.Any(), "auction1", "user5").Return(false, nil)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrInternal,
		},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			result, err := service.PlaceBid(context.Background(), tc.auctionID, tc.bidderID, tc.amount)

			if tc.expectError {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				}
				return
			}

			require.NoError(t, err)

			_, parseErr := uuid.Parse(result.Bid.BidID)
			require.NoError(t, parseErr, "BidID should be a valid UUID")

			require.Equal(t, tc.auctionID, result.Bid.AuctionID)
			require.Equal(t, tc.bidderID, result.Bid.BidderID)
			require.True(t, tc.amount.Equal(result.Bid.Amount))
			require.True(t, tc.amount.Equal(result.Auction.CurrentPrice))
			require.Equal(t, tc.bidderID, result.Auction.CurrentWinner)
			require.Equal(t, testNow, result.Bid.CreatedAt)
		})
	}
}

func TestBiddingService_PlaceBid_TooLowCarriesMinimum(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo, WithClock(clock.NewManual(testNow)))

	auction := activeAuction()
	auction.CurrentPrice = dec("110")
	auction.CurrentWinner = "userA"

	mockRepo.EXPECT().UpdateAuction(gomock.Any(), "auction1", gomock.Any()).DoAndReturn(runUpdate(auction, &stubLocked{}))
	mockRepo.EXPECT().IsBanned(gomock.Any(), "auction1", "userB").Return(false, nil)

	_, err := service.PlaceBid(context.Background(), "auction1", "userB", dec("115"))
	require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)

	minAmount, ok := auctionerrors.MinAmount(err)
	require.True(t, ok)
	require.True(t, dec("120").Equal(minAmount), "min amount %s", minAmount)
}

// Tests GetBidsForAuction
func TestBiddingService_GetBidsForAuction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo)

	bidsExample := []model.Bid{
		{BidID: "bid1", AuctionID: "auction1", BidderID: "user1", Amount: dec("100"), CreatedAt: testNow},
		{BidID: "bid2", AuctionID: "auction1", BidderID: "user2", Amount: dec("150"), CreatedAt: testNow.Add(time.Second)},
	}

	tests := []struct {
		name          string
		auctionID     string
		mockSetup     func()
		expectError   bool
		expectedError error
		expectedBids  []model.Bid
	}{
		{
			name:      "valid_auction_with_bids",
			auctionID: "auction1",
			mockSetup: func() {
				mockRepo.EXPECT().GetBidsByAuction(gomock.Any(), "auction1").Return(bidsExample, nil)
			},
			expectedBids: bidsExample,
		},
		{
			name:      "valid_auction_no_bids",
			auctionID: "auction2",
			mockSetup: func() {
				mockRepo.EXPECT().GetBidsByAuction(gomock.Any(), "auction2").Return(nil, auctionerrors.ErrNoBids)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrNoBids,
		},
		{
			name:          "empty_auctionID",
			auctionID:     "",
			mockSetup:     func() {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:      "repo_error",
			auctionID: "auction3",
			mockSetup: func() {
				mockRepo.EXPECT().GetBidsByAuction(gomock.Any(), "auction3").Return(nil, errors.New("db failure"))
			},
			expectError:   true,
			expectedError: auctionerrors.ErrInternal,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			bids, err := service.GetBidsForAuction(context.Background(), tc.auctionID)

			if tc.expectError {
				require.Error(t, err)
				require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.expectedBids, bids)
			}
		})
	}
}

// Tests GetWinningBid and GetAuction
func TestBiddingService_Reads(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo)
	ctx := context.Background()

	winning := model.Bid{BidID: uuid.NewString(), AuctionID: "auction1", BidderID: "user1", Amount: dec("100"), CreatedAt: testNow}
	mockRepo.EXPECT().GetWinningBid(gomock.Any(), "auction1").Return(winning, nil)
	bid, err := service.GetWinningBid(ctx, "auction1")
	require.NoError(t, err)
	require.Equal(t, winning, bid)

	mockRepo.EXPECT().GetWinningBid(gomock.Any(), "auction2").Return(model.Bid{}, auctionerrors.ErrNoBids)
	_, err = service.GetWinningBid(ctx, "auction2")
	require.ErrorIs(t, err, auctionerrors.ErrNoBids)

	_, err = service.GetWinningBid(ctx, "")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidBid)

	mockRepo.EXPECT().GetAuction(gomock.Any(), "auction1").Return(activeAuction(), nil)
	auction, err := service.GetAuction(ctx, "auction1")
	require.NoError(t, err)
	require.Equal(t, "seller", auction.SellerID)

	mockRepo.EXPECT().GetAuction(gomock.Any(), "gone").Return(model.Auction{}, auctionerrors.ErrNotFound)
	_, err = service.GetAuction(ctx, "gone")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
	require.False(t, errors.Is(err, auctionerrors.ErrInternal))

	_, err = service.GetAuction(ctx, "")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidAuction)
}

// Tests GetAuctionsByUser
func TestBiddingService_GetAuctionsByUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo)
	ctx := context.Background()

	auctions := []model.Auction{activeAuction()}
	mockRepo.EXPECT().GetAuctionsByUser(gomock.Any(), "user1").Return(auctions, nil)
	got, err := service.GetAuctionsByUser(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, auctions, got)

	mockRepo.EXPECT().GetAuctionsByUser(gomock.Any(), "user2").Return(nil, auctionerrors.ErrUserNoBids)
	_, err = service.GetAuctionsByUser(ctx, "user2")
	require.ErrorIs(t, err, auctionerrors.ErrUserNoBids)

	mockRepo.EXPECT().GetAuctionsByUser(gomock.Any(), "user3").Return(nil, errors.New("db failure"))
	_, err = service.GetAuctionsByUser(ctx, "user3")
	require.ErrorIs(t, err, auctionerrors.ErrInternal)

	_, err = service.GetAuctionsByUser(ctx, "")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidBid)
}
