package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auction-engine/internal/auctionerrors"
	bidding "auction-engine/internal/biddingService"
	model "auction-engine/internal/models"
	"auction-engine/services/bidding/helpers"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// decimalEq matches a decimal argument by value rather than representation
type decimalEq struct{ want decimal.Decimal }

func (m decimalEq) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalEq) String() string { return "is decimal " + m.want.String() }

type timeEq struct{ want time.Time }

func (m timeEq) Matches(x any) bool {
	t, ok := x.(time.Time)
	return ok && t.Equal(m.want)
}

func (m timeEq) String() string { return "is time " + m.want.String() }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func doJSON(t *testing.T, router *gin.Engine, method, path, user string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(helpers.UserIDHeader, user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

// Test RecordBidHandler
func TestRecordBidHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)

	// Initialize Gin in test mode
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/bids", handler.RecordBidHandler)

	now := time.Now().UTC()

	accepted := func(auctionID, bidder, amount string, extended bool) model.BidResult {
		a := dec(amount)
		return model.BidResult{
			Auction: model.Auction{
				AuctionID:     auctionID,
				CurrentPrice:  a,
				StepPrice:     dec("10"),
				CurrentWinner: bidder,
				EndTime:       now.Add(10 * time.Minute),
				Status:        model.AuctionActive,
			},
			Bid:             model.Bid{BidID: uuid.NewString(), AuctionID: auctionID, BidderID: bidder, Amount: a, CreatedAt: now},
			Extended:        extended,
			PreviousEndTime: now.Add(3 * time.Minute),
		}
	}

	tests := []struct {
		name           string
		user           string
		requestBody    any
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
		validate       func(t *testing.T, resp map[string]any)
	}{
		{
			name:        "success_valid_bid",
			user:        "user1",
			requestBody: map[string]any{"auction_id": "auction1", "amount": "110"},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "auction1", "user1", decimalEq{dec("110")}).
					Return(accepted("auction1", "user1", "110", false), nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid recorded successfully",
			validate: func(t *testing.T, resp map[string]any) {
				data := resp["data"].(map[string]any)
				bid := data["bid"].(map[string]any)
				_, parseErr := uuid.Parse(bid["bid_id"].(string))
				require.NoError(t, parseErr, "BidID should be a valid UUID")
				require.Equal(t, "auction1", bid["auction_id"])
				require.Equal(t, "user1", bid["bidder_id"])
				require.Equal(t, "110", bid["amount"])
				require.Equal(t, "120", data["min_next_bid"])
				require.Equal(t, false, data["extended"])
				require.NotContains(t, data, "previous_end_time")
			},
		},
		{
			name:        "numeric_amount_with_extension",
			user:        "user2",
			requestBody: `{"auction_id":"auction2","amount":250.5}`,
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "auction2", "user2", decimalEq{dec("250.5")}).
					Return(accepted("auction2", "user2", "250.5", true), nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid recorded successfully",
			validate: func(t *testing.T, resp map[string]any) {
				data := resp["data"].(map[string]any)
				require.Equal(t, true, data["extended"])
				require.NotEmpty(t, data["previous_end_time"])
			},
		},
		{
			name:           "invalid_json",
			user:           "user1",
			requestBody:    `{invalid json}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "missing_auction_id",
			user:           "user1",
			requestBody:    map[string]any{"amount": "50"},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "malformed_amount",
			user:           "user1",
			requestBody:    `{"auction_id":"auction1","amount":"ten"}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:        "service_bid_too_low",
			user:        "user3",
			requestBody: map[string]any{"auction_id": "auction3", "amount": "115"},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "auction3", "user3", decimalEq{dec("115")}).
					Return(model.BidResult{}, fmt.Errorf("service: %w", &auctionerrors.BidTooLowError{MinAmount: dec("120")}))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "bid amount too low",
			validate: func(t *testing.T, resp map[string]any) {
				details := resp["details"].(map[string]any)
				require.Equal(t, "120", details["min_amount"])
			},
		},
		{
			name:        "bid_too_low_sub_cent_minimum",
			user:        "user9",
			requestBody: map[string]any{"auction_id": "auction9", "amount": "100"},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "auction9", "user9", decimalEq{dec("100")}).
					Return(model.BidResult{}, fmt.Errorf("service: %w", &auctionerrors.BidTooLowError{MinAmount: dec("100.004")}))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "bid amount too low",
			validate: func(t *testing.T, resp map[string]any) {
				details := resp["details"].(map[string]any)
				require.Equal(t, "100.004", details["min_amount"])
			},
		},
		{
			name:        "service_invalid_bid",
			user:        "",
			requestBody: map[string]any{"auction_id": "auction4", "amount": "1"},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "auction4", "", decimalEq{dec("1")}).
					Return(model.BidResult{}, auctionerrors.ErrInvalidBid)
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid bid details",
		},
		{
			name:        "service_self_bid",
			user:        "seller",
			requestBody: map[string]any{"auction_id": "auction5", "amount": "500"},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "auction5", "seller", decimalEq{dec("500")}).
					Return(model.BidResult{}, auctionerrors.ErrSelfBid)
			},
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "seller cannot bid on own auction",
		},
		{
			name:        "service_auction_closed",
			user:        "user6",
			requestBody: map[string]any{"auction_id": "auction6", "amount": "500"},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "auction6", "user6", decimalEq{dec("500")}).
					Return(model.BidResult{}, auctionerrors.ErrAuctionClosed)
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "auction is closed",
		},
		{
			name:        "service_not_found",
			user:        "user7",
			requestBody: map[string]any{"auction_id": "auction7", "amount": "500"},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "auction7", "user7", decimalEq{dec("500")}).
					Return(model.BidResult{}, auctionerrors.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "resource not found",
		},
		{
			name:        "service_generic_error",
			user:        "user8",
			requestBody: map[string]any{"auction_id": "auction8", "amount": "100"},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "auction8", "user8", decimalEq{dec("100")}).
					Return(model.BidResult{}, errors.New("database failure"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tc.mockSetup()

			w, resp := doJSON(t, router, http.MethodPost, "/bids", tc.user, tc.requestBody)

			require.Equal(t, tc.expectedStatus, w.Code)
			require.Contains(t, resp["message"], tc.expectedMsg)

			if tc.validate != nil {
				tc.validate(t, resp)
			}
		})
	}
}

// Test CreateAuctionHandler
func TestCreateAuctionHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auctions", handler.CreateAuctionHandler)

	end := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

	mockService.EXPECT().
		CreateAuction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, in bidding.CreateAuctionInput) (model.Auction, error) {
			require.Equal(t, "seller1", in.SellerID)
			require.Equal(t, "Camera", in.Title)
			require.True(t, dec("100").Equal(in.StartingPrice))
			require.True(t, dec("10").Equal(in.StepPrice))
			require.Nil(t, in.BuyNowPrice)
			require.True(t, end.Equal(in.EndTime))
			require.True(t, in.AutoExtend)
			return model.Auction{
				AuctionID:     "auction1",
				SellerID:      in.SellerID,
				Title:         in.Title,
				StartingPrice: in.StartingPrice,
				CurrentPrice:  in.StartingPrice,
				StepPrice:     in.StepPrice,
				EndTime:       in.EndTime,
				Status:        model.AuctionActive,
				AutoExtend:    true,
			}, nil
		})

	w, resp := doJSON(t, router, http.MethodPost, "/auctions", "seller1", map[string]any{
		"title":          "Camera",
		"starting_price": "100",
		"step_price":     "10",
		"end_time":       end.Format(time.RFC3339),
		"auto_extend":    true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	data := resp["data"].(map[string]any)
	require.Equal(t, "auction1", data["auction_id"])
	require.Equal(t, "110", data["min_next_bid"])
	require.Equal(t, "active", data["status"])

	mockService.EXPECT().
		CreateAuction(gomock.Any(), gomock.Any()).
		Return(model.Auction{}, auctionerrors.ErrInvalidAuction)
	w, resp = doJSON(t, router, http.MethodPost, "/auctions", "seller1", map[string]any{"title": "Camera"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, resp["message"], "invalid auction details")

	w, _ = doJSON(t, router, http.MethodPost, "/auctions", "seller1", map[string]any{"description": "no title"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

// Test GetBidsByAuctionHandler
func TestGetBidsByAuctionHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)

	// Initialize Gin in test mode
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/auctions/:auction_id/bids", handler.GetBidsByAuctionHandler)

	now := time.Now().UTC()

	tests := []struct {
		name           string
		auctionID      string
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
		expectedCount  int
	}{
		{
			name:      "success_multiple_bids",
			auctionID: "auction1",
			mockSetup: func() {
				mockService.EXPECT().
					GetBidsForAuction(gomock.Any(), "auction1").
					Return([]model.Bid{
						{BidID: uuid.NewString(), AuctionID: "auction1", BidderID: "user1", Amount: dec("100"), CreatedAt: now},
						{BidID: uuid.NewString(), AuctionID: "auction1", BidderID: "user2", Amount: dec("150"), CreatedAt: now},
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
			expectedCount:  2,
		},
		{
			name:      "service_no_bids_error",
			auctionID: "auction3",
			mockSetup: func() {
				mockService.EXPECT().
					GetBidsForAuction(gomock.Any(), "auction3").
					Return(nil, auctionerrors.ErrNoBids)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
			expectedCount:  0,
		},
		{
			name:      "unknown_auction",
			auctionID: "auction9",
			mockSetup: func() {
				mockService.EXPECT().
					GetBidsForAuction(gomock.Any(), "auction9").
					Return(nil, auctionerrors.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "resource not found",
		},
		{
			name:      "service_generic_error",
			auctionID: "auction4",
			mockSetup: func() {
				mockService.EXPECT().
					GetBidsForAuction(gomock.Any(), "auction4").
					Return(nil, errors.New("database failure"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
		{
			name:      "extremely_large_number_of_bids",
			auctionID: "auction6",
			mockSetup: func() {
				bids := make([]model.Bid, 1000)
				for i := range bids {
					bids[i] = model.Bid{
						BidID:     uuid.NewString(),
						AuctionID: "auction6",
						BidderID:  fmt.Sprintf("user%d", i),
						Amount:    decimal.NewFromInt(int64(i + 1)),
						CreatedAt: now,
					}
				}
				mockService.EXPECT().GetBidsForAuction(gomock.Any(), "auction6").Return(bids, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
			expectedCount:  1000,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tc.mockSetup()

			w, resp := doJSON(t, router, http.MethodGet, fmt.Sprintf("/auctions/%s/bids", tc.auctionID), "", nil)

			require.Equal(t, tc.expectedStatus, w.Code)
			require.Contains(t, resp["message"], tc.expectedMsg)

			if w.Code == http.StatusOK {
				require.Len(t, resp["data"].([]any), tc.expectedCount)
			}
		})
	}
}

// Test GetWinningBidHandler
func TestGetWinningBidHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/auctions/:auction_id/winning", handler.GetWinningBidHandler)

	now := time.Now().UTC()

	tests := []struct {
		name           string
		auctionID      string
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:      "success_winning_bid",
			auctionID: "auction1",
			mockSetup: func() {
				mockService.EXPECT().
					GetWinningBid(gomock.Any(), "auction1").
					Return(model.Bid{BidID: uuid.NewString(), AuctionID: "auction1", BidderID: "user1", Amount: dec("150"), CreatedAt: now}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "winning bid retrieved successfully",
		},
		{
			name:      "no_winning_bid",
			auctionID: "auction2",
			mockSetup: func() {
				mockService.EXPECT().
					GetWinningBid(gomock.Any(), "auction2").
					Return(model.Bid{}, auctionerrors.ErrNoBids)
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "no winning bid found",
		},
		{
			name:      "service_error_generic",
			auctionID: "auction3",
			mockSetup: func() {
				mockService.EXPECT().
					GetWinningBid(gomock.Any(), "auction3").
					Return(model.Bid{}, errors.New("DB connection failed"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tc.mockSetup()

			w, resp := doJSON(t, router, http.MethodGet, fmt.Sprintf("/auctions/%s/winning", tc.auctionID), "", nil)
			require.Equal(t, tc.expectedStatus, w.Code)
			require.Contains(t, resp["message"], tc.expectedMsg)
		})
	}
}

// Test GetAuctionsByUserHandler
func TestGetAuctionsByUserHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/users/:user_id/auctions", handler.GetAuctionsByUserHandler)

	mockService.EXPECT().GetAuctionsByUser(gomock.Any(), "user1").
		Return([]model.Auction{{AuctionID: "auction1"}, {AuctionID: "auction2"}}, nil)
	w, resp := doJSON(t, router, http.MethodGet, "/users/user1/auctions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["data"].([]any), 2)

	mockService.EXPECT().GetAuctionsByUser(gomock.Any(), "user2").Return(nil, auctionerrors.ErrUserNoBids)
	w, resp = doJSON(t, router, http.MethodGet, "/users/user2/auctions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["data"].([]any), 0)

	mockService.EXPECT().GetAuctionsByUser(gomock.Any(), "user3").Return(nil, errors.New("timeout"))
	w, _ = doJSON(t, router, http.MethodGet, "/users/user3/auctions", "", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

// Test GetAuctionHandler, BanBidderHandler and ExtendEndTimeHandler
func TestAuctionManagementHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/auctions/:auction_id", handler.GetAuctionHandler)
	router.POST("/auctions/:auction_id/bans", handler.BanBidderHandler)
	router.PUT("/auctions/:auction_id/end-time", handler.ExtendEndTimeHandler)

	end := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

	mockService.EXPECT().GetAuction(gomock.Any(), "auction1").
		Return(model.Auction{AuctionID: "auction1", CurrentPrice: dec("120"), StepPrice: dec("10"), CurrentWinner: "user1"}, nil)
	w, resp := doJSON(t, router, http.MethodGet, "/auctions/auction1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "130", resp["data"].(map[string]any)["min_next_bid"])

	mockService.EXPECT().GetAuction(gomock.Any(), "missing").Return(model.Auction{}, auctionerrors.ErrNotFound)
	w, _ = doJSON(t, router, http.MethodGet, "/auctions/missing", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	mockService.EXPECT().BanBidder(gomock.Any(), "auction1", "seller", "troll").Return(nil)
	w, _ = doJSON(t, router, http.MethodPost, "/auctions/auction1/bans", "seller", map[string]any{"bidder_id": "troll"})
	require.Equal(t, http.StatusOK, w.Code)

	mockService.EXPECT().BanBidder(gomock.Any(), "auction1", "user1", "troll").Return(auctionerrors.ErrForbidden)
	w, _ = doJSON(t, router, http.MethodPost, "/auctions/auction1/bans", "user1", map[string]any{"bidder_id": "troll"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/auctions/auction1/bans", "seller", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	mockService.EXPECT().ExtendEndTime(gomock.Any(), "auction1", "seller", timeEq{end}).
		Return(model.Auction{AuctionID: "auction1", EndTime: end}, nil)
	w, _ = doJSON(t, router, http.MethodPut, "/auctions/auction1/end-time", "seller", map[string]any{"end_time": end.Format(time.RFC3339)})
	require.Equal(t, http.StatusOK, w.Code)

	mockService.EXPECT().ExtendEndTime(gomock.Any(), "auction1", "seller", gomock.Any()).
		Return(model.Auction{}, auctionerrors.ErrAuctionClosed)
	w, _ = doJSON(t, router, http.MethodPut, "/auctions/auction1/end-time", "seller", map[string]any{"end_time": end.Add(time.Hour).Format(time.RFC3339)})
	require.Equal(t, http.StatusConflict, w.Code)
}
