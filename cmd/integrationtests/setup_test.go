package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/clock"
	"auction-engine/internal/notify"
	orders "auction-engine/internal/orderService"
	"auction-engine/internal/repository"
	"auction-engine/internal/server"
	"auction-engine/internal/sweeper"
	"auction-engine/services/bidding/helpers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

const adminUser = "ops"

// TestEnv wires the full HTTP stack over an in-memory ledger and a manual clock.
type TestEnv struct {
	Router   *gin.Engine
	Clock    *clock.Manual
	Repo     *repository.MemoryRepo
	Recorder *notify.Recorder
}

// SetupTestEnv initializes the router with in-memory repository for integration testing.
func SetupTestEnv(orderOpts ...orders.Option) *TestEnv {
	gin.SetMode(gin.TestMode)

	env := &TestEnv{
		Clock:    clock.NewManual(testStart),
		Repo:     repository.NewMemoryRepo(),
		Recorder: &notify.Recorder{},
	}

	biddingSvc := bidding.NewBiddingService(env.Repo,
		bidding.WithClock(env.Clock),
		bidding.WithNotifier(env.Recorder),
	)
	sw := sweeper.New(env.Repo,
		sweeper.WithClock(env.Clock),
		sweeper.WithNotifier(env.Recorder),
	)
	base := []orders.Option{orders.WithClock(env.Clock), orders.WithNotifier(env.Recorder)}
	orderSvc := orders.NewOrderService(env.Repo, env.Repo, env.Repo, sw, append(base, orderOpts...)...)

	env.Router = server.SetupRouter(biddingSvc, orderSvc, sw, []string{adminUser})
	return env
}

// ExecuteRequestAndParse executes an HTTP request as user and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url, user string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(helpers.UserIDHeader, user)
	}
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}

// Data returns the response payload as an object
func Data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response has no object payload: %v", resp)
	return data
}

// CreateAuction lists an auction ending after d and returns its ID
func (e *TestEnv) CreateAuction(t *testing.T, seller string, d time.Duration, autoExtend bool) string {
	t.Helper()

	resp, w := ExecuteRequestAndParse(t, e.Router, "POST", "/auctions", seller, map[string]any{
		"title":          "Vintage camera",
		"starting_price": "100",
		"step_price":     "10",
		"end_time":       e.Clock.Now().Add(d).Format(time.RFC3339),
		"auto_extend":    autoExtend,
	})
	require.Equal(t, 201, w.Code, "create auction: %v", resp)
	return Data(t, resp)["auction_id"].(string)
}

// Bid places a bid and returns the response
func (e *TestEnv) Bid(t *testing.T, auctionID, bidder, amount string) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	return ExecuteRequestAndParse(t, e.Router, "POST", "/bids", bidder, map[string]any{
		"auction_id": auctionID,
		"amount":     amount,
	})
}

// Sweep runs one expiry pass and returns the number of finalized auctions
func (e *TestEnv) Sweep(t *testing.T) int {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, e.Router, "POST", "/admin/sweep", adminUser, nil)
	require.Equal(t, 200, w.Code)
	return int(Data(t, resp)["finalized"].(float64))
}
