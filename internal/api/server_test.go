package api

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketlens/internal/aggregate"
	"marketlens/internal/collection"
	"marketlens/internal/correlate"
	"marketlens/internal/model"
	"marketlens/internal/retrieve"
)

type stubAnalytics struct {
	ranking       aggregate.Ranking
	lastUser      string
	lastDirection retrieve.Direction
	lastContracts []string
	lastFrom      *time.Time
	knownCols     map[string]bool
}

func (s *stubAnalytics) TransfersByUser(ctx context.Context, addressUser string) ([]model.PersistedEvent, error) {
	s.lastUser = addressUser
	return []model.PersistedEvent{{ID: 1, Name: model.NameTransfered}}, nil
}

func (s *stubAnalytics) TransfersByCollection(ctx context.Context, collectionID string) ([]model.PersistedEvent, error) {
	if !s.knownCols[collectionID] {
		return nil, collection.ErrCollectionNotFound
	}
	return nil, nil
}

func (s *stubAnalytics) TopOwners(ctx context.Context, addressUser, collectionID string) (aggregate.Ranking, error) {
	s.lastUser = addressUser
	return s.ranking, nil
}

func (s *stubAnalytics) TopCollectors(ctx context.Context, addressUser, collectionID string) (aggregate.Ranking, error) {
	return s.ranking, nil
}

func (s *stubAnalytics) AuctionEvents(ctx context.Context, collectionID, listingID, tokenID string) ([]model.PersistedEvent, error) {
	return nil, nil
}

func (s *stubAnalytics) BuyEvents(ctx context.Context, collectionID, listingID, tokenID string) ([]model.PersistedEvent, error) {
	return nil, nil
}

func (s *stubAnalytics) ClaimEvents(ctx context.Context, collectionID, claimConditionID string) ([]model.PersistedEvent, error) {
	return nil, nil
}

func (s *stubAnalytics) RevenueEvents(ctx context.Context, collectionID string) ([]model.PersistedEvent, error) {
	return nil, nil
}

func (s *stubAnalytics) RevenueByDate(ctx context.Context, collectionID string) (aggregate.DateBuckets, error) {
	return aggregate.DateBuckets{}, nil
}

func (s *stubAnalytics) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	return big.NewInt(42), nil
}

func (s *stubAnalytics) LogsForAddress(ctx context.Context, address string, fromDate, toDate *time.Time, granularity string) ([]model.RawLog, error) {
	s.lastFrom = fromDate
	return nil, nil
}

func (s *stubAnalytics) TokenPurchaseLogs(ctx context.Context, addressUser string, fromDate, toDate *time.Time) ([]model.TokenTransfer, error) {
	return nil, nil
}

func (s *stubAnalytics) TokenSellLogs(ctx context.Context, addressUser string, fromDate, toDate *time.Time) ([]model.TokenTransfer, error) {
	return nil, nil
}

func (s *stubAnalytics) AssetTransfers(ctx context.Context, addressUser string, direction retrieve.Direction, withMetadata bool, order string) (model.AssetTransfersResponse, error) {
	s.lastDirection = direction
	return model.AssetTransfersResponse{}, nil
}

func (s *stubAnalytics) PlatformSales(ctx context.Context, addressUser string) (*correlate.PlatformSales, error) {
	return &correlate.PlatformSales{}, nil
}

func (s *stubAnalytics) Collectors(ctx context.Context, contracts []string, fromDate, toDate *time.Time) (aggregate.Ranking, error) {
	s.lastContracts = contracts
	return s.ranking, nil
}

func (s *stubAnalytics) Buyers(ctx context.Context, contracts []string, fromDate, toDate *time.Time) (aggregate.Ranking, error) {
	s.lastContracts = contracts
	return s.ranking, nil
}

func serveRequest(t *testing.T, stub *stubAnalytics, path string) *httptest.ResponseRecorder {
	t.Helper()
	server := NewServer(stub, time.Second, nil)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, path, nil)
	server.Router().ServeHTTP(recorder, request)
	return recorder
}

func TestTopOwnersRoute(t *testing.T) {
	stub := &stubAnalytics{ranking: aggregate.Ranking{{Address: "0xA", Amount: big.NewInt(5)}}}

	recorder := serveRequest(t, stub, "/api/v1/analytics/top-owners/0xuser")
	if recorder.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", recorder.Code)
	}
	if stub.lastUser != "0xuser" {
		t.Fatalf("got user %q, want 0xuser", stub.lastUser)
	}
	if got := recorder.Body.String(); got != `{"0xA":5}` {
		t.Fatalf("got body %s, want ordered ranking object", got)
	}
}

func TestUnknownCollectionIs404(t *testing.T) {
	stub := &stubAnalytics{knownCols: map[string]bool{}}

	recorder := serveRequest(t, stub, "/api/v1/analytics/transactions/collection/missing")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", recorder.Code)
	}
}

func TestNativeBalanceRoute(t *testing.T) {
	recorder := serveRequest(t, &stubAnalytics{}, "/api/v1/analytics/balance/0xuser")
	if recorder.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", recorder.Code)
	}
	if got := recorder.Body.String(); got != `{"balance":"42"}` {
		t.Fatalf("got body %s, want balance 42", got)
	}
}

func TestInvalidDateIs400(t *testing.T) {
	recorder := serveRequest(t, &stubAnalytics{}, "/api/v1/analytics/logs/0xuser?from=yesterday")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", recorder.Code)
	}
}

func TestLogsDateParsing(t *testing.T) {
	stub := &stubAnalytics{}

	recorder := serveRequest(t, stub, "/api/v1/analytics/logs/0xuser?from=2024-05-01")
	if recorder.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", recorder.Code)
	}
	if stub.lastFrom == nil || !stub.lastFrom.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got from date %v, want 2024-05-01", stub.lastFrom)
	}
}

func TestCollectorsRequiresContracts(t *testing.T) {
	recorder := serveRequest(t, &stubAnalytics{}, "/api/v1/analytics/collectors")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", recorder.Code)
	}
}

func TestCollectorsSplitsContracts(t *testing.T) {
	stub := &stubAnalytics{ranking: aggregate.Ranking{}}

	recorder := serveRequest(t, stub, "/api/v1/analytics/collectors?contracts=0xa,0xb")
	if recorder.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", recorder.Code)
	}
	if len(stub.lastContracts) != 2 || stub.lastContracts[0] != "0xa" || stub.lastContracts[1] != "0xb" {
		t.Fatalf("got contracts %v, want [0xa 0xb]", stub.lastContracts)
	}
}

func TestAssetTransfersSaleDirection(t *testing.T) {
	stub := &stubAnalytics{}

	recorder := serveRequest(t, stub, "/api/v1/analytics/asset-transfers/0xuser?direction=sale")
	if recorder.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", recorder.Code)
	}
	if stub.lastDirection != retrieve.DirectionSale {
		t.Fatalf("got direction %v, want sale", stub.lastDirection)
	}
}
