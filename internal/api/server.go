package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"marketlens/internal/aggregate"
	"marketlens/internal/collection"
	"marketlens/internal/correlate"
	"marketlens/internal/model"
	"marketlens/internal/retrieve"
)

// Analytics is the service surface the HTTP layer exposes.
type Analytics interface {
	TransfersByUser(ctx context.Context, addressUser string) ([]model.PersistedEvent, error)
	TransfersByCollection(ctx context.Context, collectionID string) ([]model.PersistedEvent, error)
	TopOwners(ctx context.Context, addressUser, collectionID string) (aggregate.Ranking, error)
	TopCollectors(ctx context.Context, addressUser, collectionID string) (aggregate.Ranking, error)
	AuctionEvents(ctx context.Context, collectionID, listingID, tokenID string) ([]model.PersistedEvent, error)
	BuyEvents(ctx context.Context, collectionID, listingID, tokenID string) ([]model.PersistedEvent, error)
	ClaimEvents(ctx context.Context, collectionID, claimConditionID string) ([]model.PersistedEvent, error)
	RevenueEvents(ctx context.Context, collectionID string) ([]model.PersistedEvent, error)
	RevenueByDate(ctx context.Context, collectionID string) (aggregate.DateBuckets, error)
	NativeBalance(ctx context.Context, address string) (*big.Int, error)
	LogsForAddress(ctx context.Context, address string, fromDate, toDate *time.Time, granularity string) ([]model.RawLog, error)
	TokenPurchaseLogs(ctx context.Context, addressUser string, fromDate, toDate *time.Time) ([]model.TokenTransfer, error)
	TokenSellLogs(ctx context.Context, addressUser string, fromDate, toDate *time.Time) ([]model.TokenTransfer, error)
	AssetTransfers(ctx context.Context, addressUser string, direction retrieve.Direction, withMetadata bool, order string) (model.AssetTransfersResponse, error)
	PlatformSales(ctx context.Context, addressUser string) (*correlate.PlatformSales, error)
	Collectors(ctx context.Context, contracts []string, fromDate, toDate *time.Time) (aggregate.Ranking, error)
	Buyers(ctx context.Context, contracts []string, fromDate, toDate *time.Time) (aggregate.Ranking, error)
}

// Server serves the analytics API over HTTP.
type Server struct {
	analytics Analytics
	logger    *zap.Logger
	timeout   time.Duration
	server    *http.Server
}

// NewServer creates a Server.
func NewServer(analytics Analytics, timeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		analytics: analytics,
		logger:    logger,
		timeout:   timeout,
	}
}

// Run serves requests until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, host string, port int) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      s.Router(),
		ReadTimeout:  s.timeout,
		WriteTimeout: s.timeout,
	}

	s.logger.Info("api server start", zap.String("addr", s.server.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/v1/analytics", func(r chi.Router) {
		r.Get("/transactions/user/{address}", s.handleTransfersByUser)
		r.Get("/transactions/collection/{collectionID}", s.handleTransfersByCollection)
		r.Get("/top-owners/{address}", s.handleTopOwners)
		r.Get("/top-collectors/{address}", s.handleTopCollectors)
		r.Get("/auctions/{collectionID}", s.handleAuctionEvents)
		r.Get("/buys/{collectionID}", s.handleBuyEvents)
		r.Get("/claims/{collectionID}", s.handleClaimEvents)
		r.Get("/sales/{collectionID}", s.handleRevenueEvents)
		r.Get("/sales/{collectionID}/by-date", s.handleRevenueByDate)
		r.Get("/balance/{address}", s.handleNativeBalance)
		r.Get("/logs/{address}", s.handleLogsForAddress)
		r.Get("/token-purchases/{address}", s.handleTokenPurchases)
		r.Get("/token-sells/{address}", s.handleTokenSells)
		r.Get("/asset-transfers/{address}", s.handleAssetTransfers)
		r.Get("/platform-sales/{address}", s.handlePlatformSales)
		r.Get("/collectors", s.handleCollectors)
		r.Get("/buyers", s.handleBuyers)
	})

	return r
}

func (s *Server) handleTransfersByUser(w http.ResponseWriter, r *http.Request) {
	events, err := s.analytics.TransfersByUser(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.respondServiceError(w, r, err, "could not load user transfers")
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}

func (s *Server) handleTransfersByCollection(w http.ResponseWriter, r *http.Request) {
	events, err := s.analytics.TransfersByCollection(r.Context(), chi.URLParam(r, "collectionID"))
	if err != nil {
		s.respondServiceError(w, r, err, "could not load collection transfers")
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}

func (s *Server) handleTopOwners(w http.ResponseWriter, r *http.Request) {
	ranking, err := s.analytics.TopOwners(r.Context(), chi.URLParam(r, "address"), r.URL.Query().Get("collection"))
	if err != nil {
		s.respondServiceError(w, r, err, "could not rank owners")
		return
	}
	respondWithJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleTopCollectors(w http.ResponseWriter, r *http.Request) {
	ranking, err := s.analytics.TopCollectors(r.Context(), chi.URLParam(r, "address"), r.URL.Query().Get("collection"))
	if err != nil {
		s.respondServiceError(w, r, err, "could not rank collectors")
		return
	}
	respondWithJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleAuctionEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	events, err := s.analytics.AuctionEvents(r.Context(), chi.URLParam(r, "collectionID"), query.Get("listing_id"), query.Get("token_id"))
	if err != nil {
		s.respondServiceError(w, r, err, "could not load auction events")
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}

func (s *Server) handleBuyEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	events, err := s.analytics.BuyEvents(r.Context(), chi.URLParam(r, "collectionID"), query.Get("listing_id"), query.Get("token_id"))
	if err != nil {
		s.respondServiceError(w, r, err, "could not load buy events")
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}

func (s *Server) handleClaimEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.analytics.ClaimEvents(r.Context(), chi.URLParam(r, "collectionID"), r.URL.Query().Get("claim_condition"))
	if err != nil {
		s.respondServiceError(w, r, err, "could not load claim events")
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}

func (s *Server) handleRevenueEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.analytics.RevenueEvents(r.Context(), chi.URLParam(r, "collectionID"))
	if err != nil {
		s.respondServiceError(w, r, err, "could not load sales")
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}

func (s *Server) handleRevenueByDate(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.analytics.RevenueByDate(r.Context(), chi.URLParam(r, "collectionID"))
	if err != nil {
		s.respondServiceError(w, r, err, "could not group sales by date")
		return
	}
	respondWithJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleNativeBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.analytics.NativeBalance(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.respondServiceError(w, r, err, "could not read balance")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"balance": balance.String()})
}

func (s *Server) handleLogsForAddress(w http.ResponseWriter, r *http.Request) {
	fromDate, toDate, err := dateWindow(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	logs, err := s.analytics.LogsForAddress(r.Context(), chi.URLParam(r, "address"), fromDate, toDate, r.URL.Query().Get("granularity"))
	if err != nil {
		s.respondServiceError(w, r, err, "could not load logs")
		return
	}
	respondWithJSON(w, http.StatusOK, logs)
}

func (s *Server) handleTokenPurchases(w http.ResponseWriter, r *http.Request) {
	fromDate, toDate, err := dateWindow(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	transfers, err := s.analytics.TokenPurchaseLogs(r.Context(), chi.URLParam(r, "address"), fromDate, toDate)
	if err != nil {
		s.respondServiceError(w, r, err, "could not load token purchases")
		return
	}
	respondWithJSON(w, http.StatusOK, transfers)
}

func (s *Server) handleTokenSells(w http.ResponseWriter, r *http.Request) {
	fromDate, toDate, err := dateWindow(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	transfers, err := s.analytics.TokenSellLogs(r.Context(), chi.URLParam(r, "address"), fromDate, toDate)
	if err != nil {
		s.respondServiceError(w, r, err, "could not load token sells")
		return
	}
	respondWithJSON(w, http.StatusOK, transfers)
}

func (s *Server) handleAssetTransfers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	direction := retrieve.DirectionPurchase
	if query.Get("direction") == "sale" {
		direction = retrieve.DirectionSale
	}
	withMetadata := query.Get("with_metadata") != "false"
	order := query.Get("order")
	if order == "" {
		order = model.OrderAscending
	}
	transfers, err := s.analytics.AssetTransfers(r.Context(), chi.URLParam(r, "address"), direction, withMetadata, order)
	if err != nil {
		s.respondServiceError(w, r, err, "could not load asset transfers")
		return
	}
	respondWithJSON(w, http.StatusOK, transfers)
}

func (s *Server) handlePlatformSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.analytics.PlatformSales(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.respondServiceError(w, r, err, "could not load platform sales")
		return
	}
	respondWithJSON(w, http.StatusOK, sales)
}

func (s *Server) handleCollectors(w http.ResponseWriter, r *http.Request) {
	contracts, fromDate, toDate, err := contractWindow(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	ranking, err := s.analytics.Collectors(r.Context(), contracts, fromDate, toDate)
	if err != nil {
		s.respondServiceError(w, r, err, "could not rank collectors")
		return
	}
	respondWithJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleBuyers(w http.ResponseWriter, r *http.Request) {
	contracts, fromDate, toDate, err := contractWindow(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	ranking, err := s.analytics.Buyers(r.Context(), contracts, fromDate, toDate)
	if err != nil {
		s.respondServiceError(w, r, err, "could not rank buyers")
		return
	}
	respondWithJSON(w, http.StatusOK, ranking)
}

func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, collection.ErrCollectionNotFound) {
		respondWithError(w, http.StatusNotFound, "collection not found")
		return
	}
	s.logger.Error(message,
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("remote_addr", r.RemoteAddr))
	respondWithError(w, http.StatusInternalServerError, message)
}

// dateWindow parses the optional from/to query parameters. Dates are accepted
// as RFC3339 or as a bare 2006-01-02 day.
func dateWindow(r *http.Request) (*time.Time, *time.Time, error) {
	fromDate, err := dateParam(r, "from")
	if err != nil {
		return nil, nil, err
	}
	toDate, err := dateParam(r, "to")
	if err != nil {
		return nil, nil, err
	}
	return fromDate, toDate, nil
}

func dateParam(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %q date parameter: %s", key, raw)
	}
	return &parsed, nil
}

func contractWindow(r *http.Request) ([]string, *time.Time, *time.Time, error) {
	raw := r.URL.Query().Get("contracts")
	if strings.TrimSpace(raw) == "" {
		return nil, nil, nil, fmt.Errorf("missing query parameter: contracts")
	}
	var contracts []string
	for _, contract := range strings.Split(raw, ",") {
		contract = strings.TrimSpace(contract)
		if contract != "" {
			contracts = append(contracts, contract)
		}
	}
	fromDate, toDate, err := dateWindow(r)
	if err != nil {
		return nil, nil, nil, err
	}
	return contracts, fromDate, toDate, nil
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
