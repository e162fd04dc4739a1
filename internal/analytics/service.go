package analytics

import (
	"context"
	"math/big"
	"time"

	"go.uber.org/zap"

	"marketlens/internal/aggregate"
	"marketlens/internal/correlate"
	"marketlens/internal/decode"
	"marketlens/internal/model"
	"marketlens/internal/retrieve"
	"marketlens/internal/store"
)

// EventStore reads persisted marketplace events.
type EventStore interface {
	Find(ctx context.Context, filter store.EventFilter) ([]model.PersistedEvent, error)
}

// CollectionResolver maps collection ids to contract addresses.
type CollectionResolver interface {
	Resolve(ctx context.Context, collectionID string) (string, error)
}

// LogSource is the retrieval surface the service queries for on-chain activity.
type LogSource interface {
	LogsForAddressInRange(ctx context.Context, address string, fromDate, toDate *time.Time, granularity string) ([]model.RawLog, error)
	PurchaseOrSaleLogs(ctx context.Context, addressUser string, fromDate, toDate *time.Time, direction retrieve.Direction) ([]model.TokenTransfer, error)
	AssetTransfersFromOrToUser(ctx context.Context, addressUser string, direction retrieve.Direction, withMetadata bool, order string) (model.AssetTransfersResponse, error)
}

// SaleScanner correlates platform sales for a user.
type SaleScanner interface {
	SalesForUser(ctx context.Context, addressUser string, withMetadata bool, order string) (*correlate.PlatformSales, error)
}

// ChainReader covers the direct node reads the service performs itself.
type ChainReader interface {
	Logs(ctx context.Context, query model.LogQuery) ([]model.RawLog, error)
	BalanceAt(ctx context.Context, address string) (*big.Int, error)
}

// RangeResolver converts date windows into block ranges.
type RangeResolver interface {
	RangeForDates(ctx context.Context, fromDate, toDate *time.Time) model.BlockRange
}

// Service answers marketplace analytics queries over persisted events and
// live chain data.
type Service struct {
	events      EventStore
	collections CollectionResolver
	logs        LogSource
	sales       SaleScanner
	chain       ChainReader
	resolver    RangeResolver
	logger      *zap.Logger
}

// NewService creates a Service.
func NewService(events EventStore, collections CollectionResolver, logs LogSource, sales SaleScanner, chain ChainReader, resolver RangeResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		events:      events,
		collections: collections,
		logs:        logs,
		sales:       sales,
		chain:       chain,
		resolver:    resolver,
		logger:      logger,
	}
}

// TransfersByUser returns the persisted transfer events for a user.
func (s *Service) TransfersByUser(ctx context.Context, addressUser string) ([]model.PersistedEvent, error) {
	return s.events.Find(ctx, store.EventFilter{
		UserID: addressUser,
		Names:  []string{model.NameTransfered},
	})
}

// TransfersByCollection returns the persisted transfer events for a collection.
func (s *Service) TransfersByCollection(ctx context.Context, collectionID string) ([]model.PersistedEvent, error) {
	contract, err := s.collections.Resolve(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	return s.events.Find(ctx, store.EventFilter{
		AddressContract: contract,
		Names:           []string{model.NameTransfered},
	})
}

// TopOwners ranks buyers of a user's drops by quantity acquired. An empty
// collectionID ranks across all collections.
func (s *Service) TopOwners(ctx context.Context, addressUser, collectionID string) (aggregate.Ranking, error) {
	events, err := s.salesAndAuctions(ctx, addressUser, collectionID)
	if err != nil {
		return nil, err
	}
	return aggregate.FoldPersisted(events, aggregate.QuantityOwned).Ranking(), nil
}

// TopCollectors ranks buyers of a user's drops by value spent. An empty
// collectionID ranks across all collections.
func (s *Service) TopCollectors(ctx context.Context, addressUser, collectionID string) (aggregate.Ranking, error) {
	events, err := s.salesAndAuctions(ctx, addressUser, collectionID)
	if err != nil {
		return nil, err
	}
	return aggregate.FoldPersisted(events, aggregate.ValueCollected).Ranking(), nil
}

// AuctionEvents returns the closed auctions of a collection, optionally
// narrowed to a listing and token.
func (s *Service) AuctionEvents(ctx context.Context, collectionID, listingID, tokenID string) ([]model.PersistedEvent, error) {
	return s.collectionEvents(ctx, collectionID, model.NameEndAuction, map[string]string{
		"_listingId": listingID,
		"tokenId":    tokenID,
	})
}

// BuyEvents returns the direct purchases of a collection, optionally narrowed
// to a listing and token.
func (s *Service) BuyEvents(ctx context.Context, collectionID, listingID, tokenID string) ([]model.PersistedEvent, error) {
	return s.collectionEvents(ctx, collectionID, model.NameBuy, map[string]string{
		"listingId": listingID,
		"tokenId":   tokenID,
	})
}

// ClaimEvents returns the claims of a collection, optionally narrowed to one
// claim condition.
func (s *Service) ClaimEvents(ctx context.Context, collectionID, claimConditionID string) ([]model.PersistedEvent, error) {
	return s.collectionEvents(ctx, collectionID, model.NameTokensClaimed, map[string]string{
		"claimConditionIndex": claimConditionID,
	})
}

// RevenueEvents returns every revenue-bearing event of a collection.
func (s *Service) RevenueEvents(ctx context.Context, collectionID string) ([]model.PersistedEvent, error) {
	return s.salesAndAuctions(ctx, "", collectionID)
}

// RevenueByDate groups a collection's revenue events into per-date
// claim/buy/auction buckets.
func (s *Service) RevenueByDate(ctx context.Context, collectionID string) (aggregate.DateBuckets, error) {
	events, err := s.RevenueEvents(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	return aggregate.BucketByDateAndKind(events), nil
}

// NativeBalance returns the native coin balance of an address in wei.
func (s *Service) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	return s.chain.BalanceAt(ctx, address)
}

// LogsForAddress returns the raw transfer logs touching an address within a
// date window.
func (s *Service) LogsForAddress(ctx context.Context, address string, fromDate, toDate *time.Time, granularity string) ([]model.RawLog, error) {
	return s.logs.LogsForAddressInRange(ctx, address, fromDate, toDate, granularity)
}

// TokenPurchaseLogs returns the paid token transfers received by a user.
func (s *Service) TokenPurchaseLogs(ctx context.Context, addressUser string, fromDate, toDate *time.Time) ([]model.TokenTransfer, error) {
	return s.logs.PurchaseOrSaleLogs(ctx, addressUser, fromDate, toDate, retrieve.DirectionPurchase)
}

// TokenSellLogs returns the paid token transfers sent by a user.
func (s *Service) TokenSellLogs(ctx context.Context, addressUser string, fromDate, toDate *time.Time) ([]model.TokenTransfer, error) {
	return s.logs.PurchaseOrSaleLogs(ctx, addressUser, fromDate, toDate, retrieve.DirectionSale)
}

// AssetTransfers returns the token movements from or to a user, newest last.
func (s *Service) AssetTransfers(ctx context.Context, addressUser string, direction retrieve.Direction, withMetadata bool, order string) (model.AssetTransfersResponse, error) {
	return s.logs.AssetTransfersFromOrToUser(ctx, addressUser, direction, withMetadata, order)
}

// PlatformSales returns a user's sales grouped by marketplace platform.
func (s *Service) PlatformSales(ctx context.Context, addressUser string) (*correlate.PlatformSales, error) {
	return s.sales.SalesForUser(ctx, addressUser, true, "asc")
}

// Collectors ranks the wallets interacting with the given contracts by
// quantity of tokens acquired within the date window.
func (s *Service) Collectors(ctx context.Context, contracts []string, fromDate, toDate *time.Time) (aggregate.Ranking, error) {
	events, err := s.marketplaceEvents(ctx, contracts, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return aggregate.FoldDecoded(events, aggregate.DecodedQuantity).Ranking(), nil
}

// Buyers ranks the wallets interacting with the given contracts by value
// spent within the date window.
func (s *Service) Buyers(ctx context.Context, contracts []string, fromDate, toDate *time.Time) (aggregate.Ranking, error) {
	events, err := s.marketplaceEvents(ctx, contracts, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return aggregate.FoldDecoded(events, aggregate.DecodedValue).Ranking(), nil
}

// salesAndAuctions fetches the claim, buy, and auction events for a user
// and/or collection in one query.
func (s *Service) salesAndAuctions(ctx context.Context, addressUser, collectionID string) ([]model.PersistedEvent, error) {
	filter := store.EventFilter{
		UserID: addressUser,
		Names:  []string{model.NameTokensClaimed, model.NameBuy, model.NameEndAuction},
	}
	if collectionID != "" {
		contract, err := s.collections.Resolve(ctx, collectionID)
		if err != nil {
			return nil, err
		}
		filter.AddressContract = contract
	}
	return s.events.Find(ctx, filter)
}

// collectionEvents fetches one event name for a collection, applying only the
// data filters with a value.
func (s *Service) collectionEvents(ctx context.Context, collectionID, name string, dataEq map[string]string) ([]model.PersistedEvent, error) {
	contract, err := s.collections.Resolve(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	filter := store.EventFilter{
		AddressContract: contract,
		Names:           []string{name},
	}
	for key, value := range dataEq {
		if value == "" {
			continue
		}
		if filter.DataEq == nil {
			filter.DataEq = map[string]string{}
		}
		filter.DataEq[key] = value
	}
	return s.events.Find(ctx, filter)
}

// marketplaceEvents pulls and decodes the marketplace logs of each contract
// within the date window. Unrecognized and malformed logs are skipped.
func (s *Service) marketplaceEvents(ctx context.Context, contracts []string, fromDate, toDate *time.Time) ([]*model.NormalizedEvent, error) {
	blocks := s.resolver.RangeForDates(ctx, fromDate, toDate)
	var events []*model.NormalizedEvent
	for _, contract := range contracts {
		logs, err := s.chain.Logs(ctx, model.LogQuery{
			FromBlock: blocks.From,
			ToBlock:   blocks.To,
			Address:   contract,
			Topics:    [][]string{decode.InternalTopics()},
		})
		if err != nil {
			return nil, err
		}
		for _, log := range logs {
			outcome := decode.Internal(log)
			if outcome.Status != decode.StatusDecoded {
				s.logger.Debug("skipping undecodable marketplace log",
					zap.String("tx", log.TxHash),
					zap.Int("status", int(outcome.Status)))
				continue
			}
			events = append(events, outcome.Event)
		}
	}
	return events, nil
}
