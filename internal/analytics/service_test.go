package analytics

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"marketlens/internal/aggregate"
	"marketlens/internal/collection"
	"marketlens/internal/correlate"
	"marketlens/internal/decode"
	"marketlens/internal/model"
	"marketlens/internal/retrieve"
	"marketlens/internal/store"
)

type fakeStore struct {
	events     []model.PersistedEvent
	lastFilter store.EventFilter
	err        error
}

func (f *fakeStore) Find(ctx context.Context, filter store.EventFilter) ([]model.PersistedEvent, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

type fakeCollections struct {
	contracts map[string]string
}

func (f *fakeCollections) Resolve(ctx context.Context, collectionID string) (string, error) {
	contract, ok := f.contracts[collectionID]
	if !ok {
		return "", collection.ErrCollectionNotFound
	}
	return contract, nil
}

type fakeLogs struct {
	lastDirection retrieve.Direction
	transfers     []model.TokenTransfer
}

func (f *fakeLogs) LogsForAddressInRange(ctx context.Context, address string, fromDate, toDate *time.Time, granularity string) ([]model.RawLog, error) {
	return nil, nil
}

func (f *fakeLogs) PurchaseOrSaleLogs(ctx context.Context, addressUser string, fromDate, toDate *time.Time, direction retrieve.Direction) ([]model.TokenTransfer, error) {
	f.lastDirection = direction
	return f.transfers, nil
}

func (f *fakeLogs) AssetTransfersFromOrToUser(ctx context.Context, addressUser string, direction retrieve.Direction, withMetadata bool, order string) (model.AssetTransfersResponse, error) {
	f.lastDirection = direction
	return model.AssetTransfersResponse{}, nil
}

type fakeSales struct {
	lastUser     string
	withMetadata bool
	order        string
}

func (f *fakeSales) SalesForUser(ctx context.Context, addressUser string, withMetadata bool, order string) (*correlate.PlatformSales, error) {
	f.lastUser = addressUser
	f.withMetadata = withMetadata
	f.order = order
	return &correlate.PlatformSales{}, nil
}

type fakeChain struct {
	logsByContract map[string][]model.RawLog
	balance        *big.Int
	lastQuery      model.LogQuery
}

func (f *fakeChain) Logs(ctx context.Context, query model.LogQuery) ([]model.RawLog, error) {
	f.lastQuery = query
	return f.logsByContract[query.Address], nil
}

func (f *fakeChain) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	return f.balance, nil
}

type fakeResolver struct{}

func (fakeResolver) RangeForDates(ctx context.Context, fromDate, toDate *time.Time) model.BlockRange {
	return model.BlockRange{From: model.BlockEarliest, To: model.BlockLatest}
}

func newTestService(events *fakeStore, chain *fakeChain) (*Service, *fakeLogs, *fakeSales) {
	logs := &fakeLogs{}
	sales := &fakeSales{}
	collections := &fakeCollections{contracts: map[string]string{"col-1": "0xcontract"}}
	svc := NewService(events, collections, logs, sales, chain, fakeResolver{}, nil)
	return svc, logs, sales
}

func TestTransfersByUserFilter(t *testing.T) {
	events := &fakeStore{events: []model.PersistedEvent{{ID: 1, Name: model.NameTransfered}}}
	svc, _, _ := newTestService(events, &fakeChain{})

	got, err := svc.TransfersByUser(context.Background(), "0xuser")
	if err != nil {
		t.Fatalf("transfers by user: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if events.lastFilter.UserID != "0xuser" {
		t.Fatalf("got user filter %q, want 0xuser", events.lastFilter.UserID)
	}
	if len(events.lastFilter.Names) != 1 || events.lastFilter.Names[0] != model.NameTransfered {
		t.Fatalf("got name filter %v, want [%s]", events.lastFilter.Names, model.NameTransfered)
	}
}

func TestTopOwnersQueriesSalesAndAuctions(t *testing.T) {
	events := &fakeStore{events: []model.PersistedEvent{
		{Name: model.NameTokensClaimed, Data: map[string]string{"claimer": "0xA", "quantityClaimed": "3"}},
		{Name: model.NameBuy, Data: map[string]string{"addressBuyer": "0xA", "quantity": "2", "value": "10"}},
		{Name: model.NameEndAuction, Data: map[string]string{"lastBidder": "0xB", "quantity": "4", "lastBid": "20"}},
	}}
	svc, _, _ := newTestService(events, &fakeChain{})

	ranking, err := svc.TopOwners(context.Background(), "0xuser", "col-1")
	if err != nil {
		t.Fatalf("top owners: %v", err)
	}
	if events.lastFilter.AddressContract != "0xcontract" {
		t.Fatalf("got contract filter %q, want 0xcontract", events.lastFilter.AddressContract)
	}
	if len(events.lastFilter.Names) != 3 {
		t.Fatalf("got %d event names, want 3", len(events.lastFilter.Names))
	}
	if len(ranking) != 2 {
		t.Fatalf("got %d ranked addresses, want 2", len(ranking))
	}
	if ranking[0].Address != "0xA" || ranking[0].Amount.Int64() != 5 {
		t.Fatalf("got top owner %s=%s, want 0xA=5", ranking[0].Address, ranking[0].Amount)
	}
}

func TestTopCollectorsUnknownCollection(t *testing.T) {
	svc, _, _ := newTestService(&fakeStore{}, &fakeChain{})

	_, err := svc.TopCollectors(context.Background(), "0xuser", "missing")
	if !errors.Is(err, collection.ErrCollectionNotFound) {
		t.Fatalf("got error %v, want ErrCollectionNotFound", err)
	}
}

func TestBuyEventsSkipsEmptyDataFilters(t *testing.T) {
	events := &fakeStore{}
	svc, _, _ := newTestService(events, &fakeChain{})

	if _, err := svc.BuyEvents(context.Background(), "col-1", "7", ""); err != nil {
		t.Fatalf("buy events: %v", err)
	}
	if got := events.lastFilter.DataEq["listingId"]; got != "7" {
		t.Fatalf("got listingId filter %q, want 7", got)
	}
	if _, ok := events.lastFilter.DataEq["tokenId"]; ok {
		t.Fatalf("empty tokenId must not be part of the filter: %v", events.lastFilter.DataEq)
	}
}

func TestRevenueByDateBuckets(t *testing.T) {
	events := &fakeStore{events: []model.PersistedEvent{
		{Name: model.NameTokensClaimed, CreatedAt: "2024-05-01", Data: map[string]string{}},
		{Name: model.NameBuy, CreatedAt: "2024-05-01", Data: map[string]string{}},
	}}
	svc, _, _ := newTestService(events, &fakeChain{})

	buckets, err := svc.RevenueByDate(context.Background(), "col-1")
	if err != nil {
		t.Fatalf("revenue by date: %v", err)
	}
	if len(buckets[aggregate.BucketClaim]["2024-05-01"]) != 1 {
		t.Fatalf("missing claim bucket for 2024-05-01: %v", buckets)
	}
	if len(buckets[aggregate.BucketBuy]["2024-05-01"]) != 1 {
		t.Fatalf("missing buy bucket for 2024-05-01: %v", buckets)
	}
	if len(buckets[aggregate.BucketAuction]) != 0 {
		t.Fatalf("auction bucket must stay empty: %v", buckets[aggregate.BucketAuction])
	}
}

func TestTokenLogsDirections(t *testing.T) {
	svc, logs, _ := newTestService(&fakeStore{}, &fakeChain{})

	if _, err := svc.TokenPurchaseLogs(context.Background(), "0xuser", nil, nil); err != nil {
		t.Fatalf("token purchase logs: %v", err)
	}
	if logs.lastDirection != retrieve.DirectionPurchase {
		t.Fatalf("got direction %v, want purchase", logs.lastDirection)
	}
	if _, err := svc.TokenSellLogs(context.Background(), "0xuser", nil, nil); err != nil {
		t.Fatalf("token sell logs: %v", err)
	}
	if logs.lastDirection != retrieve.DirectionSale {
		t.Fatalf("got direction %v, want sale", logs.lastDirection)
	}
}

func TestPlatformSalesDefaults(t *testing.T) {
	svc, _, sales := newTestService(&fakeStore{}, &fakeChain{})

	if _, err := svc.PlatformSales(context.Background(), "0xuser"); err != nil {
		t.Fatalf("platform sales: %v", err)
	}
	if sales.lastUser != "0xuser" {
		t.Fatalf("got user %q, want 0xuser", sales.lastUser)
	}
	if !sales.withMetadata || sales.order != "asc" {
		t.Fatalf("got withMetadata=%v order=%q, want true and asc", sales.withMetadata, sales.order)
	}
}

func claimLog(contract, actorTopic string) model.RawLog {
	word := func(hexDigits string) string {
		return strings.Repeat("0", 64-len(hexDigits)) + hexDigits
	}
	return model.RawLog{
		Address: contract,
		Topics: []string{
			decode.TopicClaimERC721,
			"0x" + word("1"),
			"0x" + word("2"),
			actorTopic,
		},
		Data:   "0x" + word("1") + word("5") + word("2"),
		TxHash: "0xtx",
	}
}

func TestCollectorsFoldsDecodedLogs(t *testing.T) {
	actor := "0x00000000000000000000000000000000000000aa"
	actorTopic := "0x000000000000000000000000" + actor[2:]
	chain := &fakeChain{logsByContract: map[string][]model.RawLog{
		"0xdrop": {claimLog("0xdrop", actorTopic)},
	}}
	svc, _, _ := newTestService(&fakeStore{}, chain)

	ranking, err := svc.Collectors(context.Background(), []string{"0xdrop"}, nil, nil)
	if err != nil {
		t.Fatalf("collectors: %v", err)
	}
	if len(chain.lastQuery.Topics) != 1 || len(chain.lastQuery.Topics[0]) != 5 {
		t.Fatalf("got topic filter %v, want the five marketplace signatures", chain.lastQuery.Topics)
	}
	if chain.lastQuery.FromBlock != model.BlockEarliest || chain.lastQuery.ToBlock != model.BlockLatest {
		t.Fatalf("got range %s..%s, want sentinels", chain.lastQuery.FromBlock, chain.lastQuery.ToBlock)
	}
	if len(ranking) != 1 {
		t.Fatalf("got %d ranked addresses, want 1", len(ranking))
	}
	if !strings.EqualFold(ranking[0].Address, actor) {
		t.Fatalf("got collector %s, want %s", ranking[0].Address, actor)
	}
	if ranking[0].Amount.Int64() != 5 {
		t.Fatalf("got quantity %s, want 5", ranking[0].Amount)
	}
}

func TestBuyersFoldsByValue(t *testing.T) {
	actor := "0x00000000000000000000000000000000000000bb"
	actorTopic := "0x000000000000000000000000" + actor[2:]
	chain := &fakeChain{logsByContract: map[string][]model.RawLog{
		"0xdrop": {claimLog("0xdrop", actorTopic)},
	}}
	svc, _, _ := newTestService(&fakeStore{}, chain)

	ranking, err := svc.Buyers(context.Background(), []string{"0xdrop"}, nil, nil)
	if err != nil {
		t.Fatalf("buyers: %v", err)
	}
	if len(ranking) != 1 {
		t.Fatalf("got %d ranked addresses, want 1", len(ranking))
	}
	// 5 tokens at a unit price of 2 wei.
	if ranking[0].Amount.Int64() != 10 {
		t.Fatalf("got value %s, want 10", ranking[0].Amount)
	}
}

func TestNativeBalance(t *testing.T) {
	chain := &fakeChain{balance: big.NewInt(42)}
	svc, _, _ := newTestService(&fakeStore{}, chain)

	balance, err := svc.NativeBalance(context.Background(), "0xuser")
	if err != nil {
		t.Fatalf("native balance: %v", err)
	}
	if balance.Int64() != 42 {
		t.Fatalf("got balance %s, want 42", balance)
	}
}
