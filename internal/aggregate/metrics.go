package aggregate

import (
	"math/big"

	"marketlens/internal/model"
)

// actorKey names the data field holding the actor address per event name.
var actorKey = map[string]string{
	model.NameTokensClaimed: "claimer",
	model.NameBuy:           "addressBuyer",
	model.NameEndAuction:    "lastBidder",
}

// quantityKey names the data field holding the quantity per event name.
var quantityKey = map[string]string{
	model.NameTokensClaimed: "quantityClaimed",
	model.NameBuy:           "quantity",
	model.NameEndAuction:    "quantity",
}

// QuantityOwned sums token quantities per claimer/buyer/last bidder.
func QuantityOwned(event model.PersistedEvent) (string, *big.Int, bool) {
	address, ok := eventActor(event)
	if !ok {
		return "", nil, false
	}
	key, ok := quantityKey[event.Name]
	if !ok {
		return "", nil, false
	}
	return parseAmount(address, event.Data[key])
}

// ValueCollected sums spent native value per claimer/buyer/last bidder.
// Claims carry the value on the event itself, buys in data.value and
// auctions in data.lastBid.
func ValueCollected(event model.PersistedEvent) (string, *big.Int, bool) {
	address, ok := eventActor(event)
	if !ok {
		return "", nil, false
	}
	switch event.Name {
	case model.NameTokensClaimed:
		return parseAmount(address, event.Value)
	case model.NameBuy:
		return parseAmount(address, event.Data["value"])
	case model.NameEndAuction:
		return parseAmount(address, event.Data["lastBid"])
	default:
		return "", nil, false
	}
}

// DecodedQuantity sums decoded quantities per actor.
func DecodedQuantity(event *model.NormalizedEvent) (string, *big.Int, bool) {
	if event.Actor == "" {
		return "", nil, false
	}
	return event.Actor, new(big.Int).SetUint64(event.Quantity), true
}

// DecodedValue sums decoded total values per actor.
func DecodedValue(event *model.NormalizedEvent) (string, *big.Int, bool) {
	if event.Actor == "" {
		return "", nil, false
	}
	return parseAmount(event.Actor, event.TotalValue)
}

func eventActor(event model.PersistedEvent) (string, bool) {
	key, ok := actorKey[event.Name]
	if !ok {
		return "", false
	}
	address, ok := event.Data[key]
	if !ok || address == "" {
		return "", false
	}
	return address, true
}

func parseAmount(address, raw string) (string, *big.Int, bool) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "", nil, false
	}
	return address, amount, true
}
