// Package aggregate folds marketplace events into per-address leaderboards
// and per-date buckets.
package aggregate

import (
	"bytes"
	"encoding/json"
	"math/big"
	"sort"

	"marketlens/internal/model"
)

// Totals accumulates per-address amounts, remembering first-seen order so
// ranking ties stay stable.
type Totals struct {
	order   []string
	amounts map[string]*big.Int
}

func NewTotals() *Totals {
	return &Totals{amounts: make(map[string]*big.Int)}
}

// Add sums amount into the address entry, zero-initializing on first sight.
func (t *Totals) Add(address string, amount *big.Int) {
	current, ok := t.amounts[address]
	if !ok {
		current = new(big.Int)
		t.amounts[address] = current
		t.order = append(t.order, address)
	}
	current.Add(current, amount)
}

// Entry is one address with its accumulated amount.
type Entry struct {
	Address string
	Amount  *big.Int
}

// Ranking is a descending-ordered leaderboard. It marshals as a JSON object
// whose key order follows the ranking.
type Ranking []Entry

// MarshalJSON emits {"address": amount, ...} preserving order.
func (r Ranking) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Address)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(entry.Amount.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Ranking sorts the totals by amount, descending. The sort is stable: equal
// amounts keep their first-seen order.
func (t *Totals) Ranking() Ranking {
	entries := make(Ranking, 0, len(t.order))
	for _, address := range t.order {
		entries = append(entries, Entry{Address: address, Amount: t.amounts[address]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Amount.Cmp(entries[j].Amount) > 0
	})
	return entries
}

// PersistedMetric extracts the actor address and metric amount from a
// persisted event. ok=false skips the event.
type PersistedMetric func(event model.PersistedEvent) (address string, amount *big.Int, ok bool)

// FoldPersisted groups persisted events by actor address and sums the metric.
func FoldPersisted(events []model.PersistedEvent, metric PersistedMetric) *Totals {
	totals := NewTotals()
	for _, event := range events {
		address, amount, ok := metric(event)
		if !ok {
			continue
		}
		totals.Add(address, amount)
	}
	return totals
}

// DecodedMetric extracts the actor address and metric amount from a decoded
// event. ok=false skips the event.
type DecodedMetric func(event *model.NormalizedEvent) (address string, amount *big.Int, ok bool)

// FoldDecoded groups decoded events by actor address and sums the metric.
func FoldDecoded(events []*model.NormalizedEvent, metric DecodedMetric) *Totals {
	totals := NewTotals()
	for _, event := range events {
		if event == nil {
			continue
		}
		address, amount, ok := metric(event)
		if !ok {
			continue
		}
		totals.Add(address, amount)
	}
	return totals
}
