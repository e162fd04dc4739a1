// Package decode reconstructs normalized events from raw marketplace and
// transfer logs using explicit per-signature shape tables.
package decode

import (
	"fmt"
	"math/big"
	"strings"

	"marketlens/internal/codec"
	"marketlens/internal/model"
)

// Status tags a decode outcome.
type Status int

const (
	// StatusDecoded means the log matched a shape and Event is set.
	StatusDecoded Status = iota
	// StatusUnrecognized means topic0 is not in the table; Raw is the
	// untouched input.
	StatusUnrecognized
	// StatusMalformed means the signature matched but extraction failed;
	// Raw is the untouched input and Err holds the cause.
	StatusMalformed
)

// Outcome is the tagged result of a decode attempt. The input log is never
// mutated; non-decoded outcomes carry it through unchanged so callers can
// branch on Status instead of sniffing shapes. Raw is nil on Decoded
// outcomes so it stays out of their JSON encoding.
type Outcome struct {
	Status Status                 `json:"status"`
	Event  *model.NormalizedEvent `json:"event,omitempty"`
	Raw    *model.RawLog          `json:"raw,omitempty"`
	Err    error                  `json:"-"`
}

// Internal decodes a marketplace economic event (claims, buy, end-auction).
func Internal(log model.RawLog) Outcome {
	entry, ok := internalTable[strings.ToLower(log.Topic0())]
	if !ok {
		return Outcome{Status: StatusUnrecognized, Raw: &log}
	}

	event, err := decodeMarketplace(log, entry)
	if err != nil {
		return Outcome{Status: StatusMalformed, Raw: &log, Err: err}
	}
	return Outcome{Status: StatusDecoded, Event: event}
}

// External decodes a pure transfer event (ERC-721, ERC-1155 single).
func External(log model.RawLog) Outcome {
	entry, ok := externalTable[strings.ToLower(log.Topic0())]
	if !ok {
		return Outcome{Status: StatusUnrecognized, Raw: &log}
	}

	event, err := decodeTransfer(log, entry)
	if err != nil {
		return Outcome{Status: StatusMalformed, Raw: &log, Err: err}
	}
	return Outcome{Status: StatusDecoded, Event: event}
}

func decodeMarketplace(log model.RawLog, entry shape) (*model.NormalizedEvent, error) {
	if entry.actorTopic >= len(log.Topics) {
		return nil, fmt.Errorf("missing actor topic %d", entry.actorTopic)
	}
	actor, err := codec.DecodeAddress(log.Topics[entry.actorTopic])
	if err != nil {
		return nil, fmt.Errorf("actor: %w", err)
	}

	startTokenID, err := fieldBig(log, entry.startTokenID)
	if err != nil {
		return nil, fmt.Errorf("start token id: %w", err)
	}
	quantity, err := fieldBig(log, entry.quantity)
	if err != nil {
		return nil, fmt.Errorf("quantity: %w", err)
	}
	if !quantity.IsUint64() {
		return nil, fmt.Errorf("quantity does not fit in uint64")
	}
	price, err := fieldBig(log, entry.pricePerToken)
	if err != nil {
		return nil, fmt.Errorf("price per token: %w", err)
	}

	total := new(big.Int).Mul(quantity, price)

	return &model.NormalizedEvent{
		Kind:         entry.kind,
		Name:         entry.name,
		Actor:        actor,
		StartTokenID: startTokenID.String(),
		Quantity:     quantity.Uint64(),
		UnitPrice:    price.String(),
		TotalValue:   total.String(),
		TxHash:       log.TxHash,
		BlockNumber:  log.BlockNumber,
	}, nil
}

func decodeTransfer(log model.RawLog, entry transferShape) (*model.NormalizedEvent, error) {
	if len(log.Topics) < entry.wantTopics {
		return nil, fmt.Errorf("expected %d topics, got %d", entry.wantTopics, len(log.Topics))
	}

	from, err := codec.DecodeAddress(log.Topics[entry.fromTopic])
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	to, err := codec.DecodeAddress(log.Topics[entry.toTopic])
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}

	event := &model.NormalizedEvent{
		Kind:        entry.kind,
		Name:        entry.name,
		From:        from,
		To:          to,
		Type:        entry.tokenType,
		Quantity:    1,
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
	}

	if entry.tokenIDTopic > 0 {
		tokenID, err := codec.DecodeBig(log.Topics[entry.tokenIDTopic])
		if err != nil {
			return nil, fmt.Errorf("token id: %w", err)
		}
		event.TokenID = tokenID.String()
	}

	return event, nil
}

func fieldBig(log model.RawLog, f field) (*big.Int, error) {
	if f.topic > 0 {
		if f.topic >= len(log.Topics) {
			return nil, fmt.Errorf("missing topic %d", f.topic)
		}
		return codec.DecodeBig(log.Topics[f.topic])
	}
	word, err := codec.Word(log.Data, f.word)
	if err != nil {
		return nil, err
	}
	return codec.DecodeBig(word)
}
