// Package retrieve issues range-scoped log and asset-transfer queries and
// turns the results into decoded token purchase/sale records.
package retrieve

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"marketlens/internal/blockres"
	"marketlens/internal/codec"
	"marketlens/internal/decode"
	"marketlens/internal/model"
)

// Direction selects which side of a transfer the user is constrained to.
type Direction int

const (
	// DirectionPurchase keeps transfers where the user is the receiver.
	DirectionPurchase Direction = iota
	// DirectionSale keeps transfers where the user is the sender.
	DirectionSale
)

// ChainAPI is the slice of the external chain data API the orchestrator
// consumes.
type ChainAPI interface {
	Logs(ctx context.Context, query model.LogQuery) ([]model.RawLog, error)
	Transaction(ctx context.Context, hash string) (model.Transaction, error)
	BlockTimestamp(ctx context.Context, blockHash string) (uint64, error)
	AssetTransfers(ctx context.Context, req model.AssetTransfersRequest) (model.AssetTransfersResponse, error)
}

// RangeResolver maps date ranges to block ranges.
type RangeResolver interface {
	BlockByDate(ctx context.Context, date time.Time, granularity string) (uint64, bool)
	RangeForDates(ctx context.Context, fromDate, toDate *time.Time) model.BlockRange
}

// Orchestrator coordinates log retrieval for one request at a time. Calls
// are issued sequentially; latency scales with the number of logs examined.
type Orchestrator struct {
	chain    ChainAPI
	resolver RangeResolver
	logger   *zap.Logger
}

func NewOrchestrator(chain ChainAPI, resolver RangeResolver, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{chain: chain, resolver: resolver, logger: logger}
}

// LogsForAddressInRange returns the transfer logs emitted by a contract over
// a date range. Unresolvable range ends widen to the open sentinels.
func (o *Orchestrator) LogsForAddressInRange(ctx context.Context, address string, fromDate, toDate *time.Time, granularity string) ([]model.RawLog, error) {
	blockRange := o.resolveRange(ctx, fromDate, toDate, granularity)

	return o.chain.Logs(ctx, model.LogQuery{
		FromBlock: blockRange.From,
		ToBlock:   blockRange.To,
		Address:   address,
		Topics: [][]string{
			{decode.TopicTransferERC1155, decode.TopicTransferERC721},
		},
	})
}

// PurchaseOrSaleLogs returns the token transfers where addressUser is the
// receiver (purchases) or sender (sales), keeping only transfers whose
// transaction moved a strictly positive native value. Defaults to the last
// 31 days when no dates are given.
func (o *Orchestrator) PurchaseOrSaleLogs(ctx context.Context, addressUser string, fromDate, toDate *time.Time, direction Direction) ([]model.TokenTransfer, error) {
	userTopic, err := codec.EncodeAddressTopic(addressUser)
	if err != nil {
		return nil, err
	}

	blockRange := o.resolver.RangeForDates(ctx, fromDate, toDate)

	erc721, err := o.chain.Logs(ctx, model.LogQuery{
		FromBlock: blockRange.From,
		ToBlock:   blockRange.To,
		Topics:    erc721Topics(userTopic, direction),
	})
	if err != nil {
		return nil, fmt.Errorf("erc721 logs: %w", err)
	}

	erc1155, err := o.chain.Logs(ctx, model.LogQuery{
		FromBlock: blockRange.From,
		ToBlock:   blockRange.To,
		Topics:    erc1155Topics(userTopic, direction),
	})
	if err != nil {
		return nil, fmt.Errorf("erc1155 logs: %w", err)
	}

	transfers := make([]model.TokenTransfer, 0, len(erc721)+len(erc1155))
	for _, log := range erc721 {
		// Guard against logs missing the indexed token id.
		if len(log.Topics) != 4 {
			continue
		}
		transfer, ok, err := o.pairWithTransaction(ctx, log)
		if err != nil {
			return nil, err
		}
		if ok {
			transfers = append(transfers, transfer)
		}
	}
	for _, log := range erc1155 {
		transfer, ok, err := o.pairWithTransaction(ctx, log)
		if err != nil {
			return nil, err
		}
		if ok {
			transfers = append(transfers, transfer)
		}
	}
	return transfers, nil
}

// AssetTransfersFromOrToUser runs an open-ended asset-transfer search with
// the user constrained as sender or receiver.
func (o *Orchestrator) AssetTransfersFromOrToUser(ctx context.Context, addressUser string, direction Direction, withMetadata bool, order string) (model.AssetTransfersResponse, error) {
	req := model.AssetTransfersRequest{
		FromBlock:    model.BlockEarliest,
		ToBlock:      model.BlockLatest,
		Category:     []string{model.CategoryERC1155, model.CategoryERC20, model.CategoryERC721},
		WithMetadata: withMetadata,
		Order:        order,
	}
	if direction == DirectionSale {
		req.FromAddress = addressUser
	} else {
		req.ToAddress = addressUser
	}
	return o.chain.AssetTransfers(ctx, req)
}

// pairWithTransaction fetches the log's owning transaction, drops zero-value
// noise (plain mints, test transfers), and builds the transfer record from
// the decoded log plus the transaction value and block timestamp.
func (o *Orchestrator) pairWithTransaction(ctx context.Context, log model.RawLog) (model.TokenTransfer, bool, error) {
	tx, err := o.chain.Transaction(ctx, log.TxHash)
	if err != nil {
		return model.TokenTransfer{}, false, fmt.Errorf("transaction %s: %w", log.TxHash, err)
	}
	if tx.Value == nil || tx.Value.Sign() <= 0 {
		return model.TokenTransfer{}, false, nil
	}

	out := decode.External(log)
	if out.Status != decode.StatusDecoded {
		o.logger.Debug("skip undecodable transfer log",
			zap.String("tx_hash", log.TxHash),
			zap.Error(out.Err),
		)
		return model.TokenTransfer{}, false, nil
	}

	timestamp, err := o.chain.BlockTimestamp(ctx, tx.BlockHash)
	if err != nil {
		return model.TokenTransfer{}, false, fmt.Errorf("block %s: %w", tx.BlockHash, err)
	}

	event := out.Event
	return model.TokenTransfer{
		From:        event.From,
		To:          event.To,
		TokenID:     event.TokenID,
		Value:       tx.Value.String(),
		TxHash:      tx.Hash,
		Type:        event.Type,
		Time:        timestamp,
		BlockNumber: tx.BlockNumber,
	}, true, nil
}

func (o *Orchestrator) resolveRange(ctx context.Context, fromDate, toDate *time.Time, granularity string) model.BlockRange {
	blockRange := model.BlockRange{From: model.BlockEarliest, To: model.BlockLatest}
	if granularity == "" {
		granularity = blockres.GranularityDays
	}
	if fromDate != nil {
		if block, ok := o.resolver.BlockByDate(ctx, *fromDate, granularity); ok {
			blockRange.From = encodeBlock(block)
		}
	}
	if toDate != nil {
		if block, ok := o.resolver.BlockByDate(ctx, *toDate, granularity); ok {
			blockRange.To = encodeBlock(block)
		}
	}
	return blockRange
}

func encodeBlock(number uint64) string {
	return fmt.Sprintf("0x%x", number)
}

// erc721Topics constrains the from (sale) or to (purchase) indexed argument.
func erc721Topics(userTopic string, direction Direction) [][]string {
	if direction == DirectionSale {
		return [][]string{{decode.TopicTransferERC721}, {userTopic}}
	}
	return [][]string{{decode.TopicTransferERC721}, {}, {userTopic}}
}

// erc1155Topics: TransferSingle indexes operator, from, to.
func erc1155Topics(userTopic string, direction Direction) [][]string {
	if direction == DirectionSale {
		return [][]string{{decode.TopicTransferERC1155}, {}, {userTopic}}
	}
	return [][]string{{decode.TopicTransferERC1155}, {}, {}, {userTopic}}
}
