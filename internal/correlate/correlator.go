// Package correlate stitches marketplace sale logs onto the asset transfers
// they settled, grouped by platform.
package correlate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"marketlens/internal/decode"
	"marketlens/internal/model"
	"marketlens/internal/retrieve"
)

// SaleRecord is one marketplace sale with the transfer logs that share its
// transaction.
type SaleRecord struct {
	SaleEvent model.RawLog     `json:"sales_event"`
	Timestamp uint64           `json:"timestamp"`
	Transfers []decode.Outcome `json:"transfers"`
}

// PlatformSales groups sale records per marketplace. Time is the wall-clock
// milliseconds consumed by the whole scan, kept for observability only.
type PlatformSales struct {
	Seaport   []SaleRecord `json:"seaport"`
	Rarible   []SaleRecord `json:"rarible"`
	X2Y2      []SaleRecord `json:"x2y2"`
	Looksrare []SaleRecord `json:"looksrare"`
	Time      int64        `json:"time"`
}

func (p *PlatformSales) add(platform string, record SaleRecord) {
	switch platform {
	case decode.PlatformSeaport:
		p.Seaport = append(p.Seaport, record)
	case decode.PlatformRarible:
		p.Rarible = append(p.Rarible, record)
	case decode.PlatformX2Y2:
		p.X2Y2 = append(p.X2Y2, record)
	case decode.PlatformLooksrare:
		p.Looksrare = append(p.Looksrare, record)
	}
}

// ChainAPI is the slice of the external chain data API the correlator
// consumes.
type ChainAPI interface {
	Logs(ctx context.Context, query model.LogQuery) ([]model.RawLog, error)
	BlockTimestamp(ctx context.Context, blockHash string) (uint64, error)
}

// TransferSource provides the two-direction asset-transfer batches.
type TransferSource interface {
	AssetTransfersFromOrToUser(ctx context.Context, addressUser string, direction retrieve.Direction, withMetadata bool, order string) (model.AssetTransfersResponse, error)
}

// Correlator cross-references a user's asset transfers against same-block
// marketplace sale logs. Same-block log queries are repeated per transfer
// rather than deduplicated, trading call volume for simplicity.
type Correlator struct {
	chain     ChainAPI
	transfers TransferSource
	logger    *zap.Logger
}

func NewCorrelator(chain ChainAPI, transfers TransferSource, logger *zap.Logger) *Correlator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{chain: chain, transfers: transfers, logger: logger}
}

// SalesForUser scans both transfer directions for the user, locates the
// marketplace sale logs in each transfer's block, and attaches the transfer
// logs sharing the sale's transaction.
func (c *Correlator) SalesForUser(ctx context.Context, addressUser string, withMetadata bool, order string) (*PlatformSales, error) {
	start := time.Now()
	sales := &PlatformSales{}

	for _, direction := range []retrieve.Direction{retrieve.DirectionPurchase, retrieve.DirectionSale} {
		batch, err := c.transfers.AssetTransfersFromOrToUser(ctx, addressUser, direction, withMetadata, order)
		if err != nil {
			return nil, fmt.Errorf("asset transfers: %w", err)
		}

		for _, transfer := range batch.Transfers {
			if err := c.correlateTransfer(ctx, transfer, sales); err != nil {
				return nil, err
			}
		}
	}

	sales.Time = time.Since(start).Milliseconds()
	return sales, nil
}

func (c *Correlator) correlateTransfer(ctx context.Context, transfer model.AssetTransfer, sales *PlatformSales) error {
	timestamp, err := c.chain.BlockTimestamp(ctx, transfer.BlockHash)
	if err != nil {
		return fmt.Errorf("block %s: %w", transfer.BlockHash, err)
	}

	saleLogs, err := c.chain.Logs(ctx, model.LogQuery{
		FromBlock: transfer.BlockNum,
		ToBlock:   transfer.BlockNum,
		Topics:    [][]string{decode.PlatformTopics()},
	})
	if err != nil {
		return fmt.Errorf("sale logs in block %s: %w", transfer.BlockNum, err)
	}

	for _, saleLog := range saleLogs {
		platform, ok := decode.PlatformByTopic(saleLog.Topic0())
		if !ok {
			continue
		}

		record := SaleRecord{SaleEvent: saleLog, Timestamp: timestamp}
		if err := c.attachTransfers(ctx, transfer.BlockNum, saleLog.TxHash, &record); err != nil {
			return err
		}
		sales.add(platform, record)
	}
	return nil
}

// attachTransfers decodes the block's erc721/1155 transfer logs that share
// the sale's transaction.
func (c *Correlator) attachTransfers(ctx context.Context, blockNum, saleTxHash string, record *SaleRecord) error {
	blockLogs, err := c.chain.Logs(ctx, model.LogQuery{
		FromBlock: blockNum,
		ToBlock:   blockNum,
		Topics: [][]string{
			{decode.TopicTransferERC1155, decode.TopicTransferERC721},
		},
	})
	if err != nil {
		return fmt.Errorf("transfer logs in block %s: %w", blockNum, err)
	}

	for _, log := range blockLogs {
		if log.TxHash != saleTxHash {
			continue
		}
		record.Transfers = append(record.Transfers, decode.External(log))
	}
	return nil
}
