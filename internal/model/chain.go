package model

import "math/big"

// Block range sentinels accepted by the log search API.
const (
	BlockEarliest = "0x0"
	BlockLatest   = "latest"
)

// BlockRange is an inclusive block span. Each end is either a 0x hex block
// number or one of the sentinels above.
type BlockRange struct {
	From string `json:"from_block"`
	To   string `json:"to_block"`
}

// LogQuery is a log search request.
type LogQuery struct {
	FromBlock string
	ToBlock   string
	Address   string
	// Topics are positional filters: Topics[i] lists accepted values for
	// topic i, an empty slice matches anything at that position.
	Topics [][]string
}

// Transaction is the subset of a chain transaction the pipeline reads.
type Transaction struct {
	Hash        string
	BlockHash   string
	BlockNumber uint64
	Value       *big.Int
}

// Asset transfer categories and orderings.
const (
	CategoryERC20   = "erc20"
	CategoryERC721  = "erc721"
	CategoryERC1155 = "erc1155"

	OrderAscending  = "asc"
	OrderDescending = "desc"
)

// AssetTransfersRequest mirrors the asset-transfer search parameters.
type AssetTransfersRequest struct {
	FromBlock         string   `json:"fromBlock,omitempty"`
	ToBlock           string   `json:"toBlock,omitempty"`
	Category          []string `json:"category"`
	WithMetadata      bool     `json:"withMetadata"`
	ExcludeZeroValue  bool     `json:"excludeZeroValue"`
	Order             string   `json:"order,omitempty"`
	FromAddress       string   `json:"fromAddress,omitempty"`
	ToAddress         string   `json:"toAddress,omitempty"`
	ContractAddresses []string `json:"contractAddresses,omitempty"`
}

// AssetTransfer is one entry of an asset-transfer search result.
type AssetTransfer struct {
	BlockNum  string   `json:"blockNum"`
	BlockHash string   `json:"blockHash"`
	Hash      string   `json:"hash"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	Value     *float64 `json:"value"`
	Asset     string   `json:"asset,omitempty"`
	Category  string   `json:"category"`
	TokenID   string   `json:"tokenId,omitempty"`
	Metadata  *struct {
		BlockTimestamp string `json:"blockTimestamp"`
	} `json:"metadata,omitempty"`
}

// AssetTransfersResponse is an asset-transfer search result page.
type AssetTransfersResponse struct {
	Transfers []AssetTransfer `json:"transfers"`
	PageKey   string          `json:"pageKey,omitempty"`
}
