package model

// EventKind classifies a decoded marketplace or transfer event.
type EventKind string

const (
	KindClaimERC721  EventKind = "ClaimERC721"
	KindClaimERC1155 EventKind = "ClaimERC1155"
	KindClaimPhoenix EventKind = "ClaimPhoenix"
	KindEndAuction   EventKind = "EndAuction"
	KindBuy          EventKind = "Buy"

	KindTransferERC721  EventKind = "TransferERC721"
	KindTransferERC1155 EventKind = "TransferERC1155"
)

// NormalizedEvent is a decoded log. Marketplace events carry the actor
// (claimer, buyer or last bidder) and the economic fields; pure transfers
// carry from/to and, for ERC-721, the token id. Big values are decimal
// strings.
type NormalizedEvent struct {
	Kind EventKind `json:"kind"`
	Name string    `json:"name"`

	Actor        string `json:"actor,omitempty"`
	StartTokenID string `json:"start_token_id,omitempty"`
	Quantity     uint64 `json:"quantity,omitempty"`
	UnitPrice    string `json:"unit_price,omitempty"`
	TotalValue   string `json:"total_value,omitempty"`

	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	TokenID string `json:"token_id,omitempty"`
	Type    string `json:"type,omitempty"`

	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
}

// TokenTransfer is a transfer log paired with its transaction: a token
// purchase or sale with the native value actually paid.
type TokenTransfer struct {
	From        string `json:"from"`
	To          string `json:"to"`
	TokenID     string `json:"token_id,omitempty"`
	Value       string `json:"value"`
	TxHash      string `json:"tx_hash"`
	Type        string `json:"type"`
	Time        uint64 `json:"time"`
	BlockNumber uint64 `json:"block_number"`
}
