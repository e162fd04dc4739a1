package decode

import (
	"github.com/ethereum/go-ethereum/crypto"

	"marketlens/internal/model"
)

// field locates one event argument inside a raw log: either a topic index
// (1-based, topic 0 being the signature) or a 32-byte word position in the
// data payload.
type field struct {
	topic int // 0 means not indexed
	word  int // -1 means not in data
}

func fromTopic(i int) field { return field{topic: i, word: -1} }
func fromWord(i int) field  { return field{word: i} }

// shape is the decode rule for one marketplace event signature. Each field
// names its source explicitly so the layout is readable without the contract
// ABI at hand.
type shape struct {
	kind model.EventKind
	name string

	actorTopic    int // topic holding the receiver, buyer or last bidder
	startTokenID  field
	quantity      field
	pricePerToken field
}

// transferShape is the decode rule for a pure transfer event.
type transferShape struct {
	kind      model.EventKind
	name      string
	tokenType string

	fromTopic    int
	toTopic      int
	tokenIDTopic int // 0 when the token id is not indexed (ERC-1155)
	wantTopics   int
}

// Event signatures recognized by the internal (marketplace) table.
const (
	sigClaimERC721  = "TokensClaimed(uint256,address,address,uint256,uint256,uint256)"
	sigClaimERC1155 = "TokensClaimedERC1155(uint256,address,address,uint256,uint256,uint256,uint256)"
	sigClaimPhoenix = "TokensClaimedPhoenix(uint256,address,uint256,uint256)"
	sigEndAuction   = "AuctionClosed(uint256,address,address,uint256,uint256,uint256,uint256,uint256)"
	sigBuy          = "TokensPurchased(address,uint256,uint256,uint256,uint256)"

	sigTransferERC721  = "Transfer(address,address,uint256)"
	sigTransferERC1155 = "TransferSingle(address,address,address,uint256,uint256)"
)

func topicOf(sig string) string {
	return crypto.Keccak256Hash([]byte(sig)).Hex()
}

// TopicClaimERC721 et al. are the topic0 hashes of the recognized events.
var (
	TopicClaimERC721  = topicOf(sigClaimERC721)
	TopicClaimERC1155 = topicOf(sigClaimERC1155)
	TopicClaimPhoenix = topicOf(sigClaimPhoenix)
	TopicEndAuction   = topicOf(sigEndAuction)
	TopicBuy          = topicOf(sigBuy)

	TopicTransferERC721  = topicOf(sigTransferERC721)
	TopicTransferERC1155 = topicOf(sigTransferERC1155)
)

// InternalTopics lists the marketplace event signatures for topic filters.
func InternalTopics() []string {
	return []string{TopicClaimERC721, TopicClaimERC1155, TopicClaimPhoenix, TopicEndAuction, TopicBuy}
}

// internalTable maps topic0 to the marketplace event shapes. The drop claim
// variants differ in where the token id and price sit; Phoenix carries the
// token id in a topic instead of the data payload.
var internalTable = map[string]shape{
	TopicClaimERC721: {
		kind:          model.KindClaimERC721,
		name:          "Claim token DROPERC721",
		actorTopic:    3,
		startTokenID:  fromWord(0),
		quantity:      fromWord(1),
		pricePerToken: fromWord(2),
	},
	TopicClaimERC1155: {
		kind:          model.KindClaimERC1155,
		name:          "Claim token DROPERC1155",
		actorTopic:    3,
		startTokenID:  fromWord(1),
		quantity:      fromWord(2),
		pricePerToken: fromWord(3),
	},
	TopicClaimPhoenix: {
		kind:          model.KindClaimPhoenix,
		name:          "Claim token DROPPHOENIX",
		actorTopic:    2,
		startTokenID:  fromTopic(1),
		quantity:      fromWord(0),
		pricePerToken: fromWord(1),
	},
	TopicEndAuction: {
		kind:          model.KindEndAuction,
		name:          "End Auction marketplace",
		actorTopic:    3,
		startTokenID:  fromWord(1),
		quantity:      fromWord(3),
		pricePerToken: fromWord(4),
	},
	TopicBuy: {
		kind:          model.KindBuy,
		name:          "Buy marketplace",
		actorTopic:    1,
		startTokenID:  fromTopic(3),
		quantity:      fromWord(1),
		pricePerToken: fromWord(0),
	},
}

// externalTable maps topic0 to the transfer event shapes. Only from/to are
// read for ERC-1155: the quantity of a paired sale comes from the owning
// transaction, not from this log.
var externalTable = map[string]transferShape{
	TopicTransferERC721: {
		kind:         model.KindTransferERC721,
		name:         "Transfer token ERC721",
		tokenType:    "ERC721",
		fromTopic:    1,
		toTopic:      2,
		tokenIDTopic: 3,
		wantTopics:   4,
	},
	TopicTransferERC1155: {
		kind:       model.KindTransferERC1155,
		name:       "Transfer token ERC1155",
		tokenType:  "ERC1155",
		fromTopic:  2,
		toTopic:    3,
		wantTopics: 4,
	},
}
