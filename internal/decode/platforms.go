package decode

import "strings"

// Marketplace platform names.
const (
	PlatformSeaport   = "seaport"
	PlatformRarible   = "rarible"
	PlatformX2Y2      = "x2y2"
	PlatformLooksrare = "looksrare"
)

// Sale-event topic0 hashes of the known marketplace protocols.
const (
	TopicSaleLooksrare = "0x68cd251d4d267c6e2034ff0088b990352b97b2002c0476587d0c4da889c11330"
	TopicSaleRarible   = "0x268820db288a211986b26a8fda86b1e0046281b21206936bb0e61c67b5c79ef4"
	TopicSaleSeaport   = "0x9d9af8e38d66c62e2c12f0225249fd9d721c54b83f48d9352c97c6cacdcb6f31"
	TopicSaleX2Y2      = "0x3cbb63f144840e5b1b0a38a7c19211d2e89de4d7c5faf8b2d3c1776c302d1d33"
)

var platformTable = map[string]string{
	TopicSaleLooksrare: PlatformLooksrare,
	TopicSaleRarible:   PlatformRarible,
	TopicSaleSeaport:   PlatformSeaport,
	TopicSaleX2Y2:      PlatformX2Y2,
}

// PlatformTopics lists the sale-event signatures for topic filters.
func PlatformTopics() []string {
	return []string{TopicSaleLooksrare, TopicSaleRarible, TopicSaleSeaport, TopicSaleX2Y2}
}

// PlatformByTopic classifies a sale log by its topic0.
func PlatformByTopic(topic0 string) (string, bool) {
	platform, ok := platformTable[strings.ToLower(topic0)]
	return platform, ok
}
