package model

// Event names as written by the ingestion pipeline.
const (
	NameTokensClaimed = "TokensClaimed"
	NameBuy           = "Buy"
	NameEndAuction    = "EndAuction"
	NameTransfered    = "Transfered"
)

// PersistedEvent is a marketplace event previously captured by the ingestion
// pipeline. Read-only here; Data holds the event-specific decoded fields as
// stored.
type PersistedEvent struct {
	ID              int64             `json:"id"`
	UserID          string            `json:"user"`
	AddressContract string            `json:"address_contract"`
	Name            string            `json:"name"`
	Value           string            `json:"value,omitempty"`
	Data            map[string]string `json:"data"`
	CreatedAt       string            `json:"created_at"`
}
