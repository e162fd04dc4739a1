package store

import (
	"strings"
	"testing"

	"marketlens/internal/model"
)

func TestBuildFindQueryUnfiltered(t *testing.T) {
	query, args := buildFindQuery(EventFilter{})
	if strings.Contains(query, "WHERE") {
		t.Fatalf("empty filter must not constrain: %s", query)
	}
	if len(args) != 0 {
		t.Fatalf("got %d args, want 0", len(args))
	}
	if !strings.HasSuffix(query, "ORDER BY id") {
		t.Fatalf("events must come back oldest first: %s", query)
	}
}

func TestBuildFindQuerySingleName(t *testing.T) {
	query, args := buildFindQuery(EventFilter{
		UserID: "0xuser",
		Names:  []string{model.NameTransfered},
	})
	if !strings.Contains(query, "user_id = $1") {
		t.Fatalf("missing user clause: %s", query)
	}
	if !strings.Contains(query, "name = $2") {
		t.Fatalf("single name must use equality: %s", query)
	}
	if len(args) != 2 || args[0] != "0xuser" || args[1] != model.NameTransfered {
		t.Fatalf("got args %v, want [0xuser %s]", args, model.NameTransfered)
	}
}

func TestBuildFindQueryMultiName(t *testing.T) {
	query, args := buildFindQuery(EventFilter{
		Names: []string{model.NameTokensClaimed, model.NameBuy, model.NameEndAuction},
	})
	if !strings.Contains(query, "name = ANY($1)") {
		t.Fatalf("multiple names must use ANY: %s", query)
	}
	names, ok := args[0].([]string)
	if !ok || len(names) != 3 {
		t.Fatalf("got args %v, want one slice of 3 names", args)
	}
}

func TestBuildFindQueryDataFiltersSorted(t *testing.T) {
	query, args := buildFindQuery(EventFilter{
		AddressContract: "0xcontract",
		DataEq: map[string]string{
			"tokenId":   "9",
			"listingId": "4",
		},
	})
	if !strings.Contains(query, "data->>$2 = $3 AND data->>$4 = $5") {
		t.Fatalf("data clauses must be ordered by key: %s", query)
	}
	if args[1] != "listingId" || args[2] != "4" || args[3] != "tokenId" || args[4] != "9" {
		t.Fatalf("got args %v, want listingId before tokenId", args)
	}
}
