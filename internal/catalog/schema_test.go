package catalog

import (
	"strings"
	"testing"
)

// The server-side merge must apply the same row-eligibility rules as the Go
// path. The predicate is spliced into the function text in two places: the
// winner cursor and the skipped-row aggregation.
func TestMergeFunctionEmbedsEligibilityPredicate(t *testing.T) {
	if n := strings.Count(mergeFunctionSQL, rowEligibleSQL); n != 2 {
		t.Errorf("catalog_merge_upload contains the eligibility predicate %d times, want 2", n)
	}
	if !strings.Contains(mergeFunctionSQL, "AND NOT ("+rowEligibleSQL+")") {
		t.Error("catalog_merge_upload does not negate the eligibility predicate for skipped rows")
	}
}

// Last-row-wins duplicate resolution in the server-side merge must mirror
// pickWinners: one row per SKU, highest row number.
func TestMergeFunctionResolvesDuplicatesLastRowWins(t *testing.T) {
	if !strings.Contains(mergeFunctionSQL, "DISTINCT ON (sku)") {
		t.Error("catalog_merge_upload does not select DISTINCT ON (sku)")
	}
	if !strings.Contains(mergeFunctionSQL, "ORDER BY sku, row_num DESC") {
		t.Error("catalog_merge_upload does not order by row_num DESC within SKU")
	}
}
