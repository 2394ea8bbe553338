package matching

import (
	"testing"
	"time"

	"github.com/maskchat/pairbot/internal/block"
)

func newTable() (*Table, *block.Registry) {
	blocks := block.NewRegistry()
	return NewTable(blocks), blocks
}

func TestFindPartner_NobodyWaiting(t *testing.T) {
	table, _ := newTable()

	res := table.FindPartner("a", FindFresh)
	if res.Status != FindQueued {
		t.Fatalf("status = %v, want FindQueued", res.Status)
	}
	if !table.Waiting("a") {
		t.Error("expected a in the waiting set")
	}
	if _, ok := table.Partner("a"); ok {
		t.Error("expected no session entry for a")
	}
	if len(res.ClearHistory) != 0 {
		t.Errorf("fresh find should clear nobody's history, got %v", res.ClearHistory)
	}
}

func TestFindPartner_MutualMatch(t *testing.T) {
	table, _ := newTable()

	table.FindPartner("a", FindFresh)
	res := table.FindPartner("b", FindFresh)

	if res.Status != FindMatched || res.Partner != "a" {
		t.Fatalf("result = %+v, want match with a", res)
	}

	pa, okA := table.Partner("a")
	pb, okB := table.Partner("b")
	if !okA || !okB || pa != "b" || pb != "a" {
		t.Errorf("session table not mutual: a->%q(%v) b->%q(%v)", pa, okA, pb, okB)
	}
	if table.Waiting("a") || table.Waiting("b") {
		t.Error("matched users must not remain in the waiting set")
	}
}

func TestFindPartner_BlockedGuard(t *testing.T) {
	table, blocks := newTable()
	blocks.Block("a", time.Hour)

	res := table.FindPartner("a", FindFresh)
	if res.Status != FindBlocked {
		t.Fatalf("status = %v, want FindBlocked", res.Status)
	}
	if table.Waiting("a") {
		t.Error("blocked find must not enqueue the user")
	}
}

func TestFindPartner_AlreadyPairedGuard(t *testing.T) {
	table, _ := newTable()
	table.FindPartner("a", FindFresh)
	table.FindPartner("b", FindFresh)

	res := table.FindPartner("a", FindFresh)
	if res.Status != FindAlreadyPaired {
		t.Fatalf("status = %v, want FindAlreadyPaired", res.Status)
	}
	if p, _ := table.Partner("a"); p != "b" {
		t.Errorf("existing pairing must be untouched, a->%q", p)
	}
}

func TestFindPartner_SkipsBlockedCandidateButKeepsQueued(t *testing.T) {
	table, blocks := newTable()
	table.FindPartner("a", FindFresh)
	blocks.Block("a", time.Hour)

	res := table.FindPartner("b", FindFresh)
	if res.Status != FindQueued {
		t.Fatalf("status = %v, want FindQueued (only candidate is blocked)", res.Status)
	}
	if !table.Waiting("a") {
		t.Error("blocked candidate must stay in the waiting set")
	}

	// Once a's block is gone, the next scan can match them.
	blocks.BlockUntil("a", time.Unix(0, 0)) // already expired
	res = table.FindPartner("c", FindFresh)
	if res.Status != FindMatched || res.Partner != "a" {
		t.Errorf("result = %+v, want match with a after block expiry", res)
	}
}

func TestFindPartner_RejoinDequeuesAndClearsOwnHistory(t *testing.T) {
	table, _ := newTable()
	table.FindPartner("a", FindFresh)

	res := table.FindPartner("a", FindRejoin)
	if res.Status != FindQueued {
		t.Fatalf("status = %v, want FindQueued", res.Status)
	}
	if len(res.ClearHistory) != 1 || res.ClearHistory[0] != "a" {
		t.Errorf("ClearHistory = %v, want [a]", res.ClearHistory)
	}
	// Re-requesting while waiting leaves the user waiting exactly once.
	if !table.Waiting("a") {
		t.Error("expected a still waiting after rejoin with empty queue")
	}
}

func TestFindPartner_RejoinClearsFoundPartnerHistoryToo(t *testing.T) {
	table, _ := newTable()
	table.FindPartner("b", FindFresh)

	res := table.FindPartner("a", FindRejoin)
	if res.Status != FindMatched || res.Partner != "b" {
		t.Fatalf("result = %+v, want match with b", res)
	}
	if len(res.ClearHistory) != 2 || res.ClearHistory[0] != "a" || res.ClearHistory[1] != "b" {
		t.Errorf("ClearHistory = %v, want [a b]", res.ClearHistory)
	}
}

func TestFindPartner_FreshMatchClearsNobody(t *testing.T) {
	table, _ := newTable()
	table.FindPartner("b", FindFresh)

	res := table.FindPartner("a", FindFresh)
	if res.Status != FindMatched {
		t.Fatalf("status = %v, want FindMatched", res.Status)
	}
	if len(res.ClearHistory) != 0 {
		t.Errorf("fresh match should clear nobody's history, got %v", res.ClearHistory)
	}
}

func TestEndSession_RemovesBothDirections(t *testing.T) {
	table, _ := newTable()
	table.FindPartner("a", FindFresh)
	table.FindPartner("b", FindFresh)

	partner, ok := table.EndSession("a")
	if !ok || partner != "b" {
		t.Fatalf("EndSession = (%q, %v), want (b, true)", partner, ok)
	}
	if _, ok := table.Partner("a"); ok {
		t.Error("a still has a session entry")
	}
	if _, ok := table.Partner("b"); ok {
		t.Error("b still has a session entry")
	}
}

func TestEndSession_NoopWithoutPartner(t *testing.T) {
	table, _ := newTable()

	if _, ok := table.EndSession("a"); ok {
		t.Error("EndSession on unpaired user must be a no-op")
	}

	table.FindPartner("a", FindFresh) // waiting, not paired
	if _, ok := table.EndSession("a"); ok {
		t.Error("EndSession on waiting user must be a no-op")
	}
	if !table.Waiting("a") {
		t.Error("waiting state must be untouched by EndSession")
	}
}

func TestStats(t *testing.T) {
	table, _ := newTable()
	table.FindPartner("a", FindFresh)
	table.FindPartner("b", FindFresh) // pairs with a
	table.FindPartner("c", FindFresh) // waits

	waiting, pairs := table.Stats()
	if waiting != 1 || pairs != 1 {
		t.Errorf("Stats() = (%d, %d), want (1, 1)", waiting, pairs)
	}
}

func TestLeave(t *testing.T) {
	table, _ := newTable()
	table.FindPartner("a", FindFresh)
	table.Leave("a")
	if table.Waiting("a") {
		t.Error("expected a removed from the waiting set")
	}
}
