package nodestore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/icnetwork/decentralization/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nodes.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_UpsertAndGetNode(t *testing.T) {
	s := newTestStore(t)
	n := domain.Node{
		ID:           "n1",
		DfinityOwned: true,
		Features: domain.NodeFeatures{
			domain.Country:      "US",
			domain.NodeProvider: "np1",
		},
	}
	if err := s.UpsertNode(n); err != nil {
		t.Fatalf("UpsertNode() error: %v", err)
	}

	got, ok, err := s.GetNode("n1")
	if err != nil {
		t.Fatalf("GetNode() error: %v", err)
	}
	if !ok {
		t.Fatal("GetNode() ok = false, want true")
	}
	if got.ID != n.ID || got.DfinityOwned != n.DfinityOwned {
		t.Errorf("got %+v, want %+v", got, n)
	}
	if got.Features[domain.Country] != "US" || got.Features[domain.NodeProvider] != "np1" {
		t.Errorf("features = %+v", got.Features)
	}
}

func TestStore_GetNode_Missing(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.GetNode("ghost")
	if err != nil {
		t.Fatalf("GetNode() error: %v", err)
	}
	if ok {
		t.Error("ok = true for missing node")
	}
}

func TestStore_UpsertNode_Overwrites(t *testing.T) {
	s := newTestStore(t)
	n := domain.Node{ID: "n1", Features: domain.NodeFeatures{domain.Country: "US"}}
	if err := s.UpsertNode(n); err != nil {
		t.Fatal(err)
	}
	n.Features[domain.Country] = "CH"
	n.DfinityOwned = true
	if err := s.UpsertNode(n); err != nil {
		t.Fatal(err)
	}
	got, _, err := s.GetNode("n1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Features[domain.Country] != "CH" || !got.DfinityOwned {
		t.Errorf("overwrite did not take effect: %+v", got)
	}
}

func TestStore_ListNodes(t *testing.T) {
	s := newTestStore(t)
	nodes := []domain.Node{
		{ID: "b", Features: domain.NodeFeatures{domain.Country: "CH"}},
		{ID: "a", Features: domain.NodeFeatures{domain.Country: "US"}},
	}
	if err := s.UpsertNodes(nodes); err != nil {
		t.Fatalf("UpsertNodes() error: %v", err)
	}
	got, err := s.ListNodes()
	if err != nil {
		t.Fatalf("ListNodes() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("ListNodes() not ordered by id: %v, %v", got[0].ID, got[1].ID)
	}
}

func TestStore_DeleteNode(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertNode(domain.Node{ID: "n1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteNode("n1"); err != nil {
		t.Fatalf("DeleteNode() error: %v", err)
	}
	_, ok, err := s.GetNode("n1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("node still present after delete")
	}
}

func TestStore_CandidatePoolRoundTrip(t *testing.T) {
	s := newTestStore(t)
	nodes := []domain.Node{
		{ID: "n1", Features: domain.NodeFeatures{domain.Country: "US"}},
		{ID: "n2", Features: domain.NodeFeatures{domain.Country: "CH"}},
	}
	if err := s.UpsertNodes(nodes); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveCandidatePool("spares", []domain.NodeID{"n1", "n2"}); err != nil {
		t.Fatalf("SaveCandidatePool() error: %v", err)
	}

	pool, err := s.CandidatePool("spares")
	if err != nil {
		t.Fatalf("CandidatePool() error: %v", err)
	}
	if len(pool) != 2 {
		t.Fatalf("pool size = %d, want 2", len(pool))
	}
}

func TestStore_CandidatePool_Unknown(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CandidatePool("nope"); err == nil {
		t.Error("expected error for unknown pool name")
	}
}

func TestStore_CandidatePool_SkipsUncachedMembers(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertNode(domain.Node{ID: "n1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveCandidatePool("mixed", []domain.NodeID{"n1", "ghost"}); err != nil {
		t.Fatal(err)
	}
	pool, err := s.CandidatePool("mixed")
	if err != nil {
		t.Fatal(err)
	}
	if len(pool) != 1 || pool[0].ID != "n1" {
		t.Errorf("pool = %v, want just n1", pool)
	}
}

func TestStore_PruneOlderThan(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertNode(domain.Node{ID: "n1"}); err != nil {
		t.Fatal(err)
	}
	n, err := s.PruneOlderThan(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneOlderThan() error: %v", err)
	}
	if n != 0 {
		t.Errorf("pruned %d fresh rows, want 0", n)
	}
	n, err = s.PruneOlderThan(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
}
