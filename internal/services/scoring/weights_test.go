package scoring

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultWeightTableNormalised(t *testing.T) {
	table := DefaultWeightTable()

	if table.Len() != 15 {
		t.Fatalf("expected 15 entries, got %d", table.Len())
	}
	if sum := table.Sum(); math.Abs(sum-1) > 1e-9 {
		t.Fatalf("normalised weights sum to %v", sum)
	}

	e, ok := table.Lookup(IDPiCycle)
	if !ok {
		t.Fatal("pi-cycle missing")
	}
	if math.Abs(e.Weight-0.30/1.97) > 1e-12 {
		t.Fatalf("pi-cycle weight %v", e.Weight)
	}
	if e.Tier != TierPrimary {
		t.Fatalf("pi-cycle tier %q", e.Tier)
	}
	if ids := table.IDs(); ids[0] != IDPiCycle || ids[len(ids)-1] != IDHashRibbons {
		t.Fatalf("declaration order lost: %v", ids)
	}
}

func TestBuildWeightTableErrors(t *testing.T) {
	cases := []struct {
		name  string
		decls []WeightDeclaration
		want  error
	}{
		{"empty", nil, ErrEmptyTable},
		{"blank id", []WeightDeclaration{{ID: "  ", DeclaredWeight: 1}}, ErrInvalidID},
		{"duplicate", []WeightDeclaration{{ID: "a", DeclaredWeight: 1}, {ID: "a", DeclaredWeight: 2}}, ErrDuplicateID},
		{"negative", []WeightDeclaration{{ID: "a", DeclaredWeight: -1}, {ID: "b", DeclaredWeight: 2}}, ErrInvalidWeight},
		{"nan", []WeightDeclaration{{ID: "a", DeclaredWeight: math.NaN()}}, ErrInvalidWeight},
		{"zero sum", []WeightDeclaration{{ID: "a"}, {ID: "b"}}, ErrInvalidWeight},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := BuildWeightTable(c.decls); !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
		})
	}
}

func TestBuildWeightTableKeepsZeroWeights(t *testing.T) {
	table, err := BuildWeightTable([]WeightDeclaration{{ID: "a", DeclaredWeight: 3}, {ID: "b"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	a, _ := table.Lookup("a")
	b, ok := table.Lookup("b")
	if !ok || b.Weight != 0 || a.Weight != 1 {
		t.Fatalf("unexpected entries a=%+v b=%+v", a, b)
	}
	if _, ok := table.Lookup("c"); ok {
		t.Fatal("lookup of unknown id should miss")
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	table := DefaultWeightTable()
	es := table.Entries()
	es[0].Weight = 42
	if e, _ := table.Lookup(es[0].ID); e.Weight == 42 {
		t.Fatal("table mutated through Entries")
	}
}

func TestTierFor(t *testing.T) {
	cases := map[float64]Tier{
		0.30: TierPrimary, 0.20: TierPrimary,
		0.19: TierSecondary, 0.10: TierSecondary,
		0.08: TierSupporting, 0.05: TierSupporting,
		0.04: TierMinor, 0: TierMinor,
	}
	for w, want := range cases {
		if got := TierFor(w); got != want {
			t.Errorf("TierFor(%v) = %q, want %q", w, got, want)
		}
	}
}

func TestTiersGrouping(t *testing.T) {
	groups := DefaultWeightTable().Tiers()
	if len(groups) != 4 {
		t.Fatalf("expected 4 groups, got %d", len(groups))
	}
	want := map[Tier]int{TierPrimary: 3, TierSecondary: 6, TierSupporting: 4, TierMinor: 2}
	total := 0
	for _, g := range groups {
		if len(g.Entries) != want[g.Tier] {
			t.Errorf("tier %q has %d entries, want %d", g.Tier, len(g.Entries), want[g.Tier])
		}
		total += len(g.Entries)
	}
	if total != 15 {
		t.Fatalf("grouping lost entries: %d", total)
	}
	if groups[0].Tier != TierPrimary {
		t.Fatalf("primary should come first, got %q", groups[0].Tier)
	}
}
