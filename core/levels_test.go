package core

import "testing"

func TestDefaultLevelsValid(t *testing.T) {
	if err := DefaultLevels().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLevelTableValidate(t *testing.T) {
	bad := LevelTable{{Name: "a", Min: 10}}
	if err := bad.Validate(); err == nil {
		t.Fatal("table not starting at 0 should fail")
	}
	overlap := LevelTable{{Name: "a", Min: 0}, {Name: "b", Min: 0}}
	if err := overlap.Validate(); err == nil {
		t.Fatal("non-ascending table should fail")
	}
}

func TestLevelFor(t *testing.T) {
	tbl := DefaultLevels()
	cases := []struct {
		balance int64
		want    string
	}{
		{-5, "Beginner"},
		{0, "Beginner"},
		{99, "Beginner"},
		{100, "Active"},
		{299, "Active"},
		{300, "Loyal"},
		{700, "Expert"},
		{1499, "Expert"},
		{1500, "Ambassador"},
		{1 << 40, "Ambassador"},
	}
	for _, c := range cases {
		if got := tbl.LevelFor(c.balance); got.Name != c.want {
			t.Fatalf("LevelFor(%d) = %s, want %s", c.balance, got.Name, c.want)
		}
	}
}

func TestLevelMonotonic(t *testing.T) {
	tbl := DefaultLevels()
	prev := -1
	for b := int64(-10); b <= 2000; b++ {
		rank := tbl.Rank(tbl.LevelFor(b).Name)
		if rank < prev {
			t.Fatalf("rank decreased at balance %d", b)
		}
		prev = rank
	}
}

func TestLevelNext(t *testing.T) {
	tbl := DefaultLevels()
	next, ok := tbl.Next(tbl.LevelFor(0))
	if !ok || next.Name != "Active" {
		t.Fatalf("got %v %v", next, ok)
	}
	if _, ok := tbl.Next(tbl.LevelFor(1500)); ok {
		t.Fatal("top tier should have no next")
	}
}
