package shared

import (
	"testing"
)

func TestChunk(t *testing.T) {
	t.Run("splits with a remainder chunk", func(t *testing.T) {
		items := make([]int, 250)
		chunks := Chunk(items, 100)

		if len(chunks) != 3 {
			t.Fatalf("expected 3 chunks, got %d", len(chunks))
		}
		for i, want := range []int{100, 100, 50} {
			if len(chunks[i]) != want {
				t.Errorf("chunk %d: expected %d items, got %d", i, want, len(chunks[i]))
			}
		}
	})

	t.Run("input smaller than size yields one chunk", func(t *testing.T) {
		chunks := Chunk([]string{"a", "b"}, 100)
		if len(chunks) != 1 || len(chunks[0]) != 2 {
			t.Errorf("expected single chunk of 2, got %v", chunks)
		}
	})

	t.Run("empty input yields no chunks", func(t *testing.T) {
		if chunks := Chunk([]int{}, 10); chunks != nil {
			t.Errorf("expected nil, got %v", chunks)
		}
	})

	t.Run("non-positive size yields one chunk", func(t *testing.T) {
		chunks := Chunk([]int{1, 2, 3}, 0)
		if len(chunks) != 1 || len(chunks[0]) != 3 {
			t.Errorf("expected single chunk, got %v", chunks)
		}
	})

	t.Run("exact multiple has no short chunk", func(t *testing.T) {
		chunks := Chunk(make([]int, 200), 100)
		if len(chunks) != 2 || len(chunks[1]) != 100 {
			t.Errorf("expected two full chunks, got %d chunks", len(chunks))
		}
	})
}

func TestDedupe(t *testing.T) {
	t.Run("removes duplicates preserving first-seen order", func(t *testing.T) {
		got := Dedupe([]string{"b", "a", "b", "c", "a"}, func(s string) string { return s })

		want := []string{"b", "a", "c"}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
			}
		}
	})

	t.Run("dedupes by derived key", func(t *testing.T) {
		type item struct{ ID, Name string }
		items := []item{{"1", "first"}, {"1", "second"}, {"2", "third"}}

		got := Dedupe(items, func(i item) string { return i.ID })
		if len(got) != 2 || got[0].Name != "first" {
			t.Errorf("expected first occurrence kept, got %v", got)
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a, b)
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty state tokens, got %q and %q", a, b)
	}
}
