package docstore

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestOpenGetClose(t *testing.T) {
	s := New()
	v := s.Open("file:///a.txt", "hello", 3)
	if v != 1 {
		t.Fatalf("expected version 1, got %d", v)
	}
	snap, err := s.Get("file:///a.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.Text != "hello" || snap.Version != 1 || snap.ClientVersion != 3 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if err := s.Close("file:///a.txt"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.Get("file:///a.txt"); !errors.Is(err, ErrUnknownDocument) {
		t.Fatalf("expected ErrUnknownDocument, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestUnknownDocument(t *testing.T) {
	s := New()
	if _, err := s.Change("nope", "x", 1); !errors.Is(err, ErrUnknownDocument) {
		t.Fatalf("change: expected ErrUnknownDocument, got %v", err)
	}
	if err := s.Close("nope"); !errors.Is(err, ErrUnknownDocument) {
		t.Fatalf("close: expected ErrUnknownDocument, got %v", err)
	}
	if _, ok := s.Version("nope"); ok {
		t.Fatalf("version reported for unknown document")
	}
}

func TestChangeIncrementsVersion(t *testing.T) {
	s := New()
	prev := s.Open("doc", "", 0)
	for i := range 20 {
		v, err := s.Change("doc", fmt.Sprintf("text %d", i), i)
		if err != nil {
			t.Fatalf("change %d: %v", i, err)
		}
		if v != prev+1 {
			t.Fatalf("expected version %d, got %d", prev+1, v)
		}
		prev = v
	}
	snap, _ := s.Get("doc")
	if snap.Text != "text 19" || snap.ClientVersion != 19 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestReopenNeverReusesVersion(t *testing.T) {
	s := New()
	s.Open("doc", "a", 1)
	if _, err := s.Change("doc", "b", 2); err != nil {
		t.Fatalf("change: %v", err)
	}
	if err := s.Close("doc"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if v := s.Open("doc", "c", 1); v != 3 {
		t.Fatalf("expected version 3 after reopen, got %d", v)
	}
}

func TestUpdateSeesPreviousText(t *testing.T) {
	s := New()
	s.Open("doc", "abc", 1)
	v, err := s.Update("doc", func(old string) string { return old + "def" }, 2)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	snap, _ := s.Get("doc")
	if v != 2 || snap.Text != "abcdef" {
		t.Fatalf("unexpected result v=%d text=%q", v, snap.Text)
	}
}

func TestIDsSorted(t *testing.T) {
	s := New()
	s.Open("c", "", 0)
	s.Open("a", "", 0)
	s.Open("b", "", 0)
	ids := s.IDs()
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestConcurrentChangesStayMonotonic(t *testing.T) {
	s := New()
	s.Open("doc", "", 0)

	const writers = 8
	const perWriter = 50
	var wg sync.WaitGroup
	results := make([][]int, writers)
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				v, err := s.Change("doc", fmt.Sprintf("%d-%d", w, i), i)
				if err != nil {
					t.Errorf("change: %v", err)
					return
				}
				results[w] = append(results[w], v)
			}
		}()
	}
	wg.Wait()

	seen := make(map[int]bool)
	for _, vs := range results {
		for i := 1; i < len(vs); i++ {
			if vs[i] <= vs[i-1] {
				t.Fatalf("versions not increasing: %v", vs)
			}
		}
		for _, v := range vs {
			if seen[v] {
				t.Fatalf("version %d returned twice", v)
			}
			seen[v] = true
		}
	}
	snap, _ := s.Get("doc")
	if snap.Version != 1+writers*perWriter {
		t.Fatalf("expected final version %d, got %d", 1+writers*perWriter, snap.Version)
	}
}
