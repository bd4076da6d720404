package reviews

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type key struct{ user, product int64 }

type fakeStore struct {
	mu      sync.Mutex
	reviews map[key]Review
}

func newFakeStore(seed ...Review) *fakeStore {
	s := &fakeStore{reviews: make(map[key]Review)}
	for _, r := range seed {
		s.reviews[key{r.UserID, r.ProductID}] = r
	}
	return s
}

func (s *fakeStore) Create(_ context.Context, r Review) (Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{r.UserID, r.ProductID}
	if _, ok := s.reviews[k]; ok {
		return Review{}, ErrConflict
	}
	s.reviews[k] = r
	return r, nil
}

func (s *fakeStore) list(match func(Review) bool) []Review {
	out := []Review{}
	for _, r := range s.reviews {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (s *fakeStore) ListByProduct(_ context.Context, productID int64) ([]Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(r Review) bool { return r.ProductID == productID }), nil
}

func (s *fakeStore) ListByUser(_ context.Context, userID int64) ([]Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(r Review) bool { return r.UserID == userID }), nil
}

func (s *fakeStore) Get(_ context.Context, userID, productID int64) (Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[key{userID, productID}]
	if !ok {
		return Review{}, ErrNotFound
	}
	return r, nil
}

func (s *fakeStore) Delete(_ context.Context, userID, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{userID, productID}
	if _, ok := s.reviews[k]; !ok {
		return ErrNotFound
	}
	delete(s.reviews, k)
	return nil
}

func (s *fakeStore) AverageRating(_ context.Context, productID int64) (float64, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum, n int
	for _, r := range s.reviews {
		if r.ProductID == productID {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}

type ratingSink map[int64]float64

func (r ratingSink) SetRating(_ context.Context, productID int64, rating float64) error {
	r[productID] = rating
	return nil
}

func TestCreateRecomputesRating(t *testing.T) {
	store := newFakeStore(Review{UserID: 4, ProductID: 10, Rating: 2, Comment: "meh"})
	sink := ratingSink{}
	svc := NewService(store, sink, zap.NewNop())

	if _, err := svc.Create(context.Background(), 3, CreateReviewRequest{ProductID: 10, Rating: 5, Comment: "great"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sink[10] != 3.5 {
		t.Fatalf("expected rating 3.5, got %v", sink[10])
	}

	_, err := svc.Create(context.Background(), 3, CreateReviewRequest{ProductID: 10, Rating: 4, Comment: "again"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on second review, got %v", err)
	}

	_, err = svc.Create(context.Background(), 3, CreateReviewRequest{ProductID: 11, Rating: 6, Comment: "x"})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error for rating 6, got %v", err)
	}
}

func TestDeleteResetsRating(t *testing.T) {
	store := newFakeStore(Review{UserID: 3, ProductID: 10, Rating: 1, Comment: "bad"})
	sink := ratingSink{10: 1}
	svc := NewService(store, sink, zap.NewNop())

	if err := svc.Delete(context.Background(), 3, 10); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if sink[10] != DefaultRating {
		t.Fatalf("expected default rating, got %v", sink[10])
	}
	if err := svc.Delete(context.Background(), 3, 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type failingSink struct{}

func (failingSink) SetRating(context.Context, int64, float64) error {
	return errors.New("products unavailable")
}

func TestRatingFailureDoesNotFailReviewWrites(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := newFakeStore()
	svc := NewService(store, failingSink{}, zap.New(core))

	r, err := svc.Create(context.Background(), 3, CreateReviewRequest{ProductID: 10, Rating: 4, Comment: "solid"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.Rating != 4 {
		t.Fatalf("unexpected review %+v", r)
	}
	if _, err := store.Get(context.Background(), 3, 10); err != nil {
		t.Fatalf("review must be stored: %v", err)
	}
	if err := svc.Delete(context.Background(), 3, 10); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := logs.FilterMessage("failed to update product rating").Len(); n != 2 {
		t.Fatalf("expected 2 rating warnings, got %d", n)
	}
}
