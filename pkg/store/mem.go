package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/observability"
	"github.com/matzehuels/tilewarp/pkg/tilespec"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

// MemStore is an in-memory Store. Specs are held in their encoded form, so
// readers always get independent copies. Safe for concurrent use.
type MemStore struct {
	mu         sync.RWMutex
	transforms map[string]map[string][]byte
	tiles      map[string]map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		transforms: make(map[string]map[string][]byte),
		tiles:      make(map[string]map[string][]byte),
	}
}

func (s *MemStore) Stacks(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(s.transforms))
	for stack := range s.transforms {
		seen[stack] = true
	}
	for stack := range s.tiles {
		seen[stack] = true
	}
	out := make([]string, 0, len(seen))
	for stack := range seen {
		out = append(out, stack)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemStore) GetTransform(ctx context.Context, stack, id string) (transform.Transform, error) {
	if err := errors.ValidateStackName(stack); err != nil {
		return nil, err
	}
	if err := errors.ValidateTransformID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.transforms[stack][id]
	s.mu.RUnlock()
	observability.Store().OnStoreGet(ctx, stack, id, ok)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "transform %q not found in stack %q", id, stack)
	}
	return transform.Decode(data)
}

func (s *MemStore) PutTransform(ctx context.Context, stack string, t transform.Transform) (string, error) {
	if err := errors.ValidateStackName(stack); err != nil {
		return "", err
	}
	if err := validateClassNames(t); err != nil {
		return "", err
	}
	id, err := ensureSpecID(t)
	if err != nil {
		return "", err
	}
	data, err := transform.Encode(t)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.transforms[stack] == nil {
		s.transforms[stack] = make(map[string][]byte)
	}
	s.transforms[stack][id] = data
	s.mu.Unlock()
	observability.Store().OnStorePut(ctx, stack, id)
	return id, nil
}

func (s *MemStore) ListTransforms(ctx context.Context, stack string) ([]string, error) {
	if err := errors.ValidateStackName(stack); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.transforms[stack]))
	for id := range s.transforms[stack] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemStore) GetTileSpec(ctx context.Context, stack, tileID string) (*tilespec.TileSpec, error) {
	if err := errors.ValidateStackName(stack); err != nil {
		return nil, err
	}
	if err := errors.ValidateTileID(tileID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.tiles[stack][tileID]
	s.mu.RUnlock()
	observability.Store().OnStoreGet(ctx, stack, tileID, ok)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "tile %q not found in stack %q", tileID, stack)
	}

	var ts tilespec.TileSpec
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

func (s *MemStore) PutTileSpec(ctx context.Context, stack string, ts *tilespec.TileSpec) error {
	if err := errors.ValidateStackName(stack); err != nil {
		return err
	}
	if err := ts.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(ts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.tiles[stack] == nil {
		s.tiles[stack] = make(map[string][]byte)
	}
	s.tiles[stack][ts.TileID] = data
	s.mu.Unlock()
	observability.Store().OnStorePut(ctx, stack, ts.TileID)
	return nil
}

func (s *MemStore) Close() error { return nil }

var _ Store = (*MemStore)(nil)
