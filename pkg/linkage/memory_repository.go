package linkage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type linkageKey struct {
	provider       string
	providerUserID string
}

// InMemoryRepository implements Repository in process memory
type InMemoryRepository struct {
	mu       sync.RWMutex
	linkages map[linkageKey]*Linkage
	now      func() time.Time
}

// NewInMemoryRepository creates a new in-memory linkage repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		linkages: make(map[linkageKey]*Linkage),
		now:      time.Now,
	}
}

func (r *InMemoryRepository) Exists(ctx context.Context, provider, providerUserID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.linkages[linkageKey{provider, providerUserID}]
	return ok, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, provider, providerUserID string) (*Linkage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.linkages[linkageKey{provider, providerUserID}]
	if !ok {
		return nil, errNotFound(provider, providerUserID)
	}
	copied := *l
	return &copied, nil
}

func (r *InMemoryRepository) Upsert(ctx context.Context, params UpsertParams) (*Linkage, bool, error) {
	if err := validateParams(params); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := linkageKey{params.Provider, params.ProviderUserID}

	existing, ok := r.linkages[key]
	if !ok {
		l := &Linkage{
			Provider:       params.Provider,
			ProviderUserID: params.ProviderUserID,
			LocalUserID:    params.LocalUserID,
			AccessToken:    params.Token.AccessToken,
			RefreshToken:   params.Token.RefreshToken,
			TokenType:      params.Token.TokenType,
			Expiry:         params.Token.Expiry,
			DisplayName:    params.DisplayName,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		r.linkages[key] = l
		copied := *l
		return &copied, true, nil
	}

	if existing.LocalUserID != params.LocalUserID {
		return nil, false, errConflict(params.Provider, params.ProviderUserID)
	}

	existing.AccessToken = params.Token.AccessToken
	existing.RefreshToken = params.Token.RefreshToken
	existing.TokenType = params.Token.TokenType
	existing.Expiry = params.Token.Expiry
	existing.DisplayName = params.DisplayName
	existing.UpdatedAt = now

	copied := *existing
	return &copied, false, nil
}

func (r *InMemoryRepository) ListForLocalUser(ctx context.Context, localUserID uuid.UUID) ([]Linkage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Linkage
	for _, l := range r.linkages {
		if l.LocalUserID == localUserID {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ProviderUserID < result[j].ProviderUserID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *InMemoryRepository) GetToken(ctx context.Context, provider, providerUserID string) (*Token, error) {
	l, err := r.Get(ctx, provider, providerUserID)
	if err != nil {
		return nil, err
	}
	return l.Token(), nil
}
