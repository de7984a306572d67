package cache

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrArtifactNotFound is returned for unknown or expired download tokens.
var ErrArtifactNotFound = errors.New("artifact not found or expired")

// Artifact is a converted file held for download.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// ArtifactStore keeps converted files behind random tokens until they expire.
type ArtifactStore struct {
	cache *LRUCache[Artifact]
}

func NewArtifactStore(maxItems int, ttl time.Duration) *ArtifactStore {
	return &ArtifactStore{cache: NewLRUCache[Artifact](maxItems, ttl)}
}

// Put stores the artifact and returns its download token and expiry.
func (s *ArtifactStore) Put(a Artifact) (string, time.Time, error) {
	token, err := newToken()
	if err != nil {
		return "", time.Time{}, err
	}
	return token, s.cache.Set(token, a), nil
}

// Get returns the artifact stored under token.
func (s *ArtifactStore) Get(token string) (Artifact, error) {
	a, ok := s.cache.Get(token)
	if !ok {
		return Artifact{}, ErrArtifactNotFound
	}
	return a, nil
}

func (s *ArtifactStore) CleanExpired() int { return s.cache.CleanExpired() }

func (s *ArtifactStore) Size() int { return s.cache.Size() }

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
