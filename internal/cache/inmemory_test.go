package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type InMemoryCacheSuite struct {
	suite.Suite
	ctx   context.Context
	cache Cache
}

func TestInMemoryCache(t *testing.T) {
	suite.Run(t, new(InMemoryCacheSuite))
}

func (s *InMemoryCacheSuite) SetupTest() {
	s.ctx = context.Background()
	s.cache = NewInMemoryCache(nil)
}

func (s *InMemoryCacheSuite) TestAddOnlyWhenAbsent() {
	key := GenerateKey(PrefixIdempotency, "tenant_a", "k")

	s.True(s.cache.Add(s.ctx, key, "first", 0))
	s.False(s.cache.Add(s.ctx, key, "second", 0))

	got, ok := s.cache.Get(s.ctx, key)
	s.True(ok)
	s.Equal("first", got)
}

func (s *InMemoryCacheSuite) TestDeleteFreesKey() {
	s.cache.Set(s.ctx, "k", 1, 0)
	s.cache.Delete(s.ctx, "k")

	_, ok := s.cache.Get(s.ctx, "k")
	s.False(ok)
	s.True(s.cache.Add(s.ctx, "k", 2, 0))
}

func (s *InMemoryCacheSuite) TestExpiredEntryIsGone() {
	s.cache.Set(s.ctx, "k", 1, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := s.cache.Get(s.ctx, "k")
	s.False(ok)
}

func (s *InMemoryCacheSuite) TestGenerateKeyJoinsParts() {
	s.Equal("idempotency:v1::tenant_a:7", GenerateKey(PrefixIdempotency, "tenant_a", 7))
}
