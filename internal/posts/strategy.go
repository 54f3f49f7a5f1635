package posts

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/alphabot-ai/ysocial/internal/model"
)

const (
	StrategyRecency = "recency"
	StrategyRandom  = "random"

	DefaultRecencyLimit = 30
	DefaultSampleLimit  = 10
)

// FeedStrategy selects and orders the feed out of every post in the document.
// Select may reorder the slice it is given.
type FeedStrategy interface {
	Name() string
	Select(posts []model.PostView) []model.PostView
}

// RankByRecency orders posts by id, newest first, and keeps the first Limit.
type RankByRecency struct {
	Limit int
}

func (RankByRecency) Name() string { return StrategyRecency }

func (r RankByRecency) Select(posts []model.PostView) []model.PostView {
	slices.SortStableFunc(posts, func(a, b model.PostView) int {
		return cmp.Compare(b.ID, a.ID)
	})
	return truncate(posts, r.Limit)
}

// RandomSample returns up to Limit posts drawn uniformly without replacement.
type RandomSample struct {
	Limit int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSample builds a sampler. A nil src seeds from the runtime.
func NewRandomSample(limit int, src rand.Source) *RandomSample {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &RandomSample{Limit: limit, rng: rand.New(src)}
}

func (*RandomSample) Name() string { return StrategyRandom }

func (r *RandomSample) Select(posts []model.PostView) []model.PostView {
	r.mu.Lock()
	r.rng.Shuffle(len(posts), func(i, j int) {
		posts[i], posts[j] = posts[j], posts[i]
	})
	r.mu.Unlock()
	return truncate(posts, r.Limit)
}

// StrategyByName maps a configured name onto a strategy.
func StrategyByName(name string, recencyLimit, sampleLimit int) (FeedStrategy, error) {
	if recencyLimit <= 0 {
		recencyLimit = DefaultRecencyLimit
	}
	if sampleLimit <= 0 {
		sampleLimit = DefaultSampleLimit
	}
	switch name {
	case "", StrategyRecency:
		return RankByRecency{Limit: recencyLimit}, nil
	case StrategyRandom:
		return NewRandomSample(sampleLimit, nil), nil
	default:
		return nil, fmt.Errorf("unknown feed strategy %q", name)
	}
}

func truncate(posts []model.PostView, limit int) []model.PostView {
	if limit > 0 && len(posts) > limit {
		return posts[:limit]
	}
	return posts
}
