package posts

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/ysocial/internal/model"
)

func views(ids ...int64) []model.PostView {
	out := make([]model.PostView, len(ids))
	for i, id := range ids {
		out[i] = model.PostView{
			Post:     model.Post{ID: id, Message: fmt.Sprintf("post %d", id)},
			Username: fmt.Sprintf("user%d", i%3),
		}
	}
	return out
}

func TestRankByRecencySortsAndTruncates(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	ids := make([]int64, 45)
	for i := range ids {
		ids[i] = rng.Int64N(1_000_000)
	}

	got := RankByRecency{Limit: 30}.Select(views(ids...))
	require.Len(t, got, 30)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].ID, got[i].ID, "position %d", i)
	}
}

func TestRankByRecencyShortAndEmpty(t *testing.T) {
	got := RankByRecency{Limit: 30}.Select(views(100, 300, 200))
	require.Len(t, got, 3)
	assert.Equal(t, []int64{300, 200, 100}, []int64{got[0].ID, got[1].ID, got[2].ID})

	assert.Empty(t, RankByRecency{Limit: 30}.Select(nil))
}

func TestRankByRecencyKeepsDuplicateOrder(t *testing.T) {
	in := views(5, 5, 5)
	got := RankByRecency{Limit: 30}.Select(in)
	assert.Equal(t, []string{"user0", "user1", "user2"}, []string{got[0].Username, got[1].Username, got[2].Username})
}

func TestRandomSampleSize(t *testing.T) {
	s := NewRandomSample(10, rand.NewPCG(7, 7))
	for _, n := range []int{0, 1, 9, 10, 11, 40} {
		ids := make([]int64, n)
		for i := range ids {
			ids[i] = int64(i)
		}
		got := s.Select(views(ids...))
		assert.Len(t, got, min(n, 10), "n=%d", n)

		seen := map[int64]bool{}
		for _, v := range got {
			assert.False(t, seen[v.ID], "duplicate %d", v.ID)
			seen[v.ID] = true
			assert.Less(t, v.ID, int64(n))
		}
	}
}

func TestRandomSampleReachesEveryPost(t *testing.T) {
	s := NewRandomSample(10, rand.NewPCG(42, 99))
	const n = 25
	seen := map[int64]bool{}
	for round := 0; round < 200; round++ {
		ids := make([]int64, n)
		for i := range ids {
			ids[i] = int64(i)
		}
		for _, v := range s.Select(views(ids...)) {
			seen[v.ID] = true
		}
	}
	assert.Len(t, seen, n)
}

func TestStrategyByName(t *testing.T) {
	s, err := StrategyByName("", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, RankByRecency{Limit: DefaultRecencyLimit}, s)

	s, err = StrategyByName(StrategyRandom, 0, 5)
	require.NoError(t, err)
	rs, ok := s.(*RandomSample)
	require.True(t, ok)
	assert.Equal(t, 5, rs.Limit)

	_, err = StrategyByName("trending", 0, 0)
	assert.Error(t, err)
}
