package rtree

import (
	"testing"

	"github.com/hvitr/skuggi/featureflag"
	"github.com/hvitr/skuggi/geom"
	"github.com/hvitr/skuggi/scene"
	"github.com/stretchr/testify/require"
)

func TestTreeIsCompletelyOccluded(t *testing.T) {
	t.Run("Occlusion: covered element is hidden", func(t *testing.T) {
		tree := New()
		require.NoError(t, tree.Insert(geom.NewRect(20, 20, 10, 10), 1, "hidden"))
		require.NoError(t, tree.Insert(geom.NewRect(15, 15, 20, 20), 5, "cover"))

		require.True(t, tree.IsCompletelyOccluded("hidden"))
		require.False(t, tree.IsCompletelyOccluded("cover"))
		require.Equal(t, []any{"cover"}, tree.QueryVisible(geom.NewRect(0, 0, 100, 100)))
	})

	t.Run("Occlusion: union of partial occluders never hides", func(t *testing.T) {
		tree := New()
		require.NoError(t, tree.Insert(geom.NewRect(0, 0, 10, 10), 1, "lower"))
		require.NoError(t, tree.Insert(geom.NewRect(0, 0, 5, 10), 5, "left"))
		require.NoError(t, tree.Insert(geom.NewRect(5, 0, 5, 10), 5, "right"))

		require.False(t, tree.IsCompletelyOccluded("lower"))
	})

	t.Run("Occlusion: equal z never hides", func(t *testing.T) {
		tree := New()
		require.NoError(t, tree.Insert(geom.NewRect(5, 5, 5, 5), 3, "inner"))
		require.NoError(t, tree.Insert(geom.NewRect(0, 0, 20, 20), 3, "outer"))

		require.False(t, tree.IsCompletelyOccluded("inner"))
	})

	t.Run("Occlusion: unknown element", func(t *testing.T) {
		tree := New()
		require.False(t, tree.IsCompletelyOccluded("missing"))
	})
}

func TestTreeFindOccludedByAndOccluding(t *testing.T) {
	tree := New()
	require.NoError(t, tree.Insert(geom.NewRect(0, 0, 20, 20), 5, "mid"))
	require.NoError(t, tree.Insert(geom.NewRect(10, 10, 20, 20), 1, "below"))
	require.NoError(t, tree.Insert(geom.NewRect(5, 5, 20, 20), 9, "above"))
	require.NoError(t, tree.Insert(geom.NewRect(100, 100, 20, 20), 9, "far"))

	require.ElementsMatch(t, []any{"below"}, tree.FindOccludedBy("mid"))
	require.ElementsMatch(t, []any{"above"}, tree.FindOccluding("mid"))
	require.Empty(t, tree.FindOccluding("far"))
	require.Empty(t, tree.FindOccludedBy("missing"))
}

func TestTreeVisibleRegion(t *testing.T) {
	t.Run("VisibleRegion: unobstructed element keeps its bounds", func(t *testing.T) {
		tree := New()
		require.NoError(t, tree.Insert(geom.NewRect(10, 10, 20, 20), 1, "a"))

		r := tree.VisibleRegion("a")
		require.NotNil(t, r)
		require.Equal(t, geom.NewRect(10, 10, 20, 20), *r)
	})

	t.Run("VisibleRegion: fully occluded is nil", func(t *testing.T) {
		tree := New()
		require.NoError(t, tree.Insert(geom.NewRect(20, 20, 10, 10), 1, "hidden"))
		require.NoError(t, tree.Insert(geom.NewRect(15, 15, 20, 20), 5, "cover"))

		require.Nil(t, tree.VisibleRegion("hidden"))
	})

	t.Run("VisibleRegion: partial occluder clips to the largest slab", func(t *testing.T) {
		tree := New()
		require.NoError(t, tree.Insert(geom.NewRect(20, 20, 20, 20), 1, "under"))
		require.NoError(t, tree.Insert(geom.NewRect(30, 20, 20, 20), 5, "over"))

		r := tree.VisibleRegion("under")
		require.NotNil(t, r)
		require.Equal(t, geom.NewRect(20, 20, 10, 20), *r)
	})

	t.Run("VisibleRegion: multiple occluders stay within bounds area", func(t *testing.T) {
		tree := New()
		require.NoError(t, tree.Insert(geom.NewRect(0, 0, 10, 10), 1, "under"))
		require.NoError(t, tree.Insert(geom.NewRect(0, 0, 10, 4), 5, "strip top"))
		require.NoError(t, tree.Insert(geom.NewRect(0, 6, 10, 4), 6, "strip bottom"))

		r := tree.VisibleRegion("under")
		require.NotNil(t, r)
		require.Equal(t, geom.NewRect(0, 4, 10, 2), *r)
		require.GreaterOrEqual(t, r.Area(), 0)
		require.LessOrEqual(t, r.Area(), 100)
	})

	t.Run("VisibleRegion: unknown element is nil", func(t *testing.T) {
		tree := New()
		require.Nil(t, tree.VisibleRegion("missing"))
	})
}

func TestTreeFindRevealedByMovement(t *testing.T) {
	tree := New()
	require.NoError(t, tree.Insert(geom.NewRect(20, 20, 20, 20), 1, "lower"))
	require.NoError(t, tree.Insert(geom.NewRect(90, 90, 20, 20), 1, "untouched"))

	revealed := tree.FindRevealedByMovement(
		geom.NewRect(20, 20, 20, 20),
		geom.NewRect(50, 50, 20, 20),
		5,
	)
	require.Equal(t, []any{"lower"}, revealed)

	t.Run("RevealedByMovement: still covered after the move", func(t *testing.T) {
		revealed := tree.FindRevealedByMovement(
			geom.NewRect(20, 20, 20, 20),
			geom.NewRect(25, 25, 20, 20),
			5,
		)
		require.Empty(t, revealed)
	})

	t.Run("RevealedByMovement: higher elements are not revealed", func(t *testing.T) {
		revealed := tree.FindRevealedByMovement(
			geom.NewRect(20, 20, 20, 20),
			geom.NewRect(50, 50, 20, 20),
			1,
		)
		require.Empty(t, revealed)
	})
}

func TestTreeQueryVisibleOrder(t *testing.T) {
	tree := New()
	require.NoError(t, tree.Insert(geom.NewRect(0, 0, 10, 10), 2, "low"))
	require.NoError(t, tree.Insert(geom.NewRect(30, 0, 10, 10), 8, "high"))
	require.NoError(t, tree.Insert(geom.NewRect(60, 0, 10, 10), 5, "mid"))

	got := tree.QueryVisible(geom.NewRect(0, 0, 100, 100))
	require.Equal(t, []any{"high", "mid", "low"}, got)
}

func TestTreeRecalculateOcclusion(t *testing.T) {
	t.Run("RecalculateOcclusion: verdicts are cached", func(t *testing.T) {
		tree := New()
		require.NoError(t, tree.Insert(geom.NewRect(20, 20, 10, 10), 1, "hidden"))
		require.NoError(t, tree.Insert(geom.NewRect(15, 15, 20, 20), 5, "cover"))

		tree.RecalculateOcclusion()
		require.True(t, tree.occlusion.valid)
		require.True(t, tree.IsCompletelyOccluded("hidden"))
		require.False(t, tree.IsCompletelyOccluded("cover"))

		// mutation invalidates the cache and queries fall back to direct
		// computation
		require.True(t, tree.Remove(geom.NewRect(15, 15, 20, 20), 5, "cover"))
		require.False(t, tree.occlusion.valid)
		require.False(t, tree.IsCompletelyOccluded("hidden"))
	})

	t.Run("RecalculateOcclusion: scene elements are mirrored", func(t *testing.T) {
		tree := New()
		hidden := scene.NewElement(geom.NewRect(20, 20, 10, 10), 1, "hidden")
		cover := scene.NewElement(geom.NewRect(15, 15, 20, 20), 5, "cover")
		require.NoError(t, tree.Insert(hidden.Bounds, hidden.ZIndex, hidden))
		require.NoError(t, tree.Insert(cover.Bounds, cover.ZIndex, cover))

		tree.RecalculateOcclusion()
		require.True(t, hidden.FullyOccluded)
		require.False(t, cover.FullyOccluded)
		require.Contains(t, hidden.OccludedBy, cover)
		require.Contains(t, cover.Occludes, hidden)
	})

	t.Run("RecalculateOcclusion: cache disabled by flag", func(t *testing.T) {
		tree := New(WithFeatureFlags(featureflag.New([]string{
			string(featureflag.FlagDisableOcclusionCache),
		})))
		require.NoError(t, tree.Insert(geom.NewRect(20, 20, 10, 10), 1, "hidden"))
		require.NoError(t, tree.Insert(geom.NewRect(15, 15, 20, 20), 5, "cover"))

		tree.RecalculateOcclusion()
		require.False(t, tree.occlusion.valid)
		require.True(t, tree.IsCompletelyOccluded("hidden"))
	})
}

func TestTreeAgreesWithReferenceModel(t *testing.T) {
	// the linear calculator defines the semantics; the index must agree on
	// which elements survive a visibility pass
	viewport := geom.NewRect(0, 0, 200, 200)
	bounds := []geom.Rect{
		{X: 0, Y: 0, Width: 40, Height: 40},
		{X: 10, Y: 10, Width: 10, Height: 10},
		{X: 5, Y: 5, Width: 30, Height: 30},
		{X: 100, Y: 100, Width: 20, Height: 20},
		{X: 105, Y: 105, Width: 5, Height: 5},
		{X: 30, Y: 30, Width: 40, Height: 40},
	}
	zs := []int{2, 1, 7, 3, 9, 3}

	elements := make([]*scene.Element, len(bounds))
	tree := New()
	for i := range bounds {
		elements[i] = scene.NewElement(bounds[i], zs[i], i)
		require.NoError(t, tree.Insert(bounds[i], zs[i], elements[i]))
	}

	expected := scene.CalculateVisible(elements, viewport)

	got := tree.QueryVisible(viewport)
	expectedSet := make([]any, len(expected))
	for i, e := range expected {
		expectedSet[i] = any(e)
	}
	require.ElementsMatch(t, expectedSet, got)

	// both sides paint topmost first
	for i := 1; i < len(got); i++ {
		require.GreaterOrEqual(t, got[i-1].(*scene.Element).ZIndex, got[i].(*scene.Element).ZIndex)
	}
}
