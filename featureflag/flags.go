package featureflag

type Flag string

const (
	// FlagDisableOcclusionCache makes occlusion queries always compute their
	// verdict directly instead of consulting the cache filled by
	// RecalculateOcclusion.
	FlagDisableOcclusionCache Flag = "DISABLE_OCCLUSION_CACHE"

	// FlagEagerRebuild rebuilds the tree after every successful removal
	// instead of relying on lazy rebalancing.
	FlagEagerRebuild Flag = "EAGER_REBUILD"
)
