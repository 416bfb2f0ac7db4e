package strategies

import (
	"fmt"

	"github.com/johnhenry/ai.matey-sub001/pkg/routing"
)

// ForName constructs the built-in strategy with the given
// configuration name. Custom strategies are built with NewCustom and
// passed to the router directly, so they have no name here.
func ForName(name string) (routing.Strategy, error) {
	switch name {
	case "explicit":
		return NewExplicit(), nil
	case "model-based", "":
		return NewModelBased(), nil
	case "cost-optimized":
		return NewCostOptimized(), nil
	case "latency-optimized":
		return NewLatencyOptimized(), nil
	case "round-robin":
		return NewRoundRobin(), nil
	case "random":
		return NewRandom(), nil
	default:
		return nil, fmt.Errorf("unknown routing strategy %q", name)
	}
}
