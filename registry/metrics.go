package registry

import "github.com/ethereum/go-ethereum/metrics"

var (
	accountDeployMeter   = metrics.NewRegisteredMeter("xaccount/registry/deploy", nil)
	deriveCacheHitMeter  = metrics.NewRegisteredMeter("xaccount/registry/derive/hit", nil)
	deriveCacheMissMeter = metrics.NewRegisteredMeter("xaccount/registry/derive/miss", nil)
)
