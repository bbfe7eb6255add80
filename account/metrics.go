package account

import "github.com/ethereum/go-ethereum/metrics"

var (
	executeSuccessMeter = metrics.NewRegisteredMeter("xaccount/execute/success", nil)
	executeFailMeter    = metrics.NewRegisteredMeter("xaccount/execute/fail", nil)
	verifyRejectMeter   = metrics.NewRegisteredMeter("xaccount/verify/reject", nil)
	executeTimer        = metrics.NewRegisteredTimer("xaccount/execute/time", nil)
)
