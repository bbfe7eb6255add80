// Package sysaction implements the cross-chain account system action protocol.
//
// System actions are special transactions sent to params.SystemActionAddress.
// Their tx.Data field is a JSON-encoded SysAction message. The EVM is never
// invoked; instead the state transition calls sysaction.Execute() which
// dispatches to the appropriate handler (registry, account).
package sysaction

import "encoding/json"

// ActionKind identifies the type of system action.
type ActionKind string

const (
	// Cross-chain account lifecycle
	ActionAccountDeploy  ActionKind = "XA_ACCOUNT_DEPLOY"
	ActionPayloadExecute ActionKind = "XA_PAYLOAD_EXECUTE"
)

// SysAction is the top-level envelope stored in tx.Data for system action txs.
type SysAction struct {
	Action  ActionKind      `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
