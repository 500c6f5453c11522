// Package dapp mediates inbound Web3 JSON-RPC requests from content
// surfaces: classification, approval gating, session bookkeeping and
// dispatch against the active chain.
package dapp

// classification of an inbound method.
type classification int

const (
	// classDirect completes without touching approval state.
	classDirect classification = iota
	// classApproval suspends until the user resolves it.
	classApproval
	// classPassthrough forwards verbatim to the active chain client.
	classPassthrough
)

// approvalMethods request account access, change or add networks, watch
// assets, broaden permissions, or produce a signature or transaction.
var approvalMethods = map[string]bool{
	"eth_requestAccounts":        true,
	"eth_sendTransaction":        true,
	"eth_signTransaction":        true,
	"eth_sign":                   true,
	"personal_sign":              true,
	"eth_signTypedData":          true,
	"eth_signTypedData_v3":       true,
	"eth_signTypedData_v4":       true,
	"wallet_switchEthereumChain": true,
	"wallet_addEthereumChain":    true,
	"wallet_watchAsset":          true,
	"wallet_requestPermissions":  true,
}

// directMethods are pure reads answered locally or from the active chain.
var directMethods = map[string]bool{
	"eth_accounts":          true,
	"eth_chainId":           true,
	"net_version":           true,
	"eth_getBalance":        true,
	"eth_blockNumber":       true,
	"eth_call":              true,
	"eth_estimateGas":       true,
	"eth_gasPrice":          true,
	"wallet_getPermissions": true,
}

// signingMethods are the approval methods whose execution is delegated to
// the host UI's signing flow after the gate.
var signingMethods = map[string]bool{
	"eth_sendTransaction":  true,
	"eth_signTransaction":  true,
	"eth_sign":             true,
	"personal_sign":        true,
	"eth_signTypedData":    true,
	"eth_signTypedData_v3": true,
	"eth_signTypedData_v4": true,
}

func classify(method string) classification {
	switch {
	case approvalMethods[method]:
		return classApproval
	case directMethods[method]:
		return classDirect
	default:
		return classPassthrough
	}
}
