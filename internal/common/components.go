package common

const (
	ComponentOrchestrator    = "orchestrator"
	ComponentChainSource     = "chain-source"
	ComponentReorgDetector   = "reorg-detector"
	ComponentBlockProcessor  = "block-processor"
	ComponentHandlerDispatch = "handler-dispatcher"
	ComponentABIRegistry     = "abi-registry"
	ComponentStore           = "store"
)

var AllComponents = map[string]struct{}{
	ComponentOrchestrator:    {},
	ComponentChainSource:     {},
	ComponentReorgDetector:   {},
	ComponentBlockProcessor:  {},
	ComponentHandlerDispatch: {},
	ComponentABIRegistry:     {},
	ComponentStore:           {},
}
