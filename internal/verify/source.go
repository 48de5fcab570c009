package verify

import "context"

// ClusterNode is one entry of getClusterNodes.
type ClusterNode struct {
	Pubkey       string  `json:"pubkey"`
	Gossip       *string `json:"gossip"`
	TPU          *string `json:"tpu"`
	RPC          *string `json:"rpc"`
	Version      *string `json:"version"`
	ShredVersion *uint16 `json:"shredVersion"`
}

// VoteAccount is one entry of getVoteAccounts.
type VoteAccount struct {
	VotePubkey       string `json:"votePubkey"`
	NodePubkey       string `json:"nodePubkey"`
	ActivatedStake   uint64 `json:"activatedStake"`
	EpochVoteAccount bool   `json:"epochVoteAccount"`
	Commission       int    `json:"commission"`
	LastVote         uint64 `json:"lastVote"`
	RootSlot         uint64 `json:"rootSlot"`
}

// VoteAccounts is the result of getVoteAccounts.
type VoteAccounts struct {
	Current    []VoteAccount `json:"current"`
	Delinquent []VoteAccount `json:"delinquent"`
}

// TopologySource reports the cluster as one validator sees it.
type TopologySource interface {
	ClusterNodes(ctx context.Context) ([]ClusterNode, error)
	VoteAccounts(ctx context.Context) (*VoteAccounts, error)
}

// PodCounter counts Ready pods matching a label selector.
type PodCounter interface {
	CountReadyPods(ctx context.Context, namespace, labelSelector string) (int, error)
}
