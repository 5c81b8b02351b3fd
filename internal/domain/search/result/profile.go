package result

// QueryProfile is the timing breakdown for one query node on one shard.
// Children mirror the query tree.
type QueryProfile struct {
	Type        string           `json:"type"`
	Description string           `json:"description"`
	TimeNanos   int64            `json:"time_in_nanos"`
	Breakdown   map[string]int64 `json:"breakdown,omitempty"`
	Children    []*QueryProfile  `json:"children,omitempty"`
}

// CollectorProfile is the timing breakdown for one collector in the chain.
type CollectorProfile struct {
	Name      string              `json:"name"`
	Reason    string              `json:"reason"`
	TimeNanos int64               `json:"time_in_nanos"`
	Children  []*CollectorProfile `json:"children,omitempty"`
}

// ShardProfile is the complete profile of one shard's query phase.
type ShardProfile struct {
	Shard     int               `json:"shard"`
	Query     []*QueryProfile   `json:"query,omitempty"`
	Collector *CollectorProfile `json:"collector,omitempty"`
}
