// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "chainstore"
)

// chain state gauges and counters
var (
	TipHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "tip_height",
		Help:      "Height of the best block.",
	})
	UtxoSetSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "utxo_set_size",
		Help:      "Number of unspent outputs.",
	})
	PrunedHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "pruned_height",
		Help:      "Height up to which spent outputs are pruned.",
	})
	OrphanPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "orphan_pool_size",
		Help:      "Number of blocks in the orphan pool.",
	})
	OrphanedBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "orphaned_blocks_total",
		Help:      "Blocks added to the orphan pool.",
	})
	Reorgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "reorgs_total",
		Help:      "Chain reorganisations, by number of blocks removed.",
	}, []string{"removed"})
	RejectedBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "rejected_blocks_total",
		Help:      "Blocks that failed to be added.",
	}, []string{"reason"})
	CompactBlockMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inbound",
		Name:      "compact_block_misses_total",
		Help:      "Compact blocks that needed a full block from the peer.",
	}, []string{"reason"})
	WriteRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "write_retries_total",
		Help:      "Write transactions retried after a resize.",
	})
)

// Handler - http handler exposing the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
