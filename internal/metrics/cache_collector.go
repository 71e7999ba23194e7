package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheCollector reads query cache counters at scrape time.
type CacheCollector struct {
	source        StatsSource
	hits          *prometheus.Desc
	misses        *prometheus.Desc
	fetches       *prometheus.Desc
	deduplicated  *prometheus.Desc
	retries       *prometheus.Desc
	invalidations *prometheus.Desc
	evictions     *prometheus.Desc
	entries       *prometheus.Desc
}

func NewCacheCollector(source StatsSource) *CacheCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, nil, nil)
	}
	return &CacheCollector{
		source:        source,
		hits:          desc("hits_total", "Reads served from fresh cache entries."),
		misses:        desc("misses_total", "Reads that needed a fetch."),
		fetches:       desc("fetches_total", "Network fetches started by the cache."),
		deduplicated:  desc("deduplicated_total", "Reads that joined a fetch already in flight."),
		retries:       desc("retries_total", "Read retries after a retryable failure."),
		invalidations: desc("invalidations_total", "Prefix invalidations."),
		evictions:     desc("evictions_total", "Entries removed after their idle grace period."),
		entries:       desc("entries", "Entries currently cached."),
	}
}

func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.fetches
	ch <- c.deduplicated
	ch <- c.retries
	ch <- c.invalidations
	ch <- c.evictions
	ch <- c.entries
}

func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.hits, s.Hits)
	counter(c.misses, s.Misses)
	counter(c.fetches, s.Fetches)
	counter(c.deduplicated, s.Deduplicated)
	counter(c.retries, s.Retries)
	counter(c.invalidations, s.Invalidations)
	counter(c.evictions, s.Evictions)
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Entries))
}
