// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package observability

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func Make(log *logrus.Logger) *Observability {
	return &Observability{
		log:        log,
		metrics:    prometheus.NewRegistry(),
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
		vectors:    make(map[string]*prometheus.CounterVec),
	}
}

type Observability struct {
	log     *logrus.Logger
	metrics *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
	vectors    map[string]*prometheus.CounterVec
}

func (o *Observability) Log() *logrus.Logger {
	return o.log
}

func (o *Observability) Metrics() *prometheus.Registry {
	return o.metrics
}

func (o *Observability) Counter(opts prometheus.CounterOpts) prometheus.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.counters[opts.Name]
	if ok {
		return c
	}
	c = prometheus.NewCounter(opts)
	if err := o.metrics.Register(c); err != nil {
		o.log.WithField("metric_collector", opts.Name).
			Errorf("failed to register metric")
		return c
	}
	o.counters[opts.Name] = c
	return c
}

func (o *Observability) Gauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	o.mu.Lock()
	defer o.mu.Unlock()
	g, ok := o.gauges[opts.Name]
	if ok {
		return g
	}
	g = prometheus.NewGauge(opts)
	if err := o.metrics.Register(g); err != nil {
		o.log.WithField("metric_collector", opts.Name).
			Errorf("failed to register metric")
		return g
	}
	o.gauges[opts.Name] = g
	return g
}

func (o *Observability) Histogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.histograms[opts.Name]
	if ok {
		return h
	}
	h = prometheus.NewHistogram(opts)
	if err := o.metrics.Register(h); err != nil {
		o.log.WithField("metric_collector", opts.Name).
			Errorf("failed to register metric")
		return h
	}
	o.histograms[opts.Name] = h
	return h
}

func (o *Observability) CounterVec(opts prometheus.CounterOpts, labels ...string) *prometheus.CounterVec {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.vectors[opts.Name]
	if ok {
		return v
	}
	v = prometheus.NewCounterVec(opts, labels)
	if err := o.metrics.Register(v); err != nil {
		o.log.WithField("metric_collector", opts.Name).
			Errorf("failed to register metric")
		return v
	}
	o.vectors[opts.Name] = v
	return v
}

// CallMetrics counts ledger calls by outcome.
type CallMetrics struct {
	Funds              prometheus.Counter
	Rejections         prometheus.Counter
	Withdrawals        prometheus.Counter
	CheaperWithdrawals prometheus.Counter
	Reverts            prometheus.Counter
}

func MakeCallMetrics(obs *Observability) *CallMetrics {
	counters := &CallMetrics{}
	v := reflect.ValueOf(counters).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := strings.ToLower(t.Field(i).Name)
		opts := prometheus.CounterOpts{
			Name: fmt.Sprintf("crowdfund_%s_total", field),
			Help: fmt.Sprintf("Number of ledger %s.", field),
		}
		v.Field(i).Set(reflect.ValueOf(obs.Counter(opts)))
	}
	return counters
}

type LedgerMetrics struct {
	*CallMetrics

	HeldBalance prometheus.Gauge
	Funders     prometheus.Gauge
	GasUsed     prometheus.Histogram
}

func MakeLedgerMetrics(obs *Observability) *LedgerMetrics {
	return &LedgerMetrics{
		CallMetrics: MakeCallMetrics(obs),
		HeldBalance: obs.Gauge(prometheus.GaugeOpts{
			Name: "crowdfund_held_balance_ether",
			Help: "Native balance held by the ledger, in ether",
		}),
		Funders: obs.Gauge(prometheus.GaugeOpts{
			Name: "crowdfund_funders",
			Help: "Length of the contributor list",
		}),
		GasUsed: obs.Histogram(prometheus.HistogramOpts{
			Name:    "crowdfund_gas_used",
			Help:    "Gas used by committed ledger calls",
			Buckets: prometheus.ExponentialBuckets(21000, 2, 10),
		}),
	}
}
