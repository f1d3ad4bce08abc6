package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	appfleet "github.com/andrescamacho/fleetgate/internal/application/fleet"
	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

const namespace = "fleetgate"

// Collector implements the fleet Recorder on a Prometheus registry.
type Collector struct {
	dispatched    *prometheus.CounterVec
	terminal      *prometheus.CounterVec
	queueDepth    *prometheus.GaugeVec
	cellsOccupied *prometheus.GaugeVec
	connected     *prometheus.GaugeVec
}

var _ appfleet.Recorder = (*Collector)(nil)

// NewCollector registers the fleet metrics on reg.
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_dispatched_total",
			Help:      "Jobs handed to a robot transport, by robot and operation.",
		}, []string{"robot", "operation"}),
		terminal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_terminal_total",
			Help:      "Jobs reaching a terminal status, by robot, operation and status.",
		}, []string{"robot", "operation", "status"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_queue_depth",
			Help:      "Jobs waiting in a robot's queue.",
		}, []string{"robot"}),
		cellsOccupied: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cells_occupied",
			Help:      "Occupied storage cells on a robot.",
		}, []string{"robot"}),
		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "robot_connected",
			Help:      "1 when the robot's transport is online.",
		}, []string{"robot"}),
	}
	reg.MustRegister(c.dispatched, c.terminal, c.queueDepth, c.cellsOccupied, c.connected)
	return c
}

func (c *Collector) RecordDispatch(robot string, op domain.JobOperation) {
	c.dispatched.WithLabelValues(robot, op.String()).Inc()
}

func (c *Collector) RecordTerminal(robot string, op domain.JobOperation, status domain.OrderStatus) {
	c.terminal.WithLabelValues(robot, op.String(), status.String()).Inc()
}

func (c *Collector) SetQueueDepth(robot string, depth int) {
	c.queueDepth.WithLabelValues(robot).Set(float64(depth))
}

func (c *Collector) SetCellsOccupied(robot string, count int) {
	c.cellsOccupied.WithLabelValues(robot).Set(float64(count))
}

func (c *Collector) SetConnected(robot string, online bool) {
	v := 0.0
	if online {
		v = 1.0
	}
	c.connected.WithLabelValues(robot).Set(v)
}
