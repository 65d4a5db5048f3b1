// Copyright 2021 - 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package v2

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	statementCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "sql",
			Name:      "statement_total",
			Help:      "Total number of compiled statements.",
		}, []string{"type", "result"})

	compileErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "sql",
			Name:      "compile_error_total",
			Help:      "Total number of compile errors by error code.",
		}, []string{"code"})

	InstructionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "sql",
			Name:      "instruction_total",
			Help:      "Total number of emitted instructions.",
		})

	compileDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mo",
			Subsystem: "sql",
			Name:      "compile_duration_seconds",
			Help:      "Bucketed histogram of statement compile duration by phase.",
			Buckets:   getDurationBuckets(),
		}, []string{"phase"})
	PlanDurationHistogram     = compileDurationHistogram.WithLabelValues("plan")
	OptimizeDurationHistogram = compileDurationHistogram.WithLabelValues("optimize")
	Rel2BinDurationHistogram  = compileDurationHistogram.WithLabelValues("rel2bin")
	SequenceDurationHistogram = compileDurationHistogram.WithLabelValues("sequence")
	TotalDurationHistogram    = compileDurationHistogram.WithLabelValues("total")

	PivotRelationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mo",
			Subsystem: "sql",
			Name:      "pivot_relations",
			Help:      "Bucketed histogram of relations consumed by one pivot build.",
			Buckets:   prometheus.LinearBuckets(1, 1, 16),
		})
)

// StatementCounter returns the counter of one statement type and result,
// result is "ok" or "error".
func StatementCounter(stmtType, result string) prometheus.Counter {
	return statementCounter.WithLabelValues(stmtType, result)
}

// CompileErrorCounter returns the counter of one moerr code.
func CompileErrorCounter(code uint16) prometheus.Counter {
	return compileErrorCounter.WithLabelValues(strconv.Itoa(int(code)))
}
