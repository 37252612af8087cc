// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchprom converts benchmark reports into Prometheus
// metrics.
//
// Every statistic of every report entry becomes one gauge sample in
// the metric family its policy rule names:
//
//	android_benchmark_time_ns{method="mapSingleUser",stat="median"} 18000
//	android_benchmark_allocations{method="mapUserList_100Items",stat="median"} 1520
//	android_benchmark_iterations{method="mapSingleUser"} 50
//
// Values are exposed in the rule's source unit. Statistics whose rule
// treats zero as "not measured" are omitted when they are not
// positive.
package benchprom

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
	"google.golang.org/protobuf/proto"

	"github.com/benchprom/benchprom/benchnorm"
	"github.com/benchprom/benchprom/benchpolicy"
	"github.com/benchprom/benchprom/benchreport"
)

// A Label is one label of a metric line.
type Label struct {
	Name, Value string
}

// A Line is one sample of the exposition.
type Line struct {
	Family string // full metric name, including the policy prefix
	Labels []Label
	Value  float64
}

// String formats l as a line of the Prometheus text format, without a
// timestamp. Integral values are written without an exponent, so
// 1520000 is "1520000" rather than the "1.52e+06" of WriteText.
func (l Line) String() string {
	var b strings.Builder
	b.WriteString(l.Family)
	if len(l.Labels) > 0 {
		b.WriteByte('{')
		for i, lab := range l.Labels {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(lab.Name)
			b.WriteString(`="`)
			b.WriteString(escapeLabel(lab.Value))
			b.WriteByte('"')
		}
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(formatValue(l.Value))
	return b.String()
}

// maxExact is the largest magnitude below which every integral
// float64 is exact.
const maxExact = 1 << 53

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < maxExact {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)

func escapeLabel(s string) string {
	return labelEscaper.Replace(s)
}

// Label names set by the emitter for each entry. Run labels with
// these names are ignored.
const (
	LabelTest   = "test"
	LabelClass  = "class"
	LabelMethod = "method"
	LabelStat   = "stat"
)

func reserved(name string) bool {
	switch name {
	case LabelTest, LabelClass, LabelMethod, LabelStat:
		return true
	}
	return false
}

// An Emitter turns reports into metric lines.
type Emitter struct {
	// Policy selects and names the metrics. If nil,
	// benchpolicy.Default is used.
	Policy *benchpolicy.Policy

	// Labels are attached to every line. Labels with empty values
	// are omitted.
	Labels map[string]string
}

// New returns an Emitter for policy p with run labels labels.
func New(p *benchpolicy.Policy, labels map[string]string) *Emitter {
	if p == nil {
		p = benchpolicy.Default()
	}
	return &Emitter{Policy: p, Labels: labels}
}

func (e *Emitter) policy() *benchpolicy.Policy {
	if e.Policy == nil {
		return benchpolicy.Default()
	}
	return e.Policy
}

// Validate checks that the run labels are valid Prometheus label
// names and do not collide with the labels the emitter sets.
func (e *Emitter) Validate() error {
	for name := range e.Labels {
		if !model.LabelName(name).IsValid() || strings.HasPrefix(name, "__") {
			return fmt.Errorf("invalid label name %q", name)
		}
		if reserved(name) {
			return fmt.Errorf("label %q is set per test and cannot be a run label", name)
		}
	}
	return nil
}

// runLabels returns the non-empty run labels.
func (e *Emitter) runLabels() []Label {
	var ls []Label
	for name, value := range e.Labels {
		if value != "" && !reserved(name) {
			ls = append(ls, Label{name, value})
		}
	}
	return ls
}

// Lines returns the metric lines for r, in report order and then in
// the policy's rule order. Entries whose statistics can't be resolved
// are skipped.
func (e *Emitter) Lines(r benchreport.Report) []Line {
	p := e.policy()
	run := e.runLabels()
	var lines []Line
	for i := range r {
		ent := &r[i]
		stats, err := ent.Resolve(p)
		if err != nil {
			continue
		}
		byName := make(map[string]benchreport.Stat, len(stats))
		for _, s := range stats {
			byName[s.Stat] = s
		}

		class, method := ent.Class, ent.Method
		if method == "" {
			class, method = benchnorm.SplitName(ent.Name)
		}
		for _, rule := range p.Rules {
			s, ok := byName[rule.Kind.String()]
			if !ok || !rule.Keep(float64(s.Raw)) {
				continue
			}
			labels := append([]Label{{LabelMethod, method}}, run...)
			if rule.Stat != "" {
				labels = append(labels, Label{LabelStat, rule.Stat})
			}
			if class != "" {
				labels = append(labels, Label{LabelClass, class}, Label{LabelTest, ent.Name})
			}
			sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
			lines = append(lines, Line{
				Family: p.FamilyName(rule.Family),
				Labels: labels,
				Value:  float64(s.Raw),
			})
		}
	}
	return lines
}

// Families returns the metric families for r, in the policy's family
// order. Families with no lines are omitted.
func (e *Emitter) Families(r benchreport.Report) []*dto.MetricFamily {
	p := e.policy()
	lines := e.Lines(r)
	var out []*dto.MetricFamily
	for _, f := range p.Families {
		name := p.FamilyName(f.Name)
		mf := &dto.MetricFamily{
			Name: proto.String(name),
			Help: proto.String(f.Help),
			Type: dto.MetricType_GAUGE.Enum(),
		}
		for _, l := range lines {
			if l.Family != name {
				continue
			}
			m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(l.Value)}}
			for _, lab := range l.Labels {
				m.Label = append(m.Label, &dto.LabelPair{
					Name:  proto.String(lab.Name),
					Value: proto.String(lab.Value),
				})
			}
			mf.Metric = append(mf.Metric, m)
		}
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	return out
}

// WriteText writes r to w in the Prometheus text exposition format.
// An empty report writes nothing. Values use the exposition's shortest
// float form, so large integral values may carry an exponent.
func (e *Emitter) WriteText(w io.Writer, r benchreport.Report) error {
	for _, mf := range e.Families(r) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Gatherer returns a prometheus.Gatherer that exposes the report
// returned by current at each gather.
func (e *Emitter) Gatherer(current func() benchreport.Report) prometheus.Gatherer {
	return prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		return e.Families(current()), nil
	})
}
