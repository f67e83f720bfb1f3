// Package monitoring 收集预测服务的运行指标
package monitoring

import (
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType 指标类型
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// LatencyBuckets 默认延迟分桶（秒）
var LatencyBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1}

// Bucket 直方图分桶，Count 为累计值
type Bucket struct {
	UpperBound float64
	Count      uint64
}

// MarshalJSON 将上界写成字符串，+Inf 无法用JSON数字表示
func (b Bucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		LE    string `json:"le"`
		Count uint64 `json:"count"`
	}{formatValue(b.UpperBound), b.Count})
}

// Metric 指标
type Metric struct {
	Name    string            `json:"name"`
	Type    MetricType        `json:"type"`
	Labels  map[string]string `json:"labels,omitempty"`
	Value   float64           `json:"value"`
	Count   uint64            `json:"count,omitempty"`
	Sum     float64           `json:"sum,omitempty"`
	Buckets []Bucket          `json:"buckets,omitempty"`
	Help    string            `json:"help,omitempty"`
}

type series struct {
	metric Metric
	counts []uint64
}

// MetricsCollector 指标收集器
type MetricsCollector struct {
	mu     sync.RWMutex
	series map[string]*series
	help   map[string]string

	startTime time.Time
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		series:    make(map[string]*series),
		help:      make(map[string]string),
		startTime: time.Now(),
	}
}

// Describe 设置指标说明
func (mc *MetricsCollector) Describe(name, help string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.help[name] = help
}

// IncrCounter 增加计数器
func (mc *MetricsCollector) IncrCounter(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	s := mc.lookup(name, MetricTypeCounter, labels, nil)
	s.metric.Value += value
}

// SetGauge 设置仪表
func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	s := mc.lookup(name, MetricTypeGauge, labels, nil)
	s.metric.Value = value
}

// RecordHistogram 记录直方图。buckets 只在第一次记录该序列时生效。
func (mc *MetricsCollector) RecordHistogram(name string, value float64, labels map[string]string, buckets []float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	s := mc.lookup(name, MetricTypeHistogram, labels, buckets)
	s.metric.Count++
	s.metric.Sum += value
	for i, b := range s.metric.Buckets {
		if value <= b.UpperBound {
			s.counts[i]++
		}
	}
}

// ObserveDuration 以秒记录 since 起的耗时
func (mc *MetricsCollector) ObserveDuration(name string, since time.Time, labels map[string]string) {
	mc.RecordHistogram(name, time.Since(since).Seconds(), labels, LatencyBuckets)
}

func (mc *MetricsCollector) lookup(name string, kind MetricType, labels map[string]string, buckets []float64) *series {
	key := seriesKey(name, labels)
	if s, ok := mc.series[key]; ok {
		return s
	}
	s := &series{metric: Metric{Name: name, Type: kind, Labels: copyLabels(labels)}}
	if kind == MetricTypeHistogram {
		bounds := append([]float64(nil), buckets...)
		sort.Float64s(bounds)
		bounds = append(bounds, math.Inf(1))
		s.metric.Buckets = make([]Bucket, len(bounds))
		for i, b := range bounds {
			s.metric.Buckets[i].UpperBound = b
		}
		s.counts = make([]uint64, len(bounds))
	}
	mc.series[key] = s
	return s
}

// Value 返回计数器或仪表的当前值，不存在时为 0
func (mc *MetricsCollector) Value(name string, labels map[string]string) float64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	if s, ok := mc.series[seriesKey(name, labels)]; ok {
		return s.metric.Value
	}
	return 0
}

// Histogram 返回直方图副本
func (mc *MetricsCollector) Histogram(name string, labels map[string]string) (Metric, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	s, ok := mc.series[seriesKey(name, labels)]
	if !ok || s.metric.Type != MetricTypeHistogram {
		return Metric{}, false
	}
	return s.snapshot(mc.help[name]), true
}

// Snapshot 按名称和标签排序返回全部指标的副本
func (mc *MetricsCollector) Snapshot() []Metric {
	mc.mu.RLock()
	keys := make([]string, 0, len(mc.series))
	for k := range mc.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Metric, 0, len(keys))
	for _, k := range keys {
		s := mc.series[k]
		out = append(out, s.snapshot(mc.help[s.metric.Name]))
	}
	mc.mu.RUnlock()
	return out
}

func (s *series) snapshot(help string) Metric {
	m := s.metric
	m.Help = help
	m.Labels = copyLabels(s.metric.Labels)
	if s.metric.Buckets != nil {
		m.Buckets = make([]Bucket, len(s.metric.Buckets))
		for i, b := range s.metric.Buckets {
			m.Buckets[i] = Bucket{UpperBound: b.UpperBound, Count: s.counts[i]}
		}
	}
	return m
}

// ExportPrometheus 导出Prometheus文本格式
func (mc *MetricsCollector) ExportPrometheus() string {
	var b strings.Builder
	seen := make(map[string]bool)
	for _, m := range mc.Snapshot() {
		if !seen[m.Name] {
			seen[m.Name] = true
			help := m.Help
			if help == "" {
				help = fmt.Sprintf("Metric %s", m.Name)
			}
			fmt.Fprintf(&b, "# HELP %s %s\n", m.Name, help)
			fmt.Fprintf(&b, "# TYPE %s %s\n", m.Name, m.Type)
		}
		if m.Type != MetricTypeHistogram {
			fmt.Fprintf(&b, "%s%s %s\n", m.Name, formatLabels(m.Labels, "", ""), formatValue(m.Value))
			continue
		}
		for _, bucket := range m.Buckets {
			fmt.Fprintf(&b, "%s_bucket%s %d\n", m.Name, formatLabels(m.Labels, "le", formatValue(bucket.UpperBound)), bucket.Count)
		}
		fmt.Fprintf(&b, "%s_sum%s %s\n", m.Name, formatLabels(m.Labels, "", ""), formatValue(m.Sum))
		fmt.Fprintf(&b, "%s_count%s %d\n", m.Name, formatLabels(m.Labels, "", ""), m.Count)
	}
	return b.String()
}

// GetUptime 获取运行时间
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// GetSystemStats 获取系统统计
func (mc *MetricsCollector) GetSystemStats() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]any{
		"uptime":     mc.GetUptime().String(),
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]any{
			"alloc":      m.Alloc,
			"heap_alloc": m.HeapAlloc,
			"heap_sys":   m.HeapSys,
			"gc_count":   m.NumGC,
		},
	}
}

func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	return name + formatLabels(labels, "", "")
}

func copyLabels(labels map[string]string) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// formatLabels 按键排序输出 {k="v",...}，extraKey 非空时追加在末尾
func formatLabels(labels map[string]string, extraKey, extraValue string) string {
	if len(labels) == 0 && extraKey == "" {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	if extraKey != "" {
		parts = append(parts, fmt.Sprintf("%s=%q", extraKey, extraValue))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatValue(v float64) string {
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	return fmt.Sprintf("%g", v)
}
