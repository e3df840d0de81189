// Package normalize maps the upstream JSON shapes served by the dashboard
// endpoints into canonical model records. Missing numeric fields become 0
// and malformed entries are skipped rather than reported.
package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/dsablic/weathertop/internal/model"
)

var (
	idKeys     = []string{"language", "Language", "service", "Service", "serviceCode", "name", "Name"}
	totalKeys  = []string{"tests", "Tests", "total", "Total"}
	passedKeys = []string{"passed", "Passed"}
	failedKeys = []string{"failed", "Failed"}
)

// SDKStats decodes a test results document. The summary array may sit at
// the top level or under "results".
func SDKStats(data []byte) ([]model.UnitRecord, error) {
	var doc struct {
		Summary []map[string]any `json:"summary"`
		Results *struct {
			Summary []map[string]any `json:"summary"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}

	rows := doc.Summary
	if len(rows) == 0 && doc.Results != nil {
		rows = doc.Results.Summary
	}

	units := make([]model.UnitRecord, 0, len(rows))
	for _, row := range rows {
		name := stringField(row, idKeys...)
		if name == "" {
			continue
		}
		u := TestCounts(row)
		u.ID = strings.ToLower(name)
		u.Name = Language(name)
		units = append(units, u)
	}
	return units, nil
}

// TestCounts reads the pass/fail counts of one upstream row. When no total
// is present it is derived as passed+failed.
func TestCounts(row map[string]any) model.UnitRecord {
	passed, _ := numberField(row, passedKeys...)
	failed, _ := numberField(row, failedKeys...)
	total, ok := numberField(row, totalKeys...)
	if !ok {
		total = max(total, passed+failed)
	}
	return model.UnitRecord{TestsTotal: total, TestsPassed: passed, TestsFailed: failed}
}

// CoverageSummary decodes the service coverage summary. Found operations
// count as passed and the rest as failed.
func CoverageSummary(data []byte) ([]model.UnitRecord, error) {
	var doc struct {
		Services []map[string]any `json:"services"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode coverage summary: %w", err)
	}

	units := make([]model.UnitRecord, 0, len(doc.Services))
	for _, s := range doc.Services {
		code := stringField(s, "serviceCode", "service", "name")
		if code == "" {
			continue
		}
		methods, _ := numberField(s, "methodCount", "operations")
		found, _ := numberField(s, "foundCount", "examples")
		units = append(units, model.UnitRecord{
			ID:          code,
			Name:        stringField(s, "serviceName"),
			TestsTotal:  methods,
			TestsPassed: found,
			TestsFailed: max(methods-found, 0),
		})
	}
	return units, nil
}

// ServiceCoverage decodes the per-operation coverage of one service.
func ServiceCoverage(data []byte) ([]model.DetailRecord, error) {
	var doc struct {
		Operations []struct {
			Name      string   `json:"name"`
			Found     bool     `json:"found"`
			Languages []string `json:"languages"`
		} `json:"operations"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode service coverage: %w", err)
	}

	details := make([]model.DetailRecord, 0, len(doc.Operations))
	for _, op := range doc.Operations {
		if op.Name == "" {
			continue
		}
		details = append(details, model.DetailRecord{
			Name:  op.Name,
			Found: op.Found,
			Tags:  Languages(op.Languages),
		})
	}
	return details, nil
}

type modelService struct {
	Operations any      `json:"operations"`
	Examples   any      `json:"examples"`
	Names      []string `json:"names"`
}

// ModelLanguage is the tag attached to model coverage operations.
const ModelLanguage = "Kotlin"

func decodeModelServices(data []byte) (map[string]modelService, error) {
	var wrapped struct {
		Services map[string]modelService `json:"services"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Services) > 0 {
		return wrapped.Services, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode model coverage: %w", err)
	}
	services := make(map[string]modelService, len(top))
	for name, raw := range top {
		var svc modelService
		if err := json.Unmarshal(raw, &svc); err != nil {
			continue
		}
		services[name] = svc
	}
	return services, nil
}

// ModelCoverage decodes a model coverage document into units sorted by
// service name.
func ModelCoverage(data []byte) ([]model.UnitRecord, error) {
	services, err := decodeModelServices(data)
	if err != nil {
		return nil, err
	}

	units := make([]model.UnitRecord, 0, len(services))
	for name, svc := range services {
		ops, _ := toInt(svc.Operations)
		examples, _ := toInt(svc.Examples)
		units = append(units, model.UnitRecord{
			ID:          name,
			Name:        name,
			TestsTotal:  ops,
			TestsPassed: examples,
			TestsFailed: max(ops-examples, 0),
		})
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units, nil
}

// ModelOperations returns the documented operations of one service in a
// model coverage document. The boolean is false when the service is absent.
func ModelOperations(data []byte, service string) ([]model.DetailRecord, bool, error) {
	services, err := decodeModelServices(data)
	if err != nil {
		return nil, false, err
	}
	svc, ok := services[service]
	if !ok {
		return nil, false, nil
	}

	details := make([]model.DetailRecord, 0, len(svc.Names))
	for _, n := range svc.Names {
		details = append(details, model.DetailRecord{Name: n, Found: true, Tags: []string{ModelLanguage}})
	}
	return details, true, nil
}

// NoTests decodes a language to services map, sorted by language.
func NoTests(data []byte) ([]model.LanguageGap, error) {
	var doc map[string][]string
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode no-tests report: %w", err)
	}

	gaps := make([]model.LanguageGap, 0, len(doc))
	for lang, services := range doc {
		if services == nil {
			services = []string{}
		}
		gaps = append(gaps, model.LanguageGap{Language: Language(lang), Services: services})
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i].Language < gaps[j].Language })
	return gaps, nil
}

func stringField(row map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := row[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func numberField(row map[string]any, keys ...string) (int64, bool) {
	for _, k := range keys {
		v, present := row[k]
		if !present || v == nil {
			continue
		}
		if n, ok := toInt(v); ok {
			return n, true
		}
	}
	return 0, false
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}
