package observability

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertSpec struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestSalesAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "sales.yml")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var spec alertSpec
	require.NoError(t, yaml.Unmarshal(data, &spec))
	require.Len(t, spec.Groups, 1)
	group := spec.Groups[0]
	require.Equal(t, "sales", group.Name)

	expected := map[string]string{
		"HighErrorRate":       "critical",
		"HighLatency":         "warning",
		"StockRejectionSpike": "warning",
		"JobFailures":         "warning",
	}
	require.Len(t, group.Rules, len(expected))

	for _, rule := range group.Rules {
		severity, ok := expected[rule.Alert]
		require.True(t, ok, "unexpected rule %q", rule.Alert)
		require.Equal(t, severity, rule.Labels["severity"], rule.Alert)
		require.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
		require.NotEmpty(t, rule.Annotations["description"], rule.Alert)
		require.Regexp(t, `^docs/runbook-sales\.md#`, rule.Annotations["runbook"])
		require.NotEmpty(t, rule.Expr, rule.Alert)
		require.NotEmpty(t, rule.For, rule.Alert)
	}
}

// Every series referenced by an alert must be one this package registers.
func TestAlertRulesReferenceKnownMetrics(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "sales.yml"))
	require.NoError(t, err)
	var spec alertSpec
	require.NoError(t, yaml.Unmarshal(data, &spec))

	known := map[string]bool{
		"odyssey_http_requests_total":                  true,
		"odyssey_http_request_duration_seconds_bucket": true,
		"odyssey_sales_transactions_rejected_total":    true,
		"odyssey_jobs_failures_total":                  true,
	}
	series := regexp.MustCompile(`odyssey_[a-z_]+`)
	for _, group := range spec.Groups {
		for _, rule := range group.Rules {
			for _, name := range series.FindAllString(rule.Expr, -1) {
				require.True(t, known[name], "rule %s references unknown series %s", rule.Alert, name)
			}
		}
	}
}
