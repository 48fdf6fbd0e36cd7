package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

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

func TestBillingAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "billing.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var spec alertSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}

	if len(spec.Groups) == 0 {
		t.Fatal("expected at least one alert group")
	}

	required := map[string]bool{
		"BillingJobFailing":   false,
		"OverdueSweepFailing": false,
	}
	for _, group := range spec.Groups {
		for _, rule := range group.Rules {
			if rule.Alert == "" || rule.Expr == "" {
				t.Fatalf("rule in group %q missing alert name or expr", group.Name)
			}
			if !strings.Contains(rule.Expr, "locafrota_") {
				t.Fatalf("rule %q does not reference a locafrota metric: %s", rule.Alert, rule.Expr)
			}
			if rule.Labels["severity"] == "" {
				t.Fatalf("rule %q missing severity label", rule.Alert)
			}
			if _, ok := required[rule.Alert]; ok {
				required[rule.Alert] = true
			}
		}
	}
	for name, seen := range required {
		if !seen {
			t.Fatalf("required alert %q not defined", name)
		}
	}
}
