package narrative_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/CarbonProof/Platform/internal/narrative"
)

type failingGenerator struct{}

func (failingGenerator) Summarize(context.Context, narrative.Context) (string, error) {
	return "", narrative.ErrUnavailable
}

type cannedGenerator struct{ text string }

func (c cannedGenerator) Summarize(context.Context, narrative.Context) (string, error) {
	return c.text, nil
}

func TestTemplateGeneratorIncludesFactsAndFindings(t *testing.T) {
	text, err := narrative.TemplateGenerator{}.Summarize(context.Background(), narrative.Context{
		Subject:  "vendor emissions for DC-1",
		Period:   "2025-Q1",
		Facts:    map[string]string{"total": "100.0 tCO2e", "vendors": "2"},
		Findings: []string{"emissions increased 25.0% versus previous period"},
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	for _, want := range []string{"DC-1", "2025-Q1", "100.0 tCO2e", "1 finding(s)"} {
		if !strings.Contains(text, want) {
			t.Errorf("narrative missing %q:\n%s", want, text)
		}
	}
}

func TestTemplateGeneratorDeterministic(t *testing.T) {
	nc := narrative.Context{
		Subject: "staff emissions",
		Period:  "2025-Q1",
		Facts:   map[string]string{"b": "2", "a": "1", "c": "3"},
	}
	t1, _ := narrative.TemplateGenerator{}.Summarize(context.Background(), nc)
	t2, _ := narrative.TemplateGenerator{}.Summarize(context.Background(), nc)
	if t1 != t2 {
		t.Fatalf("template output not deterministic:\n%s\n%s", t1, t2)
	}
}

func TestSummarizeFallsBackOnFailure(t *testing.T) {
	nc := narrative.Context{Subject: "carbon credits", Period: "2025-Q1"}
	text := narrative.Summarize(context.Background(), failingGenerator{}, nc)
	if !strings.Contains(text, "carbon credits") {
		t.Fatalf("expected template fallback, got %q", text)
	}
}

func TestSummarizePrefersGenerator(t *testing.T) {
	text := narrative.Summarize(context.Background(), cannedGenerator{text: "model output"}, narrative.Context{})
	if text != "model output" {
		t.Fatalf("expected model output, got %q", text)
	}
}

func TestErrUnavailableIsDetectable(t *testing.T) {
	_, err := failingGenerator{}.Summarize(context.Background(), narrative.Context{})
	if !errors.Is(err, narrative.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable sentinel, got %v", err)
	}
}
