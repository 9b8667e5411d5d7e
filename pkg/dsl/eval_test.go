package dsl

import (
	"testing"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/utils"
)

func TestEvaluate(t *testing.T) {
	item := core.NewItem(3)
	item.Score = 0.4
	item.Features[core.FeatureLexical] = 1.5
	item.Meta[core.MetaTitle] = "Go Concurrency"
	item.PutLabel(utils.LabelRecallSource, utils.RecallLabel(core.FeatureCollaborative))
	rctx := &core.RecommendContext{UserID: 7, Query: "Go Concurrency", Params: map[string]any{"top_n": 3}}

	tests := []struct {
		expr string
		want bool
	}{
		{"", true},
		{"item.id == 3", true},
		{"item.score > 0.5", false},
		{"item.features.lexical > 1.0", true},
		{`label.recall_source == "collaborative"`, true},
		{`label.recall_source.contains("lexical")`, false},
		{"item.title == rctx.query", true},
		{"rctx.user_id == 7 && rctx.params.top_n == 3", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr, item, rctx)
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluate_AnonymousContext(t *testing.T) {
	got, err := Evaluate("rctx.user_id < 0", core.NewItem(1), nil)
	if err != nil || !got {
		t.Errorf("Evaluate = %v, %v", got, err)
	}
}

func TestCompile_Errors(t *testing.T) {
	if _, err := Compile("item.score >"); err == nil {
		t.Error("expected compile error")
	}
	p, err := Compile("item.id")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := p.Eval(core.NewItem(1), nil); err == nil {
		t.Error("expected non-boolean error")
	}
}

func TestCompile_Cached(t *testing.T) {
	a, _ := Compile("item.id > 1")
	b, _ := Compile("item.id > 1")
	if a != b {
		t.Error("programs should be cached by expression")
	}
	if a.String() != "item.id > 1" {
		t.Errorf("String() = %q", a.String())
	}
}
