package dsl

import "testing"

func TestParseSimpleExistence(t *testing.T) {
	ast, err := Parse("name")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ast.Kind != KindTagExists || ast.Key != "name" || ast.Negated {
		t.Errorf("got %+v, want TagExists{name, false}", ast)
	}
}

func TestParseNegatedExistence(t *testing.T) {
	ast, err := Parse("!name")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ast.Kind != KindTagExists || ast.Key != "name" || !ast.Negated {
		t.Errorf("got %+v, want TagExists{name, true}", ast)
	}
}

func TestParseExactMatch(t *testing.T) {
	ast, err := Parse("highway=primary")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ast.Kind != KindTagMatch || ast.Key != "highway" || len(ast.Values) != 1 || ast.Values[0].Pattern != "primary" {
		t.Errorf("got %+v", ast)
	}
}

func TestParseMultipleValues(t *testing.T) {
	ast, err := Parse("highway=primary|secondary|tertiary")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ast.Kind != KindTagMatch || len(ast.Values) != 3 {
		t.Fatalf("got %+v, want 3 values", ast)
	}
}

func TestParseWildcard(t *testing.T) {
	ast, err := Parse("shop=*")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ast.Kind != KindTagMatch || len(ast.Values) != 1 || ast.Values[0].Kind != ValueAny {
		t.Errorf("got %+v, want TagMatch{shop, [Any]}", ast)
	}
}

func TestParseNumericComparison(t *testing.T) {
	ast, err := Parse("lanes>=2")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ast.Kind != KindNumericCompare || ast.Op != OpGe || ast.Number != 2 {
		t.Errorf("got %+v, want NumericCompare{lanes, >=, 2}", ast)
	}
}

func TestParseAndExpression(t *testing.T) {
	ast, err := Parse("highway=primary & lanes>=2")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ast.Kind != KindAnd {
		t.Errorf("got kind %v, want And", ast.Kind)
	}
}

func TestParseOrExpression(t *testing.T) {
	ast, err := Parse("highway=primary | highway=secondary")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ast.Kind != KindOr {
		t.Errorf("got kind %v, want Or", ast.Kind)
	}
}

func TestParseComplexExpression(t *testing.T) {
	ast, err := Parse("(highway=primary | highway=secondary) & lanes>=2")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ast.Kind != KindAnd {
		t.Errorf("got kind %v, want And", ast.Kind)
	}
}

func TestParseEmptyFilter(t *testing.T) {
	ast, err := Parse("")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ast.Kind != KindTrue {
		t.Errorf("got %+v, want True", ast)
	}
}

func TestParseMixedValueAlternativesAndBooleanOr(t *testing.T) {
	ast, err := Parse("highway=primary|secondary | lanes>=2")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ast.Kind != KindOr || len(ast.Children) != 2 {
		t.Fatalf("got %+v, want Or with 2 children", ast)
	}
	if ast.Children[0].Kind != KindTagMatch || len(ast.Children[0].Values) != 2 {
		t.Errorf("first child = %+v, want TagMatch with 2 values", ast.Children[0])
	}
	if ast.Children[1].Kind != KindNumericCompare {
		t.Errorf("second child = %+v, want NumericCompare", ast.Children[1])
	}
}

func TestEvaluateAndRequiresAllOperands(t *testing.T) {
	ast, _ := Parse("highway=primary & lanes>=2")
	if !Evaluate(ast, map[string]string{"highway": "primary", "lanes": "3"}) {
		t.Errorf("expected match for highway=primary, lanes=3")
	}
	if Evaluate(ast, map[string]string{"highway": "primary", "lanes": "1"}) {
		t.Errorf("expected no match for lanes=1")
	}
}

func TestEvaluateGlob(t *testing.T) {
	ast, _ := Parse("shop=bo*")
	if !Evaluate(ast, map[string]string{"shop": "books"}) {
		t.Errorf("expected glob bo* to match books")
	}
	if Evaluate(ast, map[string]string{"shop": "bakery"}) {
		t.Errorf("expected glob bo* to not match bakery")
	}
}
