package rowkit

import "testing"

func TestNewOptionsDefaults(t *testing.T) {
	o, err := NewOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Delimiter != ',' || o.Quote != '"' {
		t.Fatalf("unexpected defaults: %+v", o)
	}
}

func TestNewOptionsRejectsSameDelimiterAndQuote(t *testing.T) {
	_, err := NewOptions(WithDelimiter('"'))
	if err == nil {
		t.Fatal("expected an error when delimiter equals quote")
	}
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != KindConfig {
		t.Fatalf("expected KindConfig, got %#v", err)
	}
}

func TestNewOptionsRejectsNonASCIIDelimiter(t *testing.T) {
	_, err := NewOptions(WithDelimiter(0x80))
	if err == nil {
		t.Fatal("expected an error for a non-ASCII delimiter")
	}
}

func TestNewOptionsRejectsZeroMaxColumns(t *testing.T) {
	_, err := NewOptions(WithMaxColumns(0))
	if err == nil {
		t.Fatal("expected an error for MaxColumns=0")
	}
}

func TestNewOptionsRejectsRowSizeSmallerThanFieldSize(t *testing.T) {
	_, err := NewOptions(WithMaxFieldSize(1000), WithMaxRowSize(10))
	if err == nil {
		t.Fatal("expected an error when MaxRowSize < MaxFieldSize")
	}
}

func TestNewOptionsIsImmutableAfterConstruction(t *testing.T) {
	o1, err := NewOptions(WithDelimiter(';'))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o2, err := NewOptions(WithDelimiter(','))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o1.Delimiter == o2.Delimiter {
		t.Fatal("expected independently constructed Options to not alias state")
	}
}

func TestStreamingGrowthCeilingFollowsMaxRowSize(t *testing.T) {
	o, err := NewOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := o.streamingGrowthCeiling(); got != o.MaxRowSize {
		t.Fatalf("expected ceiling to follow MaxRowSize, got %d want %d", got, o.MaxRowSize)
	}
}

func TestWithBoolTokensOverridesDefaults(t *testing.T) {
	o, err := NewOptions(WithBoolTokens([]string{"on"}, []string{"off"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(o.TruthyTokens) != 1 || o.TruthyTokens[0] != "on" {
		t.Fatalf("got %+v", o.TruthyTokens)
	}
}
