package rowkit

import "testing"

type person struct {
	Name string `rowkit:"name=name"`
	Age  int64  `rowkit:"name=age"`
	City string `rowkit:"name=city,optional"`
}

func TestBindBytesBasic(t *testing.T) {
	opts := mustOptions(t, WithHeader(true))
	data := []byte("name,age,city\nAlice,30,Paris\nBob,25,\n")
	people, err := BindBytes[person](data, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(people) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(people))
	}
	if people[0].Name != "Alice" || people[0].Age != 30 || people[0].City != "Paris" {
		t.Fatalf("unexpected first row: %+v", people[0])
	}
	if people[1].Name != "Bob" || people[1].Age != 25 {
		t.Fatalf("unexpected second row: %+v", people[1])
	}
}

func TestBinderMissingColumnErrorsWithoutOptional(t *testing.T) {
	opts := mustOptions(t, WithHeader(true))
	var target struct {
		Name string `rowkit:"name=name"`
		Zip  string `rowkit:"name=zip"`
	}
	it, err := NewRowIterator([]byte("name\nAlice\n"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewBinder(&target, it.Header(), opts); err == nil {
		t.Fatal("expected a MissingColumn error")
	} else if pe, ok := err.(*ParseError); !ok || pe.Kind != KindMissingColumn {
		t.Fatalf("expected KindMissingColumn, got %#v", err)
	}
}

func TestBinderAllowMissingColumnsTolerates(t *testing.T) {
	opts := mustOptions(t, WithHeader(true), WithAllowMissingColumns(true))
	var target struct {
		Name string `rowkit:"name=name"`
		Zip  string `rowkit:"name=zip"`
	}
	it, err := NewRowIterator([]byte("name\nAlice\n"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewBinder(&target, it.Header(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !it.Next() {
		t.Fatalf("expected a row, err=%v", it.Err())
	}
	if _, err := b.Bind(&target, it.Row()); err != nil {
		t.Fatalf("unexpected bind error: %v", err)
	}
	if target.Name != "Alice" {
		t.Fatalf("got %+v", target)
	}
}

func TestBinderDuplicateHeaderDetection(t *testing.T) {
	opts := mustOptions(t)
	var target struct {
		Name string `rowkit:"name=name"`
	}
	_, err := NewBinder(&target, []string{"name", "name"}, opts)
	if err == nil {
		t.Fatal("expected a DuplicateHeader error")
	}
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != KindDuplicateHeader {
		t.Fatalf("expected KindDuplicateHeader, got %#v", err)
	}
}

func TestBindBytesSkipRowPolicy(t *testing.T) {
	opts := mustOptions(t, WithHeader(true), WithErrorPolicy(PolicySkipRow))
	data := []byte("name,age\nAlice,thirty\nBob,25\n")
	people, err := BindBytes[person](data, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(people) != 1 || people[0].Name != "Bob" {
		t.Fatalf("expected only Bob to survive, got %+v", people)
	}
}

func TestBindBytesUseDefaultPolicyAccumulatesErrors(t *testing.T) {
	opts := mustOptions(t, WithHeader(true), WithErrorPolicy(PolicyUseDefault))
	data := []byte("name,age\nAlice,thirty\n")
	people, err := BindBytes[person](data, opts)
	if err == nil {
		t.Fatal("expected accumulated errors to be reported")
	}
	if len(people) != 1 || people[0].Age != 0 {
		t.Fatalf("expected a zero-valued Age under UseDefault, got %+v", people)
	}
}

func TestBindBytesThrowPolicyStopsImmediately(t *testing.T) {
	opts := mustOptions(t, WithHeader(true))
	data := []byte("name,age\nAlice,thirty\nBob,25\n")
	_, err := BindBytes[person](data, opts)
	if err == nil {
		t.Fatal("expected the conversion failure to stop binding")
	}
}
