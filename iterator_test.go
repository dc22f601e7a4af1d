package rowkit

import (
	"context"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestRowIteratorHeaderConsumption(t *testing.T) {
	opts := mustOptions(t, WithHeader(true))
	it, err := NewRowIterator([]byte("a,b\n1,2\n3,4\n"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := it.Header(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("got %v", got)
	}
	var rows [][]string
	for it.Next() {
		row := it.Row()
		cols := make([]string, row.ColumnCount())
		for i := range cols {
			c, _ := row.Column(i)
			cols[i] = string(c.AsBytes())
		}
		rows = append(rows, cols)
	}
	if it.Err() != nil {
		t.Fatalf("unexpected error: %v", it.Err())
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 data rows, got %d", len(rows))
	}
}

func TestRowIteratorMaxRows(t *testing.T) {
	opts := mustOptions(t, WithMaxRows(1))
	it, err := NewRowIterator([]byte("a\nb\nc\n"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count := 0
	for it.Next() {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 row before the limit fires, got %d", count)
	}
	pe, ok := it.Err().(*ParseError)
	if !ok || pe.Kind != KindTooManyRows {
		t.Fatalf("expected KindTooManyRows, got %#v", it.Err())
	}
}

func TestStreamRowIteratorMatchesInMemory(t *testing.T) {
	input := "a,b,c\n1,2,3\n4,5,6\n"
	opts := mustOptions(t)

	memIt, err := NewRowIterator([]byte(input), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var memRows [][]string
	for memIt.Next() {
		row := memIt.Row()
		cols := make([]string, row.ColumnCount())
		for i := range cols {
			c, _ := row.Column(i)
			cols[i] = string(c.AsBytes())
		}
		memRows = append(memRows, cols)
	}

	ctx := context.Background()
	streamIt, err := NewStreamRowIterator(ctx, iotest.OneByteReader(strings.NewReader(input)), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer streamIt.Close()
	var streamRows [][]string
	for streamIt.Next(ctx) {
		row := streamIt.Row()
		cols := make([]string, row.ColumnCount())
		for i := range cols {
			c, _ := row.Column(i)
			cols[i] = string(c.AsBytes())
		}
		streamRows = append(streamRows, cols)
	}
	if streamIt.Err() != nil {
		t.Fatalf("unexpected stream error: %v", streamIt.Err())
	}
	assertRowsEqual(t, streamRows, memRows)
}

func TestStreamRowIteratorContextCancellation(t *testing.T) {
	opts := mustOptions(t)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	it, err := NewStreamRowIterator(ctx, pr, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()
	if it.Next(ctx) {
		t.Fatal("expected Next to report no more rows after cancellation")
	}
	pe, ok := it.Err().(*ParseError)
	if !ok || pe.Kind != KindCanceled {
		t.Fatalf("expected KindCanceled, got %#v", it.Err())
	}
}

func TestRowIteratorReportsProgressEveryNRows(t *testing.T) {
	var reported []int64
	opts := mustOptions(t, WithProgressEvery(2), WithProgressFunc(func(rowsRead int64) {
		reported = append(reported, rowsRead)
	}))
	it, err := NewRowIterator([]byte("a\nb\nc\nd\ne\n"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for it.Next() {
	}
	if it.Err() != nil {
		t.Fatalf("unexpected error: %v", it.Err())
	}
	want := []int64{2, 4}
	if len(reported) != len(want) {
		t.Fatalf("got %v, want %v", reported, want)
	}
	for i := range want {
		if reported[i] != want[i] {
			t.Fatalf("got %v, want %v", reported, want)
		}
	}
}

func TestStreamRowIteratorSkipsUTF8BOM(t *testing.T) {
	opts := mustOptions(t)
	input := "\xEF\xBB\xBFa,b\n"
	ctx := context.Background()
	it, err := NewStreamRowIterator(ctx, strings.NewReader(input), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !it.Next(ctx) {
		t.Fatalf("expected a row, err=%v", it.Err())
	}
	col, _ := it.Row().Column(0)
	if string(col.AsBytes()) != "a" {
		t.Fatalf("got %q, BOM not stripped", col.AsBytes())
	}
}
