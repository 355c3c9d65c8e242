package query

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"learnon/database"
	"learnon/utils"
)

const dropInput = "Schmidt'; DROP TABLE stundenplan; --"

// newStore creates a disposable seeded SQLite store and returns its config.
func newStore(t *testing.T) database.Config {
	t.Helper()
	ctx := context.Background()
	cfg := database.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "learnon.db")}

	conn, err := database.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	if err := database.EnsureSchema(ctx, conn); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	rows, err := database.DefaultSeed()
	if err != nil {
		t.Fatalf("DefaultSeed: %v", err)
	}
	if err := database.Seed(ctx, conn, rows); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return cfg
}

func tableExists(t *testing.T, cfg database.Config) bool {
	t.Helper()
	ctx := context.Background()
	conn, err := database.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()
	ok, err := database.TableExists(ctx, conn, "stundenplan")
	if err != nil {
		t.Fatalf("TableExists: %v", err)
	}
	return ok
}

func TestSafeLookup(t *testing.T) {
	l := NewLookup(newStore(t), nil, nil)

	got, err := l.Safe(context.Background(), "Schmidt")
	if err != nil {
		t.Fatalf("Safe: %v", err)
	}
	want := []Schedule{
		{Subject: "Mathematik", Room: "A101", Weekday: "Montag"},
		{Subject: "Physik", Room: "B204", Weekday: "Mittwoch"},
		{Subject: "Mathematik", Room: "A101", Weekday: "Freitag"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Safe(Schmidt) = %+v, want %+v", got, want)
	}
}

func TestBenignInputsMatch(t *testing.T) {
	l := NewLookup(newStore(t), nil, nil)
	ctx := context.Background()

	for _, teacher := range []string{"Schmidt", "Müller", "Weber", "Nobody", "schmidt"} {
		t.Run(teacher, func(t *testing.T) {
			unsafe, err := l.Unsafe(ctx, teacher)
			if err != nil {
				t.Fatalf("Unsafe: %v", err)
			}
			safe, err := l.Safe(ctx, teacher)
			if err != nil {
				t.Fatalf("Safe: %v", err)
			}
			if !reflect.DeepEqual(unsafe, safe) {
				t.Errorf("Unsafe = %+v, Safe = %+v", unsafe, safe)
			}
		})
	}
}

func TestSafeLookupDropInput(t *testing.T) {
	cfg := newStore(t)
	l := NewLookup(cfg, nil, nil)
	ctx := context.Background()

	got, err := l.Safe(ctx, dropInput)
	if err != nil {
		t.Fatalf("Safe: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Safe(%q) returned %d rows, want 0", dropInput, len(got))
	}
	if !tableExists(t, cfg) {
		t.Fatal("stundenplan was dropped by the safe lookup")
	}

	after, err := l.Safe(ctx, "Schmidt")
	if err != nil {
		t.Fatalf("Safe after attack: %v", err)
	}
	if len(after) != 3 {
		t.Errorf("Safe(Schmidt) after attack = %d rows, want 3", len(after))
	}
}

func TestUnsafeLookupDropInput(t *testing.T) {
	// Disposable store. The sqlite driver refuses the stacked DROP while the
	// SELECT still holds the table, so the call fails and the table survives.
	cfg := newStore(t)
	l := NewLookup(cfg, nil, nil)

	stmt := UnsafeStatement(dropInput)
	if utils.SameStructure(UnsafeStatement(""), stmt) {
		t.Fatalf("interpolated statement kept its structure: %q", stmt)
	}
	report := utils.InspectSQL(stmt)
	if report.Statements != 2 || !reflect.DeepEqual(report.Forbidden, []string{"DROP"}) {
		t.Fatalf("InspectSQL(%q) = %+v", stmt, report)
	}

	if _, err := l.Unsafe(context.Background(), dropInput); err == nil {
		t.Error("Unsafe with stacked DROP succeeded, want an error")
	}
	if !tableExists(t, cfg) {
		t.Error("stundenplan is gone after the stacked DROP")
	}
}

func TestTautologyInput(t *testing.T) {
	l := NewLookup(newStore(t), nil, nil)
	ctx := context.Background()
	input := "' OR '1'='1"

	unsafe, err := l.Unsafe(ctx, input)
	if err != nil {
		t.Fatalf("Unsafe: %v", err)
	}
	if len(unsafe) != 7 {
		t.Errorf("Unsafe(%q) = %d rows, want every row (7)", input, len(unsafe))
	}

	safe, err := l.Safe(ctx, input)
	if err != nil {
		t.Fatalf("Safe: %v", err)
	}
	if len(safe) != 0 {
		t.Errorf("Safe(%q) = %d rows, want 0", input, len(safe))
	}
}

func TestQuoteInName(t *testing.T) {
	l := NewLookup(newStore(t), nil, nil)
	ctx := context.Background()

	safe, err := l.Safe(ctx, "O'Brien")
	if err != nil {
		t.Fatalf("Safe: %v", err)
	}
	if want := []Schedule{{Subject: "Englisch", Room: "A003", Weekday: "Montag"}}; !reflect.DeepEqual(safe, want) {
		t.Errorf("Safe(O'Brien) = %+v, want %+v", safe, want)
	}

	if _, err := l.Unsafe(ctx, "O'Brien"); err == nil {
		t.Error("Unsafe(O'Brien) succeeded, want a syntax error")
	}
}

func TestSafeLookupIdempotent(t *testing.T) {
	l := NewLookup(newStore(t), nil, nil)
	ctx := context.Background()

	first, err := l.Safe(ctx, "Müller")
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.Safe(ctx, "Müller")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("first = %+v, second = %+v", first, second)
	}
}

func TestEmptyTeacher(t *testing.T) {
	l := NewLookup(newStore(t), nil, nil)
	ctx := context.Background()

	for name, fn := range map[string]func(context.Context, string) ([]Schedule, error){
		"safe":   l.Safe,
		"unsafe": l.Unsafe,
	} {
		got, err := fn(ctx, "")
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("%s(\"\") = %#v, want empty slice", name, got)
		}
	}
}

func TestLookupConnectError(t *testing.T) {
	boom := errors.New("boom")
	l := &Lookup{Connect: func(context.Context) (database.Querier, error) { return nil, boom }}

	if _, err := l.Safe(context.Background(), "Schmidt"); !errors.Is(err, boom) {
		t.Errorf("Safe err = %v, want wrapped boom", err)
	}
	if _, err := l.Unsafe(context.Background(), "Schmidt"); !errors.Is(err, boom) {
		t.Errorf("Unsafe err = %v, want wrapped boom", err)
	}
}

func TestLookupMissingTable(t *testing.T) {
	cfg := database.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "empty.db")}
	l := NewLookup(cfg, nil, nil)

	if _, err := l.Safe(context.Background(), "Schmidt"); err == nil {
		t.Error("expected error for missing table")
	}
}
