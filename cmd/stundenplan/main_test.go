package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"learnon/database"
)

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("stundenplan %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestSeedCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "learnon.db")
	out := runCmd(t, "seed", "--db", db)
	if !strings.Contains(out, "inserted 7 rows") {
		t.Errorf("output = %q", out)
	}

	seed := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(seed, []byte("stundenplan:\n  - {lehrer: Klein, fach: Kunst, raum: K1, wochentag: Freitag}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	out = runCmd(t, "seed", "--db", db, "--file", seed)
	if !strings.Contains(out, "inserted 1 rows") {
		t.Errorf("output = %q", out)
	}

	conn, err := database.Connect(context.Background(), database.Config{Driver: "sqlite", DSN: db})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	ok, err := database.TableExists(context.Background(), conn, "stundenplan")
	if err != nil || !ok {
		t.Fatalf("TableExists = %v, %v", ok, err)
	}
}

func TestDemoCommand(t *testing.T) {
	out := runCmd(t, "demo", "Schmidt", "' OR '1'='1")

	for _, want := range []string{
		`teacher = "Schmidt"`,
		`teacher = "' OR '1'='1"`,
		"3 rows",
		"7 rows",
		"unsafe statement:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("demo output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "table stundenplan is gone") {
		t.Errorf("benign demo inputs dropped the table:\n%s", out)
	}
}
