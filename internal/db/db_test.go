package db

import (
	"fmt"
	"testing"
	"time"
)

func TestDetectDialectFromDSN(t *testing.T) {
	cases := []struct {
		dsn     string
		want    string
		wantErr bool
	}{
		{"postgres://user:pw@localhost:5432/app", DialectPostgres, false},
		{"postgresql://user:pw@localhost:5432/app", DialectPostgres, false},
		{"host=localhost user=app dbname=app", DialectPostgres, false},
		{"file:data/app.db", DialectSQLite, false},
		{"sqlite://data/app.db", DialectSQLite, false},
		{"data/app.db", DialectSQLite, false},
		{"mysql://localhost/app", "", true},
	}
	for i, tc := range cases {
		got, errDetect := detectDialectFromDSN(tc.dsn)
		if tc.wantErr {
			if errDetect == nil {
				t.Fatalf("case %d: expected error for %s", i, tc.dsn)
			}
			continue
		}
		if errDetect != nil {
			t.Fatalf("case %d: unexpected error: %v", i, errDetect)
		}
		if got != tc.want {
			t.Fatalf("case %d: expected %s, got %s", i, tc.want, got)
		}
	}
}

func TestOpenSQLiteInMemoryAndMigrate(t *testing.T) {
	dsn := fmt.Sprintf("file:dbtest_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := Open(dsn)
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if !IsSQLite(conn) {
		t.Fatalf("expected sqlite dialect, got %s", DialectName(conn))
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
}

func TestCaseInsensitiveLikeExprPerDialect(t *testing.T) {
	dsn := fmt.Sprintf("file:dialect_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := Open(dsn)
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if got := CaseInsensitiveLikeExpr(conn, "host"); got != "LOWER(host) LIKE ?" {
		t.Fatalf("unexpected sqlite expr: %s", got)
	}
	if got := NormalizeLikePattern(conn, "%AlPhA%"); got != "%alpha%" {
		t.Fatalf("expected lowered pattern, got %s", got)
	}
}

func TestNormalizeSQLiteDSN(t *testing.T) {
	if got := normalizeSQLiteDSN("sqlite://data/app.db"); got != "file:data/app.db" {
		t.Fatalf("unexpected normalized dsn: %s", got)
	}
	if got := normalizeSQLiteDSN("file:data/app.db"); got != "file:data/app.db" {
		t.Fatalf("expected file dsn untouched, got %s", got)
	}
}

func TestSQLitePathFromDSN(t *testing.T) {
	cases := []struct {
		dsn  string
		want string
	}{
		{"file:data/app.db?mode=rwc", "data/app.db"},
		{"file::memory:", ""},
		{"data/app.db", "data/app.db"},
		{":memory:", ""},
	}
	for i, tc := range cases {
		if got := sqlitePathFromDSN(tc.dsn); got != tc.want {
			t.Fatalf("case %d: expected %q, got %q", i, tc.want, got)
		}
	}
}
