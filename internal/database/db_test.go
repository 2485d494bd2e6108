package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStatements(t *testing.T) {
	stmts := Statements()
	tables := []string{"users", "refresh_tokens", "hotels", "rooms", "bookings", "payments", "support_tickets"}
	if len(stmts) != len(tables) {
		t.Fatalf("got %d statements, want %d", len(stmts), len(tables))
	}
	for i, s := range stmts {
		want := "CREATE TABLE IF NOT EXISTS " + tables[i] + " ("
		if !strings.HasPrefix(s, want) {
			t.Errorf("statement %d starts %q, want %q", i, s[:min(len(s), 40)], want)
		}
		if strings.Contains(s, "--") {
			t.Errorf("statement %d still carries a comment", i)
		}
	}
}

func TestForeignKeysCascade(t *testing.T) {
	fk := regexp.MustCompile(`FOREIGN KEY \((\w+)\) REFERENCES (\w+) \(id\)([^,\n]*)`)
	n := 0
	for _, s := range Statements() {
		for _, m := range fk.FindAllStringSubmatch(s, -1) {
			n++
			if !strings.Contains(m[3], "ON DELETE CASCADE") {
				t.Errorf("%s -> %s does not cascade", m[1], m[2])
			}
		}
	}
	if n != 7 {
		t.Fatalf("found %d foreign keys, want 7", n)
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for range Statements() {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMigrateStopsAtFirstFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	boom := errors.New("access denied")
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS refresh_tokens").WillReturnError(boom)

	err = Migrate(context.Background(), db)
	if !errors.Is(err, boom) || !strings.HasPrefix(err.Error(), "migrate:") {
		t.Fatalf("err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
