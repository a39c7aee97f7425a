package database

import (
	"testing"

	"github.com/xelth-com/eckgrid/internal/config"
)

func TestUseEmbedded(t *testing.T) {
	if !UseEmbedded(config.DatabaseConfig{Host: "localhost"}) {
		t.Error("localhost without password should use embedded postgres")
	}
	if UseEmbedded(config.DatabaseConfig{Host: "localhost", Password: "pw"}) {
		t.Error("a password selects an external server")
	}
	if UseEmbedded(config.DatabaseConfig{Host: "db.internal"}) {
		t.Error("a remote host selects an external server")
	}
}

func TestDSN(t *testing.T) {
	got := DSN(config.DatabaseConfig{Host: "h", Port: "1", Username: "u", Password: "p", Database: "d"})
	want := "host=h port=1 user=u password=p dbname=d sslmode=disable"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
