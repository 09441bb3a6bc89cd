package vault

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSplitMount(t *testing.T) {
	cases := map[string][2]string{
		"secret/metrica/db": {"secret", "metrica/db"},
		"secret":            {"secret", ""},
		"":                  {"", ""},
	}
	for in, want := range cases {
		m, r := splitMount(in)
		if m != want[0] || r != want[1] {
			t.Errorf("splitMount(%q) = %q, %q; want %q, %q", in, m, r, want[0], want[1])
		}
	}
}

func TestGetKV_ServesFromCache(t *testing.T) {
	c := &Client{log: zap.NewNop().Sugar(), cache: map[string]cached{
		"secret/metrica/db#password": {val: "s3cret", exp: time.Now().Add(time.Minute)},
	}}

	got, err := c.GetKV(context.Background(), "secret/metrica/db", "password", time.Minute)
	if err != nil || got != "s3cret" {
		t.Fatalf("GetKV = %q, %v; want cached value", got, err)
	}
}

func TestGetKV_RejectsEmptyRef(t *testing.T) {
	c := &Client{cache: map[string]cached{}}
	if _, err := c.GetKV(context.Background(), "", "password", 0); !errors.Is(err, ErrEmptyRef) {
		t.Fatalf("err = %v, want ErrEmptyRef", err)
	}
}
