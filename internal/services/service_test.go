package services

import (
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/ottdctl/internal/testutil/testlog"
)

func TestRegistryRegisterAndList(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	if err := r.Register(Func{ServiceName: "slack"}); err != nil {
		t.Fatalf("register slack: %v", err)
	}
	err := r.Register(Func{ServiceName: "admin", ActionSet: map[string]Action{
		"date":    func() (string, error) { return "requested", nil },
		"clients": func() (string, error) { return "requested", nil },
	}})
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	if err := r.Register(Func{ServiceName: "admin"}); !errors.Is(err, ErrServiceExists) {
		t.Fatalf("expected ErrServiceExists, got %v", err)
	}

	want := []Info{
		{Name: "admin", Actions: []string{"clients", "date"}},
		{Name: "slack", Actions: []string{}},
	}
	if got := r.List(); !reflect.DeepEqual(got, want) {
		t.Fatalf("list=%+v want %+v", got, want)
	}
}

func TestRegistryExecuteOutputsAndErrors(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	_ = r.Register(Func{
		ServiceName: "svc",
		StatusFunc:  func() (any, error) { return map[string]int{"clients": 2}, nil },
		ActionSet: map[string]Action{
			"ok":  func() (string, error) { return "done", nil },
			"err": func() (string, error) { return "", errors.New("boom") },
		},
	})

	out, err := r.Execute("svc", "ok")
	if err != nil || out != "done" {
		t.Fatalf("expected successful action output, out=%q err=%v", out, err)
	}
	if _, err := r.Execute("svc", "missing"); !errors.Is(err, ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound, got %v", err)
	}
	if _, err := r.Execute("missing", "ok"); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
	if _, err := r.Execute("svc", "err"); err == nil {
		t.Fatalf("expected service action error")
	}

	status, err := r.Status("svc")
	if err != nil || !reflect.DeepEqual(status, map[string]int{"clients": 2}) {
		t.Fatalf("status=%v err=%v", status, err)
	}
	if _, err := r.Status("missing"); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestFuncDefaults(t *testing.T) {
	testlog.Start(t)
	f := Func{ServiceName: "bare"}
	if status, err := f.Status(); err != nil || status != "ok" {
		t.Fatalf("status=%v err=%v", status, err)
	}
	if f.Actions() == nil {
		t.Fatalf("expected empty action map")
	}
}
