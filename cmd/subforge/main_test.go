package main

import "testing"

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand()
	if root.Use != "subforge" {
		t.Fatalf("root use = %q", root.Use)
	}

	want := map[string]bool{
		"job":       false,
		"config":    false,
		"preflight": false,
		"run":       false,
	}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestJobCommandSubcommands(t *testing.T) {
	job := newJobCommand(newCommandContext(nil))
	want := map[string]bool{
		"add":       false,
		"list":      false,
		"show":      false,
		"retry":     false,
		"translate": false,
	}
	for _, cmd := range job.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("job subcommand %q not registered", name)
		}
	}
}
