package main

import "testing"

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	required := []string{"submit", "variant", "profile", "calibration", "queue", "daemon"}
	for _, name := range required {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestSubmitCmdIncludesEventTypes(t *testing.T) {
	cmd := buildSubmitCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range []string{"match-accept", "match-reject", "completion", "trade"} {
		if !names[name] {
			t.Fatalf("expected submit subcommand %q to be registered", name)
		}
	}
}
