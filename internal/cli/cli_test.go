package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/quitvipe/quitvipe/internal/daemon"
	"github.com/quitvipe/quitvipe/internal/token"
)

func setupHome(t *testing.T) {
	t.Helper()
	t.Setenv("QUITVIPE_HOME", t.TempDir())
	t.Setenv("QUITVIPE_SESSION_SECRET", "")
	t.Setenv("QUITVIPE_TOKEN_SECRET", "")
	t.Setenv("QUITVIPE_REDIS_ADDR", "")
}

// execute runs the root command. Flag variables survive between runs, so they
// are reset first.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	badgesEvaluate = false
	configForce = false
	puffCount = 1
	puffTrigger = ""
	listLimit = 20

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestConfigInitAndShow(t *testing.T) {
	setupHome(t)

	out, err := execute(t, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, daemon.ConfigPath()) {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(daemon.ConfigPath()); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	if _, err := execute(t, "config", "init"); err == nil {
		t.Error("second init without --force should fail")
	}
	if _, err := execute(t, "config", "init", "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}

	out, err = execute(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "********") || !strings.Contains(out, "[tracker]") {
		t.Errorf("config show should redact secrets:\n%s", out)
	}
}

func TestToken(t *testing.T) {
	setupHome(t)

	if _, err := execute(t, "token", "u1"); err == nil {
		t.Error("token without a secret should fail")
	}

	t.Setenv("QUITVIPE_TOKEN_SECRET", "cli-secret")
	out, err := execute(t, "token", "u1")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	issuer, _ := token.NewIssuer("cli-secret", time.Hour)
	user, err := issuer.Verify(strings.TrimSpace(out))
	if err != nil || user != "u1" {
		t.Errorf("Verify(printed token) = %q, %v", user, err)
	}
}

func TestPuffStatsUndo(t *testing.T) {
	setupHome(t)

	out, err := execute(t, "puff", "u1", "--count", "3", "--trigger", "stress")
	if err != nil {
		t.Fatalf("puff: %v", err)
	}
	if !strings.Contains(out, "Logged 3 (stress)") || !strings.Contains(out, "first_puff") {
		t.Errorf("puff output = %q", out)
	}
	if _, err := execute(t, "puff", "u1", "-n", "2"); err != nil {
		t.Fatalf("puff: %v", err)
	}
	if _, err := execute(t, "puff", "u1", "-n", "0"); err == nil {
		t.Error("count 0 should fail")
	}

	out, err = execute(t, "stats", "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"5 puffs in 2 entries", "Streak:      1 days", "Goal:        none"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "list", "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Count(out, "\n") != 3 {
		t.Errorf("list should print a header and two rows:\n%s", out)
	}

	out, err = execute(t, "undo", "u1")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !strings.Contains(out, "Removed 2 (other)") {
		t.Errorf("undo output = %q", out)
	}
}

func TestBadges(t *testing.T) {
	setupHome(t)

	out, err := execute(t, "badges", "u1")
	if err != nil {
		t.Fatalf("badges: %v", err)
	}
	if strings.Count(out, "\n") != 9 {
		t.Errorf("badges should list the header and eight badges:\n%s", out)
	}
	if strings.Contains(out, "Unlocked") {
		t.Errorf("nothing should unlock without events:\n%s", out)
	}

	if _, err := execute(t, "puff", "u1"); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "badges", "u1", "--evaluate")
	if err != nil {
		t.Fatalf("badges --evaluate: %v", err)
	}
	if strings.Contains(out, "Unlocked") {
		t.Errorf("first_puff was already awarded on record:\n%s", out)
	}
	if !strings.Contains(out, "First Step") {
		t.Errorf("catalog should name First Step:\n%s", out)
	}
}

func TestArgsRequired(t *testing.T) {
	setupHome(t)
	for _, cmd := range []string{"stats", "badges", "token", "puff", "undo", "list"} {
		if _, err := execute(t, cmd); err == nil {
			t.Errorf("%s without USER_ID should fail", cmd)
		}
	}
}
