package display

import (
	"os"
	"testing"
)

func TestWrap_Enabled(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)

	tests := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"Bold", Bold, "\033[1mx\033[0m"},
		{"Dim", Dim, "\033[2mx\033[0m"},
		{"Red", Red, "\033[31mx\033[0m"},
		{"Green", Green, "\033[32mx\033[0m"},
		{"Yellow", Yellow, "\033[33mx\033[0m"},
		{"Cyan", Cyan, "\033[36mx\033[0m"},
		{"Gray", Gray, "\033[90mx\033[0m"},
		{"Accent", Accent, "\033[1m\033[36mx\033[0m"},
	}
	for _, tt := range tests {
		if got := tt.fn("x"); got != tt.want {
			t.Errorf("%s(\"x\") = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestAllColors_Disabled_ReturnPlainText(t *testing.T) {
	SetEnabled(false)

	for name, fn := range map[string]func(string) string{
		"Bold": Bold, "Dim": Dim, "Red": Red, "Green": Green, "Yellow": Yellow,
		"Cyan": Cyan, "Gray": Gray, "Accent": Accent,
	} {
		if got := fn("plain"); got != "plain" {
			t.Errorf("%s with colors disabled = %q, want %q", name, got, "plain")
		}
	}
}

func TestBoldf(t *testing.T) {
	SetEnabled(false)
	if got := Boldf("%s in %dm", "Asr", 5); got != "Asr in 5m" {
		t.Errorf("Boldf = %q", got)
	}
}

func TestEnabled_ReportsState(t *testing.T) {
	SetEnabled(true)
	if !Enabled() {
		t.Error("Enabled() = false after SetEnabled(true)")
	}
	SetEnabled(false)
	if Enabled() {
		t.Error("Enabled() = true after SetEnabled(false)")
	}
}

func TestShouldEnable_Env(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("FORCE_COLOR", "1")
	if shouldEnable() {
		t.Error("NO_COLOR must win over FORCE_COLOR")
	}

	os.Unsetenv("NO_COLOR")
	if !shouldEnable() {
		t.Error("FORCE_COLOR should enable colors")
	}
}

func TestIsTerminal_File(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsTerminal(f) {
		t.Error("a regular file is not a terminal")
	}
}

func TestRedraw(t *testing.T) {
	SetEnabled(false)
	if got := Redraw("Asr 00:10:00"); got != "Asr 00:10:00\n" {
		t.Errorf("Redraw plain = %q", got)
	}

	SetEnabled(true)
	defer SetEnabled(false)
	if got := Redraw("Asr 00:10:00"); got != "\r\033[2KAsr 00:10:00" {
		t.Errorf("Redraw terminal = %q", got)
	}
}
