package term

import (
	"testing"

	"github.com/backmassage/fishframes/internal/config"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { Configure(config.ColorNever) })

	Configure(config.ColorAlways)
	if !Enabled() {
		t.Fatal("ColorAlways should enable colors")
	}
	if got := Paint(Green, "ok"); got != "\033[1;92mok\033[0m" {
		t.Errorf("Paint = %q", got)
	}

	Configure(config.ColorNever)
	if Enabled() {
		t.Fatal("ColorNever should disable colors")
	}
	if got := Paint(Green, "ok"); got != "ok" {
		t.Errorf("Paint without colors = %q, want plain text", got)
	}
}

func TestIsTerminal_Nil(t *testing.T) {
	if IsTerminal(nil) {
		t.Error("nil file is not a terminal")
	}
}
