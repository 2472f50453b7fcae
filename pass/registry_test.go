package pass

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/stage"
)

func TestRegistryLookupByName(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name string
		want Mask
	}{
		{"shadow", Shadow},
		{"opaque", Opaque},
		{"transparent", Transparent},
		{"overlay", Overlay},
		{"all", All},
		{"solid", AllSolid},
	}
	for _, tt := range tests {
		if got := r.Mask(tt.name); got != tt.want {
			t.Errorf("Mask(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRegistryUnknownNameIsEmptyAndWarns(t *testing.T) {
	orig := stage.Logger()
	t.Cleanup(func() { stage.SetLogger(orig) })

	var buf bytes.Buffer
	stage.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	r := NewRegistry()
	if got := r.Mask("opqaue"); got != None {
		t.Errorf("Mask(unknown) = %v, want None", got)
	}
	if !strings.Contains(buf.String(), "unknown pass name") {
		t.Errorf("expected warning log, got: %s", buf.String())
	}
}

func TestRegistryConfig(t *testing.T) {
	r := NewRegistry()

	cfg, ok := r.Config(Shadow)
	if !ok {
		t.Fatal("Config(Shadow) not found")
	}
	if cfg.Name != "shadow" {
		t.Errorf("Config(Shadow).Name = %q, want %q", cfg.Name, "shadow")
	}
	if cfg.HasColor() {
		t.Error("shadow pass should be depth-only")
	}
	if !cfg.HasDepth() {
		t.Error("shadow pass should have a depth attachment")
	}
	if cfg.Sort != SortFrontToBack {
		t.Errorf("shadow sort = %v, want %v", cfg.Sort, SortFrontToBack)
	}

	if _, ok := r.Config(AllBlended); ok {
		t.Error("Config(union) should not resolve")
	}
	if _, ok := r.Config(None); ok {
		t.Error("Config(None) should not resolve")
	}
}

func TestRegistryTransparentSortsBackToFront(t *testing.T) {
	r := NewRegistry()
	cfg, ok := r.Config(Transparent)
	if !ok {
		t.Fatal("Config(Transparent) not found")
	}
	if cfg.Sort != SortBackToFront {
		t.Errorf("transparent sort = %v, want %v", cfg.Sort, SortBackToFront)
	}
}

func TestRegistryRegisterCustomPass(t *testing.T) {
	r := NewRegistry()
	custom := Mask(1) << 12

	err := r.Register(custom, Config{
		Name:        "outline",
		ColorFormat: gputypes.TextureFormatBGRA8Unorm,
		LoadOp:      gputypes.LoadOpLoad,
		Sort:        SortKey,
	})
	if err != nil {
		t.Fatalf("Register() = %v", err)
	}
	if got := r.Mask("outline"); got != custom {
		t.Errorf("Mask(\"outline\") = %v, want %v", got, custom)
	}

	passes := r.Passes()
	if passes[len(passes)-1] != custom {
		t.Errorf("Passes() last = %v, want custom bit %v", passes[len(passes)-1], custom)
	}
}

func TestRegistryRegisterRejectsBadMasks(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(None, Config{Name: "x"}); !errors.Is(err, ErrNotSingleBit) {
		t.Errorf("Register(None) = %v, want ErrNotSingleBit", err)
	}
	if err := r.Register(AllBlended, Config{Name: "x"}); !errors.Is(err, ErrNotSingleBit) {
		t.Errorf("Register(union) = %v, want ErrNotSingleBit", err)
	}
	if err := r.Register(Shadow, Config{Name: "x"}); !errors.Is(err, ErrBitTaken) {
		t.Errorf("Register(Shadow) = %v, want ErrBitTaken", err)
	}
	if err := r.Register(Mask(1)<<13, Config{Name: "opaque"}); !errors.Is(err, ErrNameTaken) {
		t.Errorf("Register(dup name) = %v, want ErrNameTaken", err)
	}
}

func TestRegistryPassesInExecutionOrder(t *testing.T) {
	r := NewRegistry()
	passes := r.Passes()
	if len(passes) != 11 {
		t.Fatalf("Passes() len = %d, want 11", len(passes))
	}
	for i := 1; i < len(passes); i++ {
		if passes[i-1] >= passes[i] {
			t.Errorf("Passes() not ascending at %d: %v >= %v", i, passes[i-1], passes[i])
		}
	}
}

func TestApplyConfigOverrides(t *testing.T) {
	r := NewRegistry()
	src := `
[pass.background]
clear = [0.1, 0.2, 0.3, 1.0]

[pass.overlay]
load = "clear"

[pass.particles]
sort = "key"

[pass.lighting]
blend = true
`
	if err := r.ApplyConfig(src); err != nil {
		t.Fatalf("ApplyConfig() = %v", err)
	}

	bg, _ := r.Config(Background)
	if bg.ClearColor.G != 0.2 {
		t.Errorf("background clear G = %v, want 0.2", bg.ClearColor.G)
	}
	ov, _ := r.Config(Overlay)
	if ov.LoadOp != gputypes.LoadOpClear {
		t.Errorf("overlay load op = %v, want LoadOpClear", ov.LoadOp)
	}
	pt, _ := r.Config(Particles)
	if pt.Sort != SortKey {
		t.Errorf("particles sort = %v, want SortKey", pt.Sort)
	}
	lt, _ := r.Config(Lighting)
	if !lt.Blend {
		t.Error("lighting blend should be overridden to true")
	}
}

func TestApplyConfigUnknownPassWarns(t *testing.T) {
	orig := stage.Logger()
	t.Cleanup(func() { stage.SetLogger(orig) })

	var buf bytes.Buffer
	stage.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	r := NewRegistry()
	if err := r.ApplyConfig("[pass.nosuch]\nload = \"clear\"\n"); err != nil {
		t.Fatalf("ApplyConfig() = %v, want nil (unknown pass is a warning)", err)
	}
	if !strings.Contains(buf.String(), "unknown pass") {
		t.Errorf("expected warning log, got: %s", buf.String())
	}
}

func TestApplyConfigInvalidValues(t *testing.T) {
	r := NewRegistry()

	if err := r.ApplyConfig("[pass.opaque]\nload = \"discard\"\n"); err == nil {
		t.Error("ApplyConfig with invalid load op should fail")
	}
	if err := r.ApplyConfig("[pass.opaque]\nsort = \"random\"\n"); err == nil {
		t.Error("ApplyConfig with invalid sort should fail")
	}
	if err := r.ApplyConfig("not valid toml ["); err == nil {
		t.Error("ApplyConfig with malformed TOML should fail")
	}
}
