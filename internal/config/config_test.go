package config

import "testing"

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) = %v, want nil", err)
	}
}

func TestValidateRejectsNonPositiveSlabSize(t *testing.T) {
	cfg := Default()
	cfg.SlabSize = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate(slab_size=0) = nil, want error")
	}
}

func TestValidateRejectsNonPositiveKappa(t *testing.T) {
	cfg := Default()
	cfg.Kappa = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate(kappa=0) = nil, want error")
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate(log_level=verbose) = nil, want error")
	}
}

func TestValidateAcceptsAllKnownLogLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		cfg := Default()
		cfg.LogLevel = lvl
		if err := Validate(cfg); err != nil {
			t.Fatalf("Validate(log_level=%s) = %v, want nil", lvl, err)
		}
	}
}
