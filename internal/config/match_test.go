package config

import (
    "log/slog"
    "testing"
    "time"
)

func TestParseVenueDelays(t *testing.T) {
    t.Parallel()

    got, err := ParseVenueDelays(" Gym=70m, yoga = 1h ,")
    if err != nil {
        t.Fatalf("ParseVenueDelays: %v", err)
    }
    if got["gym"] != 70*time.Minute || got["yoga"] != time.Hour || len(got) != 2 {
        t.Fatalf("unexpected delays: %v", got)
    }

    for _, bad := range []string{"gym", "=5m", "gym=soon", "gym=-1m"} {
        if _, err := ParseVenueDelays(bad); err == nil {
            t.Fatalf("ParseVenueDelays(%q): expected error", bad)
        }
    }

    empty, err := ParseVenueDelays("")
    if err != nil || len(empty) != 0 {
        t.Fatalf("empty input: %v %v", empty, err)
    }
}

func TestMatchConfigThresholds(t *testing.T) {
    t.Parallel()

    cfg := DefaultMatchConfig()
    if got := cfg.Threshold("GYM"); got != 70*time.Minute {
        t.Fatalf("gym threshold: %v", got)
    }
    if got := cfg.Threshold("cafe"); got != 15*time.Second {
        t.Fatalf("default threshold: %v", got)
    }
    if got := cfg.MinThreshold(); got != 15*time.Second {
        t.Fatalf("min threshold: %v", got)
    }

    cfg.VenueDelays = map[string]time.Duration{"library": 5 * time.Second}
    if got := cfg.MinThreshold(); got != 5*time.Second {
        t.Fatalf("min threshold with shorter override: %v", got)
    }
}

func TestLoadMatchConfig(t *testing.T) {
    t.Setenv("STATIONARY_THRESHOLD", "30s")
    t.Setenv("VENUE_DELAYS", "")
    t.Setenv("CYCLE_TIMEZONE", "Europe/Berlin")
    t.Setenv("REVEAL_POLICY", "SENDERS")

    cfg, err := LoadMatchConfig()
    if err != nil {
        t.Fatalf("LoadMatchConfig: %v", err)
    }
    if cfg.StationaryThreshold != 30*time.Second {
        t.Fatalf("threshold: %v", cfg.StationaryThreshold)
    }
    if len(cfg.VenueDelays) != 0 {
        t.Fatalf("expected overrides cleared, got %v", cfg.VenueDelays)
    }
    if cfg.Location.String() != "Europe/Berlin" {
        t.Fatalf("location: %v", cfg.Location)
    }
    if cfg.RevealPolicy != RevealOnSenders {
        t.Fatalf("policy: %q", cfg.RevealPolicy)
    }
    if cfg.DefaultRadius != 300 || cfg.MaxRadius != 5000 {
        t.Fatalf("radius defaults: %v %v", cfg.DefaultRadius, cfg.MaxRadius)
    }
}

func TestLoadMatchConfigRejectsBadValues(t *testing.T) {
    cases := map[string]string{
        "REVEAL_POLICY":         "whenever",
        "CYCLE_TIMEZONE":        "Mars/Olympus",
        "VENUE_DELAYS":          "gym=forever",
        "DEFAULT_RADIUS_METERS": "9000",
    }
    for key, val := range cases {
        t.Run(key, func(t *testing.T) {
            t.Setenv(key, val)
            if _, err := LoadMatchConfig(); err == nil {
                t.Fatalf("%s=%s: expected error", key, val)
            }
        })
    }
}

func TestParseLogLevel(t *testing.T) {
    t.Parallel()

    cases := map[string]slog.Level{
        "debug":   slog.LevelDebug,
        " WARN ":  slog.LevelWarn,
        "warning": slog.LevelWarn,
        "error":   slog.LevelError,
        "":        slog.LevelInfo,
        "chatty":  slog.LevelInfo,
    }
    for in, want := range cases {
        if got := parseLogLevel(in); got != want {
            t.Fatalf("parseLogLevel(%q) = %v, want %v", in, got, want)
        }
    }
}
