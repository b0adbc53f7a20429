package config

import (
    "fmt"
    "os"
    "strings"
    "time"
)

// Reveal policies.
const (
    RevealOnDecision = "decision" // both sides chose meet
    RevealOnSenders  = "senders"  // both sides have sent a message
)

// MatchConfig holds the matching knobs.  All values have defaults so a bare
// environment produces a working service.
type MatchConfig struct {
    StationaryThreshold time.Duration            // default dwell before a user is discoverable
    PresenceExpiry      time.Duration            // heartbeats older than this are ignored
    DefaultRadius       float64                  // meters, used when the request omits a radius
    MaxRadius           float64                  // meters, requests above this are rejected
    VenueDelays         map[string]time.Duration // per-venue dwell overrides
    Location            *time.Location           // calendar used for day keys
    RevealPolicy        string
    RevealSettleDelay   time.Duration
}

// DefaultMatchConfig returns the built-in defaults.
func DefaultMatchConfig() MatchConfig {
    return MatchConfig{
        StationaryThreshold: 15 * time.Second,
        PresenceExpiry:      5 * time.Minute,
        DefaultRadius:       300,
        MaxRadius:           5000,
        VenueDelays:         map[string]time.Duration{"gym": 70 * time.Minute, "yoga": 70 * time.Minute},
        Location:            time.UTC,
        RevealPolicy:        RevealOnDecision,
        RevealSettleDelay:   2 * time.Second,
    }
}

// LoadMatchConfig reads the matching knobs from the environment.  Invalid
// values that cannot fall back safely (time zone, venue delays, policy) are
// returned as errors so main can abort.
func LoadMatchConfig() (MatchConfig, error) {
    def := DefaultMatchConfig()
    cfg := MatchConfig{
        StationaryThreshold: envDur("STATIONARY_THRESHOLD", def.StationaryThreshold),
        PresenceExpiry:      envDur("PRESENCE_EXPIRY", def.PresenceExpiry),
        DefaultRadius:       envFloat("DEFAULT_RADIUS_METERS", def.DefaultRadius),
        MaxRadius:           envFloat("MAX_RADIUS_METERS", def.MaxRadius),
        VenueDelays:         def.VenueDelays,
        Location:            def.Location,
        RevealPolicy:        strings.ToLower(envStr("REVEAL_POLICY", def.RevealPolicy)),
        RevealSettleDelay:   envDur("REVEAL_SETTLE_DELAY", def.RevealSettleDelay),
    }
    if raw, ok := os.LookupEnv("VENUE_DELAYS"); ok {
        delays, err := ParseVenueDelays(raw)
        if err != nil {
            return MatchConfig{}, err
        }
        cfg.VenueDelays = delays
    }
    if tz, ok := os.LookupEnv("CYCLE_TIMEZONE"); ok {
        loc, err := time.LoadLocation(tz)
        if err != nil {
            return MatchConfig{}, fmt.Errorf("CYCLE_TIMEZONE: %w", err)
        }
        cfg.Location = loc
    }
    switch cfg.RevealPolicy {
    case RevealOnDecision, RevealOnSenders:
    default:
        return MatchConfig{}, fmt.Errorf("REVEAL_POLICY: unknown policy %q", cfg.RevealPolicy)
    }
    if cfg.StationaryThreshold < 0 || cfg.PresenceExpiry <= 0 {
        return MatchConfig{}, fmt.Errorf("STATIONARY_THRESHOLD and PRESENCE_EXPIRY must be positive")
    }
    if cfg.DefaultRadius <= 0 || cfg.MaxRadius < cfg.DefaultRadius {
        return MatchConfig{}, fmt.Errorf("radius: default %.0f must be positive and not above max %.0f", cfg.DefaultRadius, cfg.MaxRadius)
    }
    return cfg, nil
}

// ParseVenueDelays parses "gym=70m,yoga=70m".  An empty string clears all
// overrides.
func ParseVenueDelays(s string) (map[string]time.Duration, error) {
    out := map[string]time.Duration{}
    for _, part := range strings.Split(s, ",") {
        part = strings.TrimSpace(part)
        if part == "" {
            continue
        }
        name, val, ok := strings.Cut(part, "=")
        name = strings.ToLower(strings.TrimSpace(name))
        if !ok || name == "" {
            return nil, fmt.Errorf("VENUE_DELAYS: malformed entry %q", part)
        }
        d, err := time.ParseDuration(strings.TrimSpace(val))
        if err != nil || d < 0 {
            return nil, fmt.Errorf("VENUE_DELAYS: bad duration for %q", name)
        }
        out[name] = d
    }
    return out, nil
}

// Threshold returns the dwell time required for a candidate at venue.
func (m MatchConfig) Threshold(venue string) time.Duration {
    if d, ok := m.VenueDelays[strings.ToLower(venue)]; ok {
        return d
    }
    return m.StationaryThreshold
}

// MinThreshold is the smallest dwell any candidate can need; the store query
// uses it as a coarse cutoff before per-venue thresholds are applied.
func (m MatchConfig) MinThreshold() time.Duration {
    min := m.StationaryThreshold
    for _, d := range m.VenueDelays {
        if d < min {
            min = d
        }
    }
    return min
}
