package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reelfeed/internal/likes"
	"github.com/roach88/reelfeed/internal/remote"
)

// Scenario is a scripted feed session: a seeded remote, a user, a list of
// steps driving the session and assertions on the final state.
type Scenario struct {
	// Name uniquely identifies the scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	Config ScenarioConfig `yaml:"config,omitempty"`
	Setup  Setup          `yaml:"setup"`
	Steps  []Step         `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// ScenarioConfig overrides session options. Zero values keep the defaults.
type ScenarioConfig struct {
	PageSize            int     `yaml:"page_size,omitempty"`
	LikePolicy          string  `yaml:"like_policy,omitempty"`
	VisibilityThreshold float64 `yaml:"visibility_threshold,omitempty"`
	SentinelThreshold   float64 `yaml:"sentinel_threshold,omitempty"`
	Debounce            string  `yaml:"debounce,omitempty"`
	LoadLikes           bool    `yaml:"load_likes,omitempty"`
}

// Setup seeds the fake remote and the session.
type Setup struct {
	// Listings seeds "listing-001".."listing-NNN", newest last.
	Listings int `yaml:"listings"`

	// User is the acting user id; empty is anonymous.
	User string `yaml:"user,omitempty"`

	// Likes are pre-existing like relations.
	Likes []LikeRow `yaml:"likes,omitempty"`

	// Sold lists listings marked sold before the session starts.
	Sold []string `yaml:"sold,omitempty"`

	// Players attaches a recording player to each listed item.
	Players []string `yaml:"players,omitempty"`

	// RejectAutoplay lists players whose Play fails.
	RejectAutoplay []string `yaml:"reject_autoplay,omitempty"`
}

// LikeRow is a like relation.
type LikeRow struct {
	Listing string `yaml:"listing"`
	User    string `yaml:"user"`
}

// Step is one scenario operation.
type Step struct {
	Op string `yaml:"op"`

	// Text is the search text or price text.
	Text string `yaml:"text,omitempty"`

	// Duration advances the manual clock, e.g. "300ms".
	Duration string `yaml:"duration,omitempty"`

	// Visible is the sentinel visibility.
	Visible *bool `yaml:"visible,omitempty"`

	// Listing is the target of toggle_like, load_like and toggle_play.
	Listing string `yaml:"listing,omitempty"`

	// Remote is the collaborator operation for fail_next, hold and release.
	Remote string `yaml:"remote,omitempty"`

	// Error is the injected failure: network, not_found, conflict,
	// unauthorized or validation.
	Error string `yaml:"error,omitempty"`

	// Observations are item visibility ratios.
	Observations []ObservationRow `yaml:"observations,omitempty"`
}

// ObservationRow is one item visibility ratio.
type ObservationRow struct {
	Item  string  `yaml:"item"`
	Ratio float64 `yaml:"ratio"`
}

// Step operations.
const (
	OpStart      = "start"
	OpSearch     = "search"
	OpCategory   = "category"
	OpMinPrice   = "min_price"
	OpMaxPrice   = "max_price"
	OpFlush      = "flush"
	OpAdvance    = "advance"
	OpSentinel   = "sentinel"
	OpFetch      = "fetch"
	OpRetry      = "retry"
	OpSettle     = "settle"
	OpLoadLike   = "load_like"
	OpToggleLike = "toggle_like"
	OpFailNext   = "fail_next"
	OpHold       = "hold"
	OpRelease    = "release"
	OpVisibility = "visibility"
	OpTogglePlay = "toggle_play"
)

var stepOps = []string{
	OpStart, OpSearch, OpCategory, OpMinPrice, OpMaxPrice, OpFlush, OpAdvance,
	OpSentinel, OpFetch, OpRetry, OpSettle, OpLoadLike, OpToggleLike,
	OpFailNext, OpHold, OpRelease, OpVisibility, OpTogglePlay,
}

var remoteOps = []string{
	remote.OpFetchListings, remote.OpFetchListing, remote.OpCreateLike, remote.OpDeleteLike,
	remote.OpCountLikes, remote.OpHasLiked, remote.OpInitiateCheckout, remote.OpCompleteCheckout,
	remote.OpCreateListing,
}

var injectedErrors = []string{"network", "not_found", "conflict", "unauthorized", "validation"}

// Assertion checks the final session state.
type Assertion struct {
	// Type selects the check; see the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number for items_count, remote_calls and the
	// like count of like_state.
	Count *int `yaml:"count,omitempty"`

	// Value is the expected flag for exhausted.
	Value *bool `yaml:"value,omitempty"`

	// Indicator is idle, loading or end.
	Indicator string `yaml:"indicator,omitempty"`

	Remote  string `yaml:"remote,omitempty"`
	Listing string `yaml:"listing,omitempty"`
	Liked   *bool  `yaml:"liked,omitempty"`

	// Items are expected ids, in order, for items and playing.
	Items []string `yaml:"items,omitempty"`

	// Source is fetch or like for error_code.
	Source string `yaml:"source,omitempty"`

	// Code is the expected error code; empty means no error.
	Code string `yaml:"code,omitempty"`

	// Event is an engine event name for trace_contains.
	Event string `yaml:"event,omitempty"`
}

// Assertion types.
const (
	AssertItemsCount    = "items_count"
	AssertItems         = "items"
	AssertExhausted     = "exhausted"
	AssertIndicator     = "indicator"
	AssertRemoteCalls   = "remote_calls"
	AssertLikeState     = "like_state"
	AssertPlaying       = "playing"
	AssertErrorCode     = "error_code"
	AssertTraceContains = "trace_contains"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Setup.Listings < 0 {
		return fmt.Errorf("setup.listings must be non-negative")
	}
	if s.Config.LikePolicy != "" {
		if _, err := likes.ParsePolicy(s.Config.LikePolicy); err != nil {
			return fmt.Errorf("config.like_policy: %w", err)
		}
	}
	if s.Config.Debounce != "" {
		if _, err := time.ParseDuration(s.Config.Debounce); err != nil {
			return fmt.Errorf("config.debounce: %w", err)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	if !slices.Contains(stepOps, step.Op) {
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}
	switch step.Op {
	case OpAdvance:
		if _, err := time.ParseDuration(step.Duration); err != nil {
			return fmt.Errorf("steps[%d]: advance needs a duration: %w", i, err)
		}
	case OpSentinel:
		if step.Visible == nil {
			return fmt.Errorf("steps[%d]: sentinel needs visible", i)
		}
	case OpToggleLike, OpLoadLike, OpTogglePlay:
		if step.Listing == "" {
			return fmt.Errorf("steps[%d]: %s needs a listing", i, step.Op)
		}
	case OpFailNext, OpHold, OpRelease:
		if !slices.Contains(remoteOps, step.Remote) {
			return fmt.Errorf("steps[%d]: unknown remote op %q", i, step.Remote)
		}
		if step.Op == OpFailNext && !slices.Contains(injectedErrors, step.Error) {
			return fmt.Errorf("steps[%d]: unknown error %q", i, step.Error)
		}
	case OpVisibility:
		if len(step.Observations) == 0 {
			return fmt.Errorf("steps[%d]: visibility needs observations", i)
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertItemsCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for items_count", index)
		}
	case AssertItems, AssertPlaying:
	case AssertExhausted:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for exhausted", index)
		}
	case AssertIndicator:
		if !slices.Contains([]string{"idle", "loading", "end"}, a.Indicator) {
			return fmt.Errorf("assertions[%d]: indicator must be idle, loading or end", index)
		}
	case AssertRemoteCalls:
		if !slices.Contains(remoteOps, a.Remote) || a.Count == nil {
			return fmt.Errorf("assertions[%d]: remote_calls needs a known remote and a count", index)
		}
	case AssertLikeState:
		if a.Listing == "" {
			return fmt.Errorf("assertions[%d]: listing is required for like_state", index)
		}
	case AssertErrorCode:
		if a.Source != "fetch" && a.Source != "like" {
			return fmt.Errorf("assertions[%d]: source must be fetch or like", index)
		}
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
