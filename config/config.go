// Package config implements the typed settings surface for Switchboard.
//
// Settings resolve from layered sources in priority order: constructor
// overrides, process environment variables, a config.yml in the working
// directory, a .env secrets file, and field defaults. Missing files are fine;
// a present but invalid file fails construction with a ConfigurationError
// listing every problem, so a misconfigured chatbot never starts half-working.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the file name searched in the working directory.
const DefaultConfigFile = "config.yml"

// Seconds is a duration expressed as float seconds in YAML and environment
// variables (e.g. "specialist_timeout: 1.5").
type Seconds float64

// Duration converts to a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// Settings holds every recognized option. Unknown top-level keys from the
// config file are captured in Extras to support agent-specific subtrees.
type Settings struct {
	LLMModel           string  `yaml:"llm_model"`
	LLMTemperature     float64 `yaml:"llm_temperature"`
	LLMReasoningEffort string  `yaml:"llm_reasoning_effort"`

	RecursionLimit int `yaml:"recursion_limit"`

	SupervisorTimeout Seconds `yaml:"supervisor_timeout"`
	SpecialistTimeout Seconds `yaml:"specialist_timeout"`
	FormatterTimeout  Seconds `yaml:"formatter_timeout"`
	LLMRequestTimeout Seconds `yaml:"llm_request_timeout"`

	SummarizationEnabled       bool `yaml:"summarization_enabled"`
	SummarizationTriggerTokens int  `yaml:"summarization_trigger_tokens"`
	SummarizationKeepMessages  int  `yaml:"summarization_keep_messages"`

	Debug                bool `yaml:"debug"`
	DebugPromptMaxLength int  `yaml:"debug_prompt_max_length"`
	DebugShowResponse    bool `yaml:"debug_show_response"`

	LogLevel    string `yaml:"log_level"`
	LogDir      string `yaml:"log_dir"`
	LogFilename string `yaml:"log_filename"`

	URLSecurity URLSecurity `yaml:"url_security"`

	// Extras holds unknown top-level subtrees (agent-specific settings).
	// Access through ExtrasFor for a typed view.
	Extras map[string]any `yaml:"-"`
}

// AgentExtras is the typed view over one agent's settings subtree, e.g.
//
//	weather_agent:
//	  recursion_limit: 100
//	  specialist_timeout: 30
//
// Nil fields mean "not set"; callers fall back to the global value.
type AgentExtras struct {
	RecursionLimit    *int     `yaml:"recursion_limit"`
	SpecialistTimeout *Seconds `yaml:"specialist_timeout"`
	LLMModel          *string  `yaml:"llm_model"`
	DatetimeMode      *string  `yaml:"datetime_mode"`
}

// ConfigurationError reports every problem found while resolving settings.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid configuration"
	}
	return fmt.Sprintf("invalid configuration:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Defaults returns settings with every field at its documented default.
func Defaults() *Settings {
	return &Settings{
		LLMModel:                   "gpt-4o-mini",
		LLMTemperature:             0.1,
		LLMReasoningEffort:         "",
		RecursionLimit:             50,
		SupervisorTimeout:          300,
		SpecialistTimeout:          120,
		FormatterTimeout:           60,
		LLMRequestTimeout:          60,
		SummarizationEnabled:       false,
		SummarizationTriggerTokens: 8000,
		SummarizationKeepMessages:  6,
		Debug:                      false,
		DebugPromptMaxLength:       2000,
		DebugShowResponse:          true,
		LogLevel:                   "info",
		LogDir:                     "./logs",
		LogFilename:                "",
		URLSecurity: URLSecurity{
			Enabled:            true,
			AllowLocalhost:     false,
			LogBlockedAttempts: true,
		},
		Extras: map[string]any{},
	}
}

// Load resolves settings from path (DefaultConfigFile when empty), the process
// environment and a .env file, then applies the override functions last.
// Missing files yield defaults without error; invalid content fails with a
// *ConfigurationError.
func Load(path string, overrides ...func(*Settings)) (*Settings, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	// Secrets layer: .env never overrides variables already set in the
	// process environment, which keeps env > .env precedence for free.
	_ = godotenv.Load()

	s := Defaults()

	if err := s.loadFile(path); err != nil {
		return nil, err
	}

	var problems []string
	problems = append(problems, s.applyEnvOverrides()...)

	for _, fn := range overrides {
		fn(s)
	}

	problems = append(problems, s.validate()...)
	if len(problems) > 0 {
		return nil, &ConfigurationError{Problems: problems}
	}
	return s, nil
}

var (
	defaultOnce     sync.Once
	defaultSettings *Settings
	defaultErr      error
)

// Get lazily loads process-wide settings from the working directory on first
// access. Engine components receive *Settings by injection; Get exists for
// the process edge (CLI entry points).
func Get() (*Settings, error) {
	defaultOnce.Do(func() {
		defaultSettings, defaultErr = Load("")
	})
	return defaultSettings, defaultErr
}

func (s *Settings) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &ConfigurationError{Problems: []string{fmt.Sprintf("read %s: %v", path, err)}}
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return &ConfigurationError{Problems: []string{fmt.Sprintf("%s: %v", path, err)}}
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			return &ConfigurationError{Problems: te.Errors}
		}
		return &ConfigurationError{Problems: []string{err.Error()}}
	}

	known := knownYAMLKeys()
	for k, v := range raw {
		if !known[k] {
			s.Extras[k] = v
		}
	}
	return nil
}

// knownYAMLKeys collects the top-level yaml tags of Settings so unknown keys
// can be routed into Extras.
func knownYAMLKeys() map[string]bool {
	keys := map[string]bool{}
	t := reflect.TypeOf(Settings{})
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("yaml")
		if tag == "" || tag == "-" {
			continue
		}
		keys[strings.Split(tag, ",")[0]] = true
	}
	return keys
}

// applyEnvOverrides applies UPPER_SNAKE environment variables over file values.
// Nested url_security fields use the URL_SECURITY__ prefix. Returns a list of
// parse problems; malformed env values fail construction rather than being
// silently ignored.
func (s *Settings) applyEnvOverrides() []string {
	var problems []string

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = f
		}
	}
	setSeconds := func(key string, dst *Seconds) {
		if v, ok := os.LookupEnv(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = Seconds(f)
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = b
		}
	}
	setList := func(key string, dst *[]string) {
		if v, ok := os.LookupEnv(key); ok {
			var items []string
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			*dst = items
		}
	}

	setString("LLM_MODEL", &s.LLMModel)
	setFloat("LLM_TEMPERATURE", &s.LLMTemperature)
	setString("LLM_REASONING_EFFORT", &s.LLMReasoningEffort)
	setInt("RECURSION_LIMIT", &s.RecursionLimit)
	setSeconds("SUPERVISOR_TIMEOUT", &s.SupervisorTimeout)
	setSeconds("SPECIALIST_TIMEOUT", &s.SpecialistTimeout)
	setSeconds("FORMATTER_TIMEOUT", &s.FormatterTimeout)
	setSeconds("LLM_REQUEST_TIMEOUT", &s.LLMRequestTimeout)
	setBool("SUMMARIZATION_ENABLED", &s.SummarizationEnabled)
	setInt("SUMMARIZATION_TRIGGER_TOKENS", &s.SummarizationTriggerTokens)
	setInt("SUMMARIZATION_KEEP_MESSAGES", &s.SummarizationKeepMessages)
	setBool("DEBUG", &s.Debug)
	setInt("DEBUG_PROMPT_MAX_LENGTH", &s.DebugPromptMaxLength)
	setBool("DEBUG_SHOW_RESPONSE", &s.DebugShowResponse)
	setString("LOG_LEVEL", &s.LogLevel)
	setString("LOG_DIR", &s.LogDir)
	setString("LOG_FILENAME", &s.LogFilename)
	setBool("URL_SECURITY__ENABLED", &s.URLSecurity.Enabled)
	setList("URL_SECURITY__ALLOW_DOMAINS", &s.URLSecurity.AllowDomains)
	setList("URL_SECURITY__ALLOW_IPS", &s.URLSecurity.AllowIPs)
	setBool("URL_SECURITY__ALLOW_LOCALHOST", &s.URLSecurity.AllowLocalhost)
	setBool("URL_SECURITY__LOG_BLOCKED_ATTEMPTS", &s.URLSecurity.LogBlockedAttempts)

	return problems
}

func (s *Settings) validate() []string {
	var problems []string

	if s.LLMModel == "" {
		problems = append(problems, "llm_model must not be empty")
	}
	if s.LLMTemperature < 0.0 || s.LLMTemperature > 1.0 {
		problems = append(problems, fmt.Sprintf("llm_temperature %v outside range 0.0-1.0", s.LLMTemperature))
	}
	switch s.LLMReasoningEffort {
	case "", "low", "medium", "high":
	default:
		problems = append(problems, fmt.Sprintf("llm_reasoning_effort %q not one of low, medium, high", s.LLMReasoningEffort))
	}
	if s.RecursionLimit <= 0 {
		problems = append(problems, fmt.Sprintf("recursion_limit %d must be positive", s.RecursionLimit))
	}
	for _, tc := range []struct {
		name string
		v    Seconds
	}{
		{"supervisor_timeout", s.SupervisorTimeout},
		{"specialist_timeout", s.SpecialistTimeout},
		{"formatter_timeout", s.FormatterTimeout},
		{"llm_request_timeout", s.LLMRequestTimeout},
	} {
		if tc.v <= 0 {
			problems = append(problems, fmt.Sprintf("%s %v must be positive", tc.name, float64(tc.v)))
		}
	}
	if s.SummarizationTriggerTokens <= 0 {
		problems = append(problems, fmt.Sprintf("summarization_trigger_tokens %d must be positive", s.SummarizationTriggerTokens))
	}
	if s.SummarizationKeepMessages < 0 {
		problems = append(problems, fmt.Sprintf("summarization_keep_messages %d must not be negative", s.SummarizationKeepMessages))
	}
	if s.DebugPromptMaxLength <= 0 {
		problems = append(problems, fmt.Sprintf("debug_prompt_max_length %d must be positive", s.DebugPromptMaxLength))
	}
	problems = append(problems, s.URLSecurity.validate()...)

	return problems
}

// TimeoutWarnings reports violations of the recommended nesting
// llm_request_timeout <= specialist_timeout <= supervisor_timeout.
// These are warnings by design: a chatbot with inverted timeouts still runs,
// it just cannot honor the outer bound.
func (s *Settings) TimeoutWarnings() []string {
	var warnings []string
	if s.LLMRequestTimeout > s.SpecialistTimeout {
		warnings = append(warnings, fmt.Sprintf(
			"llm_request_timeout (%vs) exceeds specialist_timeout (%vs); LLM calls may outlive the specialist bound",
			float64(s.LLMRequestTimeout), float64(s.SpecialistTimeout)))
	}
	if s.SpecialistTimeout > s.SupervisorTimeout {
		warnings = append(warnings, fmt.Sprintf(
			"specialist_timeout (%vs) exceeds supervisor_timeout (%vs); specialists may outlive the supervisor bound",
			float64(s.SpecialistTimeout), float64(s.SupervisorTimeout)))
	}
	return warnings
}

// ExtrasFor decodes the named agent subtree into a typed view. A missing
// subtree returns the zero view; a malformed one is a *ConfigurationError.
func (s *Settings) ExtrasFor(name string) (AgentExtras, error) {
	raw, ok := s.Extras[name]
	if !ok {
		return AgentExtras{}, nil
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return AgentExtras{}, &ConfigurationError{Problems: []string{fmt.Sprintf("%s: %v", name, err)}}
	}
	var ex AgentExtras
	if err := yaml.Unmarshal(data, &ex); err != nil {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			prefixed := make([]string, len(te.Errors))
			for i, p := range te.Errors {
				prefixed[i] = fmt.Sprintf("%s: %s", name, p)
			}
			return AgentExtras{}, &ConfigurationError{Problems: prefixed}
		}
		return AgentExtras{}, &ConfigurationError{Problems: []string{fmt.Sprintf("%s: %v", name, err)}}
	}
	return ex, nil
}

// RecursionLimitFor resolves the effective recursion limit for an agent,
// honoring a per-agent override from Extras.
func (s *Settings) RecursionLimitFor(name string) int {
	if ex, err := s.ExtrasFor(name); err == nil && ex.RecursionLimit != nil && *ex.RecursionLimit > 0 {
		return *ex.RecursionLimit
	}
	return s.RecursionLimit
}

// SpecialistTimeoutFor resolves the effective specialist timeout for an agent,
// honoring a per-agent override from Extras.
func (s *Settings) SpecialistTimeoutFor(name string) time.Duration {
	if ex, err := s.ExtrasFor(name); err == nil && ex.SpecialistTimeout != nil && *ex.SpecialistTimeout > 0 {
		return ex.SpecialistTimeout.Duration()
	}
	return s.SpecialistTimeout.Duration()
}

// ModelFor resolves the effective model for an agent, honoring a per-agent
// override from Extras.
func (s *Settings) ModelFor(name string) string {
	if ex, err := s.ExtrasFor(name); err == nil && ex.LLMModel != nil && *ex.LLMModel != "" {
		return *ex.LLMModel
	}
	return s.LLMModel
}

// DatetimeModeFor resolves the datetime_mode extra for an agent. Empty means
// not configured; callers apply their role default.
func (s *Settings) DatetimeModeFor(name string) string {
	if ex, err := s.ExtrasFor(name); err == nil && ex.DatetimeMode != nil {
		return *ex.DatetimeMode
	}
	return ""
}
