package models

import "time"

// ResponseStatus is the terminal status of an orchestration request.
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusPartial ResponseStatus = "partial"
	StatusError   ResponseStatus = "error"
)

// Response format modes recognized by the synthesis prompt builder.
const (
	FormatDetailed = "detailed"
	FormatSummary  = "summary"
	FormatRaw      = "raw"
)

// Preference defaults applied when the caller omits a value.
const (
	DefaultMaxSteps       = 10
	DefaultTimeoutMillis  = 30000
	DefaultResponseFormat = FormatDetailed
)

// OrchestrationRequest is one user utterance to process.
type OrchestrationRequest struct {
	Message     string                    `json:"message"`
	SessionID   string                    `json:"sessionId,omitempty"`
	Context     map[string]any            `json:"context,omitempty"`
	Preferences *OrchestrationPreferences `json:"preferences,omitempty"`
	Timestamp   time.Time                 `json:"timestamp,omitempty"`
}

// OrchestrationPreferences tunes a single request. Timeout and Temperature
// are pointers because their zero values are meaningful: timeout 0 means
// "do not wait for an admission slot" and temperature 0 is a valid setting,
// while an omitted field falls back to the default. All accessor methods
// are nil-receiver safe.
type OrchestrationPreferences struct {
	MaxSteps         *int     `json:"maxSteps,omitempty"` // 0 is a valid budget (no iterations)
	Timeout          *int     `json:"timeout,omitempty"` // admission wait, milliseconds
	PreferredServers []string `json:"preferredServers,omitempty"`
	ResponseFormat   string   `json:"responseFormat,omitempty"`
	IncludeMetadata  bool     `json:"includeMetadata,omitempty"`
	AIProvider       string   `json:"aiProvider,omitempty"`
	MaxTokens        int      `json:"maxTokens,omitempty"` // 0 → provider default
	Temperature      *float64 `json:"temperature,omitempty"`
}

// StepBudget returns the requested step budget. nil or negative → the
// DefaultMaxSteps of 10; an explicit 0 is honored and yields a request that
// runs zero reason/act iterations.
func (p *OrchestrationPreferences) StepBudget() int {
	if p == nil || p.MaxSteps == nil || *p.MaxSteps < 0 {
		return DefaultMaxSteps
	}
	return *p.MaxSteps
}

// AdmissionTimeout returns how long the request may wait for an admission
// slot. nil → 30s default; 0 or negative → do not wait.
func (p *OrchestrationPreferences) AdmissionTimeout() time.Duration {
	if p == nil || p.Timeout == nil {
		return DefaultTimeoutMillis * time.Millisecond
	}
	if *p.Timeout <= 0 {
		return 0
	}
	return time.Duration(*p.Timeout) * time.Millisecond
}

// Format returns the synthesis response format, defaulting to "detailed".
func (p *OrchestrationPreferences) Format() string {
	if p == nil || p.ResponseFormat == "" {
		return DefaultResponseFormat
	}
	return p.ResponseFormat
}

// TemperatureOrDefault returns the requested temperature, or -1 when the
// reasoner should use its provider default (unset or negative).
func (p *OrchestrationPreferences) TemperatureOrDefault() float64 {
	if p == nil || p.Temperature == nil || *p.Temperature < 0 {
		return -1
	}
	return *p.Temperature
}

// MaxTokensOrDefault returns the requested token cap, 0 meaning the
// reasoner's provider default.
func (p *OrchestrationPreferences) MaxTokensOrDefault() int {
	if p == nil || p.MaxTokens < 0 {
		return 0
	}
	return p.MaxTokens
}

// Provider returns the requested reasoner provider name, empty meaning the
// configured default provider.
func (p *OrchestrationPreferences) Provider() string {
	if p == nil {
		return ""
	}
	return p.AIProvider
}

// ResponseMetadata summarizes what a request touched.
type ResponseMetadata struct {
	TotalDuration time.Duration  `json:"totalDuration"`
	StepsExecuted int            `json:"stepsExecuted"`
	ServersUsed   []string       `json:"serversUsed"`
	ToolsUsed     []string       `json:"toolsUsed"`
	Performance   map[string]any `json:"performance,omitempty"`
}

// OrchestrationResponse is the terminal result of one request.
type OrchestrationResponse struct {
	RequestID     string           `json:"requestId"`
	SessionID     string           `json:"sessionId"`
	Status        ResponseStatus   `json:"status"`
	Response      string           `json:"response"`
	ExecutionFlow []ExecutionStep  `json:"executionFlow"`
	Metadata      ResponseMetadata `json:"metadata"`
}
