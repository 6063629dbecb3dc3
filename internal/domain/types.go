package domain

// Language identifies a supported toolchain
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangCpp        Language = "cpp"
	LangJava       Language = "java"
	LangPHP        Language = "php"
	LangRuby       Language = "ruby"
	LangShell      Language = "shell"
	LangStatic     Language = "static" // yaml, Dockerfile, html: lint-only
	LangUnknown    Language = ""
)

// TargetStatus represents the final classification of a rescued file
type TargetStatus string

const (
	StatusClean  TargetStatus = "CLEAN"  // passed on the first run, untouched
	StatusFixed  TargetStatus = "FIXED"  // passed after at least one patch
	StatusFailed TargetStatus = "FAILED" // attempt budget exhausted
)

// LoopState represents the retry controller's position in the fix cycle
type LoopState string

const (
	StateIdle            LoopState = "idle"
	StateRunning         LoopState = "running"
	StateAnalyzing       LoopState = "analyzing"
	StatePatching        LoopState = "patching"
	StateSuccess         LoopState = "success"
	StateExhausted       LoopState = "exhausted"
	StateDetectionFailed LoopState = "detection_failed"
)

// ProviderName identifies an AI backend
type ProviderName string

const (
	ProviderOllama    ProviderName = "ollama"
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGemini    ProviderName = "gemini"
)

// ProviderConfig selects and authenticates an AI backend.
// Immutable for the duration of one invocation.
type ProviderConfig struct {
	Name   ProviderName
	APIKey string
	Model  string
}
