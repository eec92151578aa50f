package relay

// TurnState is the per-session position in the voice turn pipeline.
type TurnState string

const (
	StateIdle               TurnState = "idle"
	StateAwaitingCompletion TurnState = "awaiting-completion"
	StateAwaitingSynthesis  TurnState = "awaiting-synthesis"
	StateClosed             TurnState = "closed"
)

// Client-visible failure descriptions. Details stay in the server log.
const (
	msgTranscriptionFailed = "Transcription failed"
	msgSessionNotFound     = "Session not found"
	msgSessionLookup       = "Failed to load session"
	msgAgentNotFound       = "Agent not found"
	msgCompletionFailed    = "Failed to generate response"
	msgNoVoice             = "Agent has no voice configured"
	msgSynthesisFailed     = "Failed to synthesize speech"
	msgPersistFailed       = "Failed to save session"
)
