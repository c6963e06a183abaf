package types

import "time"

// LogLevel is the severity of a user-facing log entry.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelError   LogLevel = "error"
	LogLevelSuccess LogLevel = "success"
)

// LogEntry is one line of a job's user-facing activity log.
type LogEntry struct {
	Level     LogLevel  `json:"level" msgpack:"level"`
	Message   string    `json:"message" msgpack:"message"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of a chat transcript.
type ChatMessage struct {
	Role      Role      `json:"role" msgpack:"role"`
	Content   string    `json:"content" msgpack:"content"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	// Generation is the job that produced this turn. Only the latest
	// assistant turn of the running generation is appended to.
	Generation uint64 `json:"generation" msgpack:"generation"`
}
