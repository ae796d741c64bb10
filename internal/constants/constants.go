package constants

// Session
const (
	SessionCookieName   = "board_session"
	ContextKeySessionID = "session_id"
	HeaderSessionID     = "X-Session-ID"
	QuerySessionID      = "sessionId"
	SessionIDPrefix     = "session_"
)

// Session stats paging, shared by GET /api/session/stats and boardctl sessions
const (
	StatsFirstPage       = 1
	DefaultStatsPageSize = 20
	MaxStatsPageSize     = 100
)

// Task defaults
const (
	DefaultTaskTime        = "05:00"
	DefaultTaskTitle       = "New Task"
	DefaultTaskDescription = "Click to add description"
	WelcomeTaskTitle       = "Welcome to Notes Playground"
	WelcomeTaskDescription = "Click to edit description, drag to move, attach files! This is your private session."
)

// Notifications
const (
	DefaultCompletionMessage = "Timer completed for: {title}"
	TitlePlaceholder         = "{title}"
	TestNotificationMessage  = "Telegram notifications are now enabled!"
	WebhookWelcomeMessage    = "Welcome to Notes Playground! Your notifications are set up correctly."
	WebhookSecretHeader      = "X-Telegram-Bot-Api-Secret-Token"
)

// AI
const (
	MaxAIGeneratedTasks = 20
)
