package entity

// Timeline action constants
const (
	ActionCreate           = "CREATE"
	ActionSubmit           = "SUBMIT"
	ActionApprove          = "APPROVE"
	ActionDelegatedApprove = "DELEGATED_APPROVE"
	ActionReject           = "REJECT"
	ActionRequestChanges   = "REQUEST_CHANGES"
	ActionResubmit         = "RESUBMIT"
	ActionExpire           = "EXPIRE"
	ActionCancel           = "CANCEL"
	ActionComplete         = "COMPLETE"
	ActionAttach           = "ATTACH"
	ActionRemind           = "REMIND"
)

// Timeline severity constants
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Decision constants for the decide operation
const (
	DecisionApprove        = "APPROVE"
	DecisionReject         = "REJECT"
	DecisionRequestChanges = "REQUEST_CHANGES"
)

// Reminder status constants
const (
	ReminderStatusQueued    = "QUEUED"
	ReminderStatusSent      = "SENT"
	ReminderStatusDelivered = "DELIVERED"
	ReminderStatusFailed    = "FAILED"
)

// Reminder channel constants
const (
	ChannelInApp = "in_app"
	ChannelLark  = "lark"
	ChannelSlack = "slack"
	ChannelSMS   = "sms"
)

// System is the actor recorded for background transitions such as SLA expiry
const SystemActor = "system"
