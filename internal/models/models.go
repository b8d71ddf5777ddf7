package models

import "time"

// EmailTemplate is a reusable email body with merge tokens in its
// subject/body. Merge fields are stored as a JSON array of tokens so the
// editor can show which placeholders a template relies on.
type EmailTemplate struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Subject     string    `gorm:"not null" json:"subject"`
	BodyHTML    string    `gorm:"type:text" json:"body_html"`
	BodyText    string    `gorm:"type:text" json:"body_text"`
	MergeFields string    `gorm:"type:text" json:"merge_fields"` // JSON: [{token,label,category}]
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EmailSequence is an ordered series of template sends scoped to an
// optional entity table. A nil EntityTable means the sequence accepts
// contacts from any table.
type EmailSequence struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	EntityTable *string   `gorm:"index" json:"entity_table"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Steps []SequenceStep `gorm:"foreignKey:SequenceID" json:"steps,omitempty"`
}

// SequenceStep is one send in a sequence. StepOrder is 1-based and unique
// per sequence; gaps are tolerated and steps are consumed in ascending
// order.
type SequenceStep struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SequenceID uint      `gorm:"index;not null" json:"sequence_id"`
	StepOrder  int       `gorm:"not null" json:"step_order"`
	TemplateID uint      `gorm:"index;not null" json:"template_id"`
	DelayDays  int       `gorm:"default:0" json:"delay_days"`
	DelayHours int       `gorm:"default:0" json:"delay_hours"` // 0-23
	IsActive   bool      `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`

	Template EmailTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
}

// Enrollment statuses. Completed, unsubscribed and failed are terminal.
const (
	EnrollmentActive       = "active"
	EnrollmentCompleted    = "completed"
	EnrollmentPaused       = "paused"
	EnrollmentUnsubscribed = "unsubscribed"
	EnrollmentFailed       = "failed"
)

// SequenceEnrollment tracks one contact's progress through a sequence.
// CurrentStep is a valid 1-based position into the sequence's ordered steps
// while active, and len(steps)+1 exactly when completed.
type SequenceEnrollment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	SequenceID   uint       `gorm:"index;not null" json:"sequence_id"`
	ContactType  string     `json:"contact_type"`
	ContactID    uint       `gorm:"index" json:"contact_id"`
	ContactEmail string     `gorm:"index;not null" json:"contact_email"`
	CurrentStep  int        `gorm:"default:1" json:"current_step"`
	Status       string     `gorm:"index;default:'active'" json:"status"`
	EnrolledAt   time.Time  `json:"enrolled_at"`
	NextSendAt   *time.Time `gorm:"index" json:"next_send_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// EmailTrigger sends one templated email when its condition tree matches an
// event on the scoped entity table. Conditions hold a JSON TriggerCondition
// tree; the evaluator lives in the services package.
type EmailTrigger struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TriggerType  string    `gorm:"not null" json:"trigger_type"` // record_created, record_updated, email_received
	EntityTable  string    `gorm:"index" json:"entity_table"`
	Conditions   string    `gorm:"type:text" json:"conditions"` // JSON: TriggerCondition tree
	TemplateID   uint      `gorm:"index" json:"template_id"`
	DelayMinutes int       `gorm:"default:0" json:"delay_minutes"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Send log statuses.
const (
	SendPending = "pending"
	SendSent    = "sent"
	SendFailed  = "failed"
	SendBounced = "bounced"
)

// Automation types recorded in the send log.
const (
	AutomationSequence = "sequence"
	AutomationTrigger  = "trigger"
)

// AutomationSendLog is an append-only record per send attempt, written for
// both sequence steps and trigger fires. Failed rows double as retry
// bookkeeping for the external delivery worker.
type AutomationSendLog struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	AutomationType string     `gorm:"index;not null" json:"automation_type"` // sequence, trigger
	AutomationID   uint       `gorm:"index" json:"automation_id"`
	EnrollmentID   *uint      `gorm:"index" json:"enrollment_id"`
	ContactEmail   string     `gorm:"index" json:"contact_email"`
	TemplateID     *uint      `json:"template_id"`
	Subject        string     `json:"subject"`
	Status         string     `gorm:"index;default:'pending'" json:"status"`
	SentAt         *time.Time `json:"sent_at"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message"`
	CreatedAt      time.Time  `json:"created_at"`
}
