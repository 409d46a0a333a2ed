// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - each event represents something significant
// that happened in the domain and is worth telling the outside world about.
const (
	// Student events
	EventStudentRegistered      EventType = "student.registered"
	EventStudentLoggedIn        EventType = "student.logged_in"
	EventStudentDeactivated     EventType = "student.deactivated"
	EventStudentPasswordChanged EventType = "student.password_changed"

	// Chat events
	EventChatSessionOpened EventType = "chat.session_opened"
	EventChatMessageSent   EventType = "chat.message_sent"
	EventChatSessionClosed EventType = "chat.session_closed"

	// Submission events
	EventSubmissionReceived EventType = "submission.received"
	EventSubmissionScored   EventType = "submission.scored"

	// Progress events
	EventProgressUpdated EventType = "progress.updated"

	// System events
	EventSessionsSwept    EventType = "system.sessions_swept"
	EventStaleChatsClosed EventType = "system.stale_chats_closed"
)

// Topic names on the message bus. These mirror the streaming contract
// consumed by downstream analytics and notification services.
const (
	TopicStudentEvents  = "student-events"
	TopicChatMessages   = "chat-messages"
	TopicSubmissions    = "exercise-submissions"
	TopicProgressUpdate = "progress-updates"
	TopicSystemEvents   = "system-events"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Topic returns the message bus topic this event belongs to.
	Topic() string

	// Key returns the partition key for the message bus.
	Key() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type         EventType `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	AggregateId  string    `json:"aggregate_id"`
	TopicName    string    `json:"topic"`
	PartitionKey string    `json:"key"`
	Version      int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// Topic implements Event interface.
func (e BaseEvent) Topic() string {
	return e.TopicName
}

// Key implements Event interface.
func (e BaseEvent) Key() string {
	return e.PartitionKey
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID, topic, key string) BaseEvent {
	return BaseEvent{
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		AggregateId:  aggregateID,
		TopicName:    topic,
		PartitionKey: key,
		Version:      1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Student Events
// ═══════════════════════════════════════════════════════════════════════════

// StudentRegisteredEvent is emitted when a new student registers.
type StudentRegisteredEvent struct {
	BaseEvent
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	GradeLevel  string `json:"grade_level,omitempty"`
}

// Payload implements Event interface.
func (e StudentRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":   e.AggregateId,
		"email":        e.Email,
		"display_name": e.DisplayName,
		"grade_level":  e.GradeLevel,
	}
}

// NewStudentRegisteredEvent creates a new StudentRegisteredEvent.
func NewStudentRegisteredEvent(studentID, email, displayName, gradeLevel string) StudentRegisteredEvent {
	return StudentRegisteredEvent{
		BaseEvent:   NewBaseEvent(EventStudentRegistered, studentID, TopicStudentEvents, studentID),
		Email:       email,
		DisplayName: displayName,
		GradeLevel:  gradeLevel,
	}
}

// StudentLoggedInEvent is emitted after a successful login.
type StudentLoggedInEvent struct {
	BaseEvent
	Email string `json:"email"`
}

// Payload implements Event interface.
func (e StudentLoggedInEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.AggregateId,
		"email":      e.Email,
	}
}

// NewStudentLoggedInEvent creates a new StudentLoggedInEvent.
func NewStudentLoggedInEvent(studentID, email string) StudentLoggedInEvent {
	return StudentLoggedInEvent{
		BaseEvent: NewBaseEvent(EventStudentLoggedIn, studentID, TopicStudentEvents, studentID),
		Email:     email,
	}
}

// StudentPasswordChangedEvent is emitted after a password change.
// The payload intentionally carries no credential material.
type StudentPasswordChangedEvent struct {
	BaseEvent
}

// Payload implements Event interface.
func (e StudentPasswordChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.AggregateId,
	}
}

// NewStudentPasswordChangedEvent creates a new StudentPasswordChangedEvent.
func NewStudentPasswordChangedEvent(studentID string) StudentPasswordChangedEvent {
	return StudentPasswordChangedEvent{
		BaseEvent: NewBaseEvent(EventStudentPasswordChanged, studentID, TopicStudentEvents, studentID),
	}
}

// StudentDeactivatedEvent is emitted when a student account is soft-deactivated.
type StudentDeactivatedEvent struct {
	BaseEvent
	Reason string `json:"reason,omitempty"`
}

// Payload implements Event interface.
func (e StudentDeactivatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.AggregateId,
		"reason":     e.Reason,
	}
}

// NewStudentDeactivatedEvent creates a new StudentDeactivatedEvent.
func NewStudentDeactivatedEvent(studentID, reason string) StudentDeactivatedEvent {
	return StudentDeactivatedEvent{
		BaseEvent: NewBaseEvent(EventStudentDeactivated, studentID, TopicStudentEvents, studentID),
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Chat Events
// ═══════════════════════════════════════════════════════════════════════════

// ChatSessionOpenedEvent is emitted when a new chat session is opened.
type ChatSessionOpenedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	ChatTopic string `json:"chat_topic,omitempty"`
	AgentType string `json:"agent_type"`
}

// Payload implements Event interface.
func (e ChatSessionOpenedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id": e.AggregateId,
		"student_id": e.StudentID,
		"topic":      e.ChatTopic,
		"agent_type": e.AgentType,
	}
}

// NewChatSessionOpenedEvent creates a new ChatSessionOpenedEvent.
func NewChatSessionOpenedEvent(sessionID, studentID, chatTopic, agentType string) ChatSessionOpenedEvent {
	return ChatSessionOpenedEvent{
		BaseEvent: NewBaseEvent(EventChatSessionOpened, sessionID, TopicChatMessages, sessionID),
		StudentID: studentID,
		ChatTopic: chatTopic,
		AgentType: agentType,
	}
}

// ChatMessageSentEvent is emitted for every message appended to a chat session.
type ChatMessageSentEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

// Payload implements Event interface.
func (e ChatMessageSentEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id": e.AggregateId,
		"student_id": e.StudentID,
		"role":       e.Role,
		"content":    e.Content,
	}
}

// NewChatMessageSentEvent creates a new ChatMessageSentEvent.
func NewChatMessageSentEvent(sessionID, studentID, role, content string) ChatMessageSentEvent {
	return ChatMessageSentEvent{
		BaseEvent: NewBaseEvent(EventChatMessageSent, sessionID, TopicChatMessages, sessionID),
		StudentID: studentID,
		Role:      role,
		Content:   content,
	}
}

// ChatSessionClosedEvent is emitted when a chat session transitions to closed.
type ChatSessionClosedEvent struct {
	BaseEvent
	StudentID    string `json:"student_id"`
	MessageCount int    `json:"message_count"`
}

// Payload implements Event interface.
func (e ChatSessionClosedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":    e.AggregateId,
		"student_id":    e.StudentID,
		"message_count": e.MessageCount,
	}
}

// NewChatSessionClosedEvent creates a new ChatSessionClosedEvent.
func NewChatSessionClosedEvent(sessionID, studentID string, messageCount int) ChatSessionClosedEvent {
	return ChatSessionClosedEvent{
		BaseEvent:    NewBaseEvent(EventChatSessionClosed, sessionID, TopicChatMessages, sessionID),
		StudentID:    studentID,
		MessageCount: messageCount,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Submission & Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// SubmissionReceivedEvent is emitted when a student submits exercise code.
type SubmissionReceivedEvent struct {
	BaseEvent
	StudentID  string `json:"student_id"`
	ExerciseID string `json:"exercise_id"`
	Language   string `json:"language"`
	Status     string `json:"status"`
}

// Payload implements Event interface.
func (e SubmissionReceivedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"submission_id": e.AggregateId,
		"student_id":    e.StudentID,
		"exercise_id":   e.ExerciseID,
		"language":      e.Language,
		"status":        e.Status,
	}
}

// NewSubmissionReceivedEvent creates a new SubmissionReceivedEvent.
func NewSubmissionReceivedEvent(submissionID, studentID, exerciseID, language, status string) SubmissionReceivedEvent {
	return SubmissionReceivedEvent{
		BaseEvent:  NewBaseEvent(EventSubmissionReceived, submissionID, TopicSubmissions, submissionID),
		StudentID:  studentID,
		ExerciseID: exerciseID,
		Language:   language,
		Status:     status,
	}
}

// SubmissionScoredEvent is emitted when a submission receives a score.
type SubmissionScoredEvent struct {
	BaseEvent
	StudentID  string `json:"student_id"`
	ExerciseID string `json:"exercise_id"`
	Score      int    `json:"score"`
	Status     string `json:"status"`
}

// Payload implements Event interface.
func (e SubmissionScoredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"submission_id": e.AggregateId,
		"student_id":    e.StudentID,
		"exercise_id":   e.ExerciseID,
		"score":         e.Score,
		"status":        e.Status,
	}
}

// NewSubmissionScoredEvent creates a new SubmissionScoredEvent.
func NewSubmissionScoredEvent(submissionID, studentID, exerciseID string, score int, status string) SubmissionScoredEvent {
	return SubmissionScoredEvent{
		BaseEvent:  NewBaseEvent(EventSubmissionScored, submissionID, TopicSubmissions, submissionID),
		StudentID:  studentID,
		ExerciseID: exerciseID,
		Score:      score,
		Status:     status,
	}
}

// ProgressUpdatedEvent is emitted when a student's progress on an exercise changes.
type ProgressUpdatedEvent struct {
	BaseEvent
	StudentID  string `json:"student_id"`
	ExerciseID string `json:"exercise_id"`
	Status     string `json:"status"`
	BestScore  int    `json:"best_score"`
}

// Payload implements Event interface.
func (e ProgressUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID,
		"exercise_id": e.ExerciseID,
		"status":      e.Status,
		"best_score":  e.BestScore,
	}
}

// NewProgressUpdatedEvent creates a new ProgressUpdatedEvent.
// The partition key combines student and exercise so updates for the
// same pair land on the same partition.
func NewProgressUpdatedEvent(studentID, exerciseID, status string, bestScore int) ProgressUpdatedEvent {
	key := studentID + ":" + exerciseID
	return ProgressUpdatedEvent{
		BaseEvent:  NewBaseEvent(EventProgressUpdated, studentID, TopicProgressUpdate, key),
		StudentID:  studentID,
		ExerciseID: exerciseID,
		Status:     status,
		BestScore:  bestScore,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// SystemEvent is a generic operational event from a backend component.
type SystemEvent struct {
	BaseEvent
	Component string                 `json:"component"`
	Severity  string                 `json:"severity"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Payload implements Event interface.
func (e SystemEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"component": e.Component,
		"severity":  e.Severity,
		"details":   e.Details,
	}
}

// NewSystemEvent creates a new SystemEvent.
func NewSystemEvent(eventType EventType, component, severity string, details map[string]interface{}) SystemEvent {
	return SystemEvent{
		BaseEvent: NewBaseEvent(eventType, component, TopicSystemEvents, component),
		Component: component,
		Severity:  severity,
		Details:   details,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID          string          `json:"id"`
	Type        EventType       `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Topic       string          `json:"topic"`
	Key         string          `json:"key"`
	Timestamp   time.Time       `json:"timestamp"`
	Version     int             `json:"version"`
	Payload     json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
