package notify

// EventType names the mutation that triggered a notification.
type EventType string

const (
	EventIncidentCreated      EventType = "incident_created"
	EventUserRegistered       EventType = "user_registered"
	EventPatrolCompleted      EventType = "patrol_completed"
	EventAppointmentScheduled EventType = "appointment_scheduled"
)

// Payload carries the event fields rendered into the message.
type Payload map[string]any

// Email is the rendered message handed to a transport. It is also the
// envelope published on the queue transport.
type Email struct {
	Event   EventType `json:"event"`
	To      []string  `json:"to"`
	Subject string    `json:"subject"`
	HTML    string    `json:"html"`
}

// DeliveryResult reports the outcome of a single notification.
type DeliveryResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}
