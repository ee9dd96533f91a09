package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Subject/Text are used as-is when Template is empty; otherwise the worker
// renders Template with Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "login_link"
	Data     map[string]any `json:"data,omitempty"`
}
