package mailer

// Result is the outcome of one send attempt, either *Success or *Failure.
type Result interface {
	// ID returns the Message-Id generated before the attempt.
	ID() string
	// Delivered reports whether the server accepted the message.
	Delivered() bool

	isResult()
}

// Success is returned when the server accepted the message for all recipients.
type Success struct {
	MessageID    string   `json:"messageId"`
	Accepted     []string `json:"accepted"`
	Rejected     []string `json:"rejected"`
	ResponseCode int      `json:"responseCode"`
	ResponseInfo string   `json:"responseInfo"`
}

func (s *Success) ID() string      { return s.MessageID }
func (s *Success) Delivered() bool { return true }
func (s *Success) isResult()       {}

// Failure is returned when connecting, authenticating or submitting failed.
// All recipients are reported as rejected.
type Failure struct {
	MessageID string   `json:"messageId"`
	Accepted  []string `json:"accepted"`
	Rejected  []string `json:"rejected"`
	Error     string   `json:"error"`
}

func (f *Failure) ID() string      { return f.MessageID }
func (f *Failure) Delivered() bool { return false }
func (f *Failure) isResult()       {}
