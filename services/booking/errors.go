package booking

import "fmt"

// SubmissionError is a terminal booking-submission failure. Submission is
// never retried automatically: a duplicate booking is worse than a failed
// one, so the caller surfaces the error and lets the customer decide.
type SubmissionError struct {
	Status  int
	Message string
	Detail  string
}

func (e *SubmissionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("booking submission failed: %s: %s", e.Message, e.Detail)
	}
	return fmt.Sprintf("booking submission failed: %s", e.Message)
}

func newSubmissionError(status int, message, detail string) *SubmissionError {
	return &SubmissionError{Status: status, Message: message, Detail: detail}
}
