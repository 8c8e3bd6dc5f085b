package crawler

import "net/http"

// Verdict is what a response status means for the fetch.
type Verdict int

// Verdicts.
const (
	VerdictOK Verdict = iota
	VerdictRateLimited
	VerdictRetryable
	VerdictPermanent
)

// Classifier maps an HTTP status code to a verdict. Swap it out when the
// site starts signalling throttling some other way.
type Classifier interface {
	Classify(statusCode int) Verdict
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(statusCode int) Verdict

// Classify calls f(statusCode).
func (f ClassifierFunc) Classify(statusCode int) Verdict {
	return f(statusCode)
}

// StatusClassifier is the default: 200 is OK, 429 is rate limited and
// anything else is a permanent miss for this attempt cycle.
type StatusClassifier struct{}

// Classify implements Classifier.
func (StatusClassifier) Classify(statusCode int) Verdict {
	switch statusCode {
	case http.StatusOK:
		return VerdictOK
	case http.StatusTooManyRequests:
		return VerdictRateLimited
	}

	return VerdictPermanent
}
