package arm

import (
	"net/http"
	"slices"
)

// OutcomeKind is the semantic result of a response.
type OutcomeKind int

// Outcome kinds.
const (
	OutcomeFailure OutcomeKind = iota
	OutcomeSuccess
	OutcomeSuccessEmpty
	OutcomeNotFound
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSuccessEmpty:
		return "success-empty"
	case OutcomeNotFound:
		return "not-found"
	default:
		return "failure"
	}
}

// ResponseOutcome is a classified response. Body is fully materialized.
type ResponseOutcome struct {
	Kind       OutcomeKind
	StatusCode int
	Header     http.Header
	Body       []byte
}

// acceptedStatuses lists the success codes per verb.
var acceptedStatuses = map[Verb][]int{
	VerbGet:    {http.StatusOK},
	VerbPut:    {http.StatusOK, http.StatusCreated, http.StatusAccepted},
	VerbPatch:  {http.StatusOK, http.StatusAccepted},
	VerbDelete: {http.StatusOK, http.StatusAccepted, http.StatusNoContent},
	VerbPost:   {http.StatusOK, http.StatusCreated, http.StatusAccepted},
}

// AcceptedStatuses returns the status codes accepted for verb.
func AcceptedStatuses(verb Verb) []int {
	return slices.Clone(acceptedStatuses[verb])
}

// Classify maps a status code to an outcome for the given verb. A 404 on GET
// is NotFound with no body; an accepted status with an empty body is
// SuccessEmpty.
func Classify(verb Verb, statusCode int, body []byte) ResponseOutcome {
	outcome := ResponseOutcome{StatusCode: statusCode, Body: body}

	switch {
	case verb == VerbGet && statusCode == http.StatusNotFound:
		outcome.Kind = OutcomeNotFound
		outcome.Body = nil
	case slices.Contains(acceptedStatuses[verb], statusCode):
		if len(body) == 0 {
			outcome.Kind = OutcomeSuccessEmpty
			outcome.Body = nil
		} else {
			outcome.Kind = OutcomeSuccess
		}
	default:
		outcome.Kind = OutcomeFailure
	}

	return outcome
}
