package dueldto

// ErrorBody is the JSON error envelope returned by every non-2xx response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ErrorBody) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "duel service error"
}
