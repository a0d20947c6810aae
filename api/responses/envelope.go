package responses

// Success wraps every 2xx JSON body.
type Success struct {
	Data any `json:"data"`
}

// Problem is the public error shape. Reason narrows Code to the business
// rule that failed and is omitted for infrastructure errors.
type Problem struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Failure wraps every non-2xx JSON body.
type Failure struct {
	Error Problem `json:"error"`
}
