package response

import "smtptester/pkg"

// TestResult is the body of every /api/test-* response.
type TestResult struct {
	Success bool                 `json:"success"`
	Result  string               `json:"result,omitempty"`
	Error   string               `json:"error,omitempty"`
	Details *pkg.ValidationError `json:"details,omitempty"`
}

func Succeeded(result string) TestResult {
	return TestResult{Success: true, Result: result}
}

func Failed(message string) TestResult {
	return TestResult{Success: false, Error: message}
}

func Invalid(details *pkg.ValidationError) TestResult {
	return TestResult{Success: false, Error: "Invalid input", Details: details}
}

type Health struct {
	Status string `json:"status"`
}
