package surrealdb

// Statement statuses of QueryResult.
const (
	StatusOK    = "OK"
	StatusError = "ERR"
)

// PatchData is one JSON Patch operation.
type PatchData struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// QueryResult is the outcome of one statement of a Query batch.
type QueryResult[T any] struct {
	Status string
	Result T
	Error  error
}

// Auth holds credentials for SignIn and SignUp.
type Auth struct {
	Namespace string `json:"NS,omitempty"`
	Database  string `json:"DB,omitempty"`
	Access    string `json:"AC,omitempty"`
	Username  string `json:"user,omitempty"`
	Password  string `json:"pass,omitempty"`
}
