package directory

import "time"

// Employee is a roster entry. Evaluators and subjects are both employees;
// the survey keeps no richer profile than what reports need to label people.
type Employee struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}
