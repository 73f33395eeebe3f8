package catalog

import "time"

type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Section      string `json:"section"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"displayOrder"`
}

// Question carries its category by name: the grouping key the response
// records and comment tags refer to. Options holds the ordered labels of a
// scale question and stays empty for free-text questions.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Category     string   `json:"category"`
	Section      string   `json:"section"`
	Kind         string   `json:"kind"`
	Options      []string `json:"options"`
	Required     bool     `json:"required"`
	DisplayOrder int      `json:"displayOrder"`
	Active       bool     `json:"active"`
}

type Period struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
