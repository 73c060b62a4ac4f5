package lookup

import "time"

// Option is one selectable value of an enumeration, such as an assignee.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Options holds the enumerations offered by the tasking views.
type Options struct {
	Assignees  []Option  `json:"assignees"`
	Categories []Option  `json:"categories"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Kind selects one enumeration.
type Kind string

const (
	KindAssignees  Kind = "assignees"
	KindCategories Kind = "categories"
)
