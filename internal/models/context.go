// Package models defines the domain types for contextbridge.
package models

import "time"

// ProjectStatus is the workflow state of a project.
type ProjectStatus string

// Project statuses accepted by the projects collection.
const (
	StatusNotStarted ProjectStatus = "Not started"
	StatusInProgress ProjectStatus = "In progress"
	StatusDone       ProjectStatus = "Done"
)

// ProjectStatuses lists every valid status in display order.
var ProjectStatuses = []ProjectStatus{StatusNotStarted, StatusInProgress, StatusDone}

// ChatType classifies a context entry.
type ChatType string

// Chat types assigned by the classifier.
const (
	ChatTesting         ChatType = "Testing"
	ChatPlanning        ChatType = "Planning"
	ChatSetup           ChatType = "Setup"
	ChatDocumentation   ChatType = "Documentation"
	ChatTroubleshooting ChatType = "Troubleshooting"
	ChatImplementation  ChatType = "Implementation"
)

// ContextStatusActive is the status every newly saved entry starts with.
const ContextStatusActive = "Active"

// Project is a record in the projects collection.
type Project struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    ProjectStatus `json:"status"`
	Goal      string        `json:"goal,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// ProjectInput holds the fields needed to create a project.
type ProjectInput struct {
	Name   string
	Goal   string
	Status ProjectStatus
}

// ContextEntry is one saved conversation (a chat record).
type ContextEntry struct {
	ID           string    `json:"id"`
	ChatNumber   int       `json:"chat_number"`
	Title        string    `json:"title"`
	SessionID    string    `json:"session_id"`
	Summary      string    `json:"summary"`
	KeyDecisions string    `json:"key_decisions"`
	NextActions  string    `json:"next_actions"`
	Handoff      string    `json:"handoff"`
	ChatType     ChatType  `json:"chat_type"`
	Status       string    `json:"status"`
	Tags         []string  `json:"tags"`
	ProjectID    string    `json:"project_id,omitempty"`
	MostRecent   bool      `json:"most_recent"`
	Date         time.Time `json:"date"`
}
