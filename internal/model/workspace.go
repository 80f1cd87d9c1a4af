package model

// StateClosed is the State value Rally reports for a closed workspace or project.
const StateClosed = "Closed"

// Subscription is the root scope returned for the authenticated user.
type Subscription struct {
	Ref        string      `mapstructure:"_ref" json:"ref"`
	ObjectID   int64       `mapstructure:"ObjectID" json:"object_id"`
	Name       string      `mapstructure:"Name" json:"name"`
	Workspaces []Workspace `mapstructure:"-" json:"workspaces"`
}

// Workspace is the scoping unit for project and attachment queries.
type Workspace struct {
	Ref      string `mapstructure:"_ref" json:"ref"`
	ObjectID int64  `mapstructure:"ObjectID" json:"object_id"`
	Name     string `mapstructure:"Name" json:"name"`
	State    string `mapstructure:"State" json:"state"`
}

// Closed reports whether the workspace has been closed in Rally.
func (w Workspace) Closed() bool {
	return w.State == StateClosed
}
