package domain

// Entity projections mirrored from the Linear GraphQL schema. They are
// read-only: every write goes through the upstream API.

// Ref is a minimal id/name reference to another entity.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PageInfo is the Relay-style pagination block of a connection.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor,omitempty"`
}

// Connection is a Relay-style list of nodes with optional paging.
type Connection[T any] struct {
	Nodes    []T       `json:"nodes"`
	PageInfo *PageInfo `json:"pageInfo,omitempty"`
}

// WorkflowState is an issue state (Backlog, In Progress, Done, ...).
type WorkflowState struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Color string `json:"color,omitempty"`
}

// Label is an issue label.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Team is a Linear team with its workflow states and labels.
type Team struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Key         string                     `json:"key,omitempty"`
	Description string                     `json:"description,omitempty"`
	States      *Connection[WorkflowState] `json:"states,omitempty"`
	Labels      *Connection[Label]         `json:"labels,omitempty"`
}

// User is a Linear user.
type User struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Email string            `json:"email,omitempty"`
	Teams *Connection[Team] `json:"teams,omitempty"`
}

// Issue is a Linear issue.
type Issue struct {
	ID          string             `json:"id"`
	Identifier  string             `json:"identifier"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	URL         string             `json:"url"`
	Priority    *float64           `json:"priority,omitempty"`
	State       *WorkflowState     `json:"state,omitempty"`
	Assignee    *User              `json:"assignee,omitempty"`
	Team        *Team              `json:"team,omitempty"`
	Project     *Ref               `json:"project,omitempty"`
	Labels      *Connection[Label] `json:"labels,omitempty"`
	CreatedAt   string             `json:"createdAt,omitempty"`
	UpdatedAt   string             `json:"updatedAt,omitempty"`
}

// Project is a Linear project.
type Project struct {
	ID          string           `json:"id"`
	Name        string           `json:"name,omitempty"`
	Description string           `json:"description,omitempty"`
	URL         string           `json:"url,omitempty"`
	Teams       *Connection[Ref] `json:"teams,omitempty"`
	Initiative  *Ref             `json:"initiative,omitempty"`
}

// Initiative is a Linear initiative grouping several projects.
type Initiative struct {
	ID                             string           `json:"id"`
	Name                           string           `json:"name"`
	Description                    string           `json:"description,omitempty"`
	Content                        string           `json:"content,omitempty"`
	URL                            string           `json:"url"`
	SlugID                         string           `json:"slugId,omitempty"`
	Color                          string           `json:"color,omitempty"`
	Icon                           string           `json:"icon,omitempty"`
	SortOrder                      float64          `json:"sortOrder,omitempty"`
	TargetDate                     string           `json:"targetDate,omitempty"`
	StartedAt                      string           `json:"startedAt,omitempty"`
	CompletedAt                    string           `json:"completedAt,omitempty"`
	ArchivedAt                     string           `json:"archivedAt,omitempty"`
	CreatedAt                      string           `json:"createdAt,omitempty"`
	UpdatedAt                      string           `json:"updatedAt,omitempty"`
	Trashed                        bool             `json:"trashed,omitempty"`
	Creator                        *Ref             `json:"creator,omitempty"`
	Owner                          *Ref             `json:"owner,omitempty"`
	Organization                   *Ref             `json:"organization,omitempty"`
	Projects                       *Connection[Ref] `json:"projects,omitempty"`
	UpdateReminderFrequency        *float64         `json:"updateReminderFrequency,omitempty"`
	UpdateReminderFrequencyInWeeks *float64         `json:"updateReminderFrequencyInWeeks,omitempty"`
	UpdateRemindersDay             interface{}      `json:"updateRemindersDay,omitempty"`
	UpdateRemindersHour            *float64         `json:"updateRemindersHour,omitempty"`
}

// Status derives a display status from the initiative's dates.
func (i *Initiative) Status() string {
	switch {
	case i.CompletedAt != "":
		return "Completed"
	case i.StartedAt != "":
		return "In Progress"
	default:
		return "Planned"
	}
}

// Inputs. JSON tags double as tool argument names and GraphQL input fields.

// IssueCreateInput creates one issue.
type IssueCreateInput struct {
	Title          string   `json:"title" validate:"required"`
	Description    string   `json:"description" validate:"required"`
	TeamID         string   `json:"teamId" validate:"required"`
	AssigneeID     string   `json:"assigneeId,omitempty"`
	Priority       *int     `json:"priority,omitempty" validate:"omitempty,min=0,max=4"`
	Estimate       *float64 `json:"estimate,omitempty" validate:"omitempty,min=0"`
	ProjectID      string   `json:"projectId,omitempty"`
	StateID        string   `json:"stateId,omitempty"`
	LabelIDs       []string `json:"labelIds,omitempty"`
	CreateAsUser   string   `json:"createAsUser,omitempty"`
	DisplayIconURL string   `json:"displayIconUrl,omitempty" validate:"omitempty,url"`
}

// IssueUpdateInput is a partial update shared by single and bulk updates.
type IssueUpdateInput struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	StateID     string   `json:"stateId,omitempty"`
	AssigneeID  string   `json:"assigneeId,omitempty"`
	ProjectID   string   `json:"projectId,omitempty"`
	Priority    *int     `json:"priority,omitempty" validate:"omitempty,min=0,max=4"`
	Estimate    *float64 `json:"estimate,omitempty" validate:"omitempty,min=0"`
	LabelIDs    []string `json:"labelIds,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u IssueUpdateInput) Empty() bool {
	return u.Title == "" && u.Description == "" && u.StateID == "" && u.AssigneeID == "" &&
		u.ProjectID == "" && u.Priority == nil && u.Estimate == nil && len(u.LabelIDs) == 0
}

// IssueSearch selects one page of issues.
type IssueSearch struct {
	Filter  map[string]interface{}
	First   int
	After   string
	OrderBy string
}

// ProjectCreateInput creates a project.
type ProjectCreateInput struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description,omitempty"`
	TeamIDs     []string `json:"teamIds" validate:"required,min=1,dive,required"`
}

// InitiativeCreateInput creates an initiative.
type InitiativeCreateInput struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description,omitempty"`
	Color       string   `json:"color,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	TargetDate  string   `json:"targetDate,omitempty"`
	StartedAt   string   `json:"startedAt,omitempty"`
	OwnerID     string   `json:"ownerId,omitempty"`
	SortOrder   *float64 `json:"sortOrder,omitempty"`
}

// InitiativeUpdateInput is a partial initiative update.
type InitiativeUpdateInput struct {
	Name                           string   `json:"name,omitempty"`
	Description                    string   `json:"description,omitempty"`
	Color                          string   `json:"color,omitempty"`
	Icon                           string   `json:"icon,omitempty"`
	TargetDate                     string   `json:"targetDate,omitempty"`
	StartedAt                      string   `json:"startedAt,omitempty"`
	CompletedAt                    string   `json:"completedAt,omitempty"`
	OwnerID                        string   `json:"ownerId,omitempty"`
	SortOrder                      *float64 `json:"sortOrder,omitempty"`
	UpdateReminderFrequency        *float64 `json:"updateReminderFrequency,omitempty" validate:"omitempty,min=0"`
	UpdateReminderFrequencyInWeeks *float64 `json:"updateReminderFrequencyInWeeks,omitempty" validate:"omitempty,min=0"`
	UpdateRemindersDay             *int     `json:"updateRemindersDay,omitempty" validate:"omitempty,min=0,max=6"`
	UpdateRemindersHour            *int     `json:"updateRemindersHour,omitempty" validate:"omitempty,min=0,max=23"`
}

// InitiativeList selects one page of initiatives.
type InitiativeList struct {
	First           int
	After           string
	IncludeArchived bool
	OrderBy         string
	Filter          map[string]interface{}
}

// Payloads. Success is the flag reported by Linear; the entity pointer is
// nil when Linear returned no payload.

// IssuePayload is the result of a single-issue mutation.
type IssuePayload struct {
	Success bool   `json:"success"`
	Issue   *Issue `json:"issue,omitempty"`
}

// IssueBatchPayload is the result of a multi-issue mutation. Success is
// the aggregate flag; Linear does not report per-item results.
type IssueBatchPayload struct {
	Success bool    `json:"success"`
	Issues  []Issue `json:"issues,omitempty"`
}

// DeletePayload is the result of a delete mutation.
type DeletePayload struct {
	Success bool `json:"success"`
}

// ProjectPayload is the result of a project mutation.
type ProjectPayload struct {
	Success bool     `json:"success"`
	Project *Project `json:"project,omitempty"`
}

// InitiativePayload is the result of an initiative mutation.
type InitiativePayload struct {
	Success    bool        `json:"success"`
	Initiative *Initiative `json:"initiative,omitempty"`
}

// ProjectWithIssues is the result of the project-then-issues composite.
type ProjectWithIssues struct {
	Project *Project `json:"project"`
	Issues  []Issue  `json:"issues"`
}
