package infrastructure

import (
	"fmt"
	"strings"
)

// GraphQL documents sent to Linear, one per facade operation.

const issueFields = `
      id
      identifier
      title
      url
      priority
      state {
        id
        name
      }
      team {
        id
        name
        key
      }
      project {
        id
        name
      }`

const createIssueMutation = `mutation CreateIssue($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue {` + issueFields + `
    }
  }
}`

const createBatchIssuesMutation = `mutation CreateBatchIssues($input: IssueBatchCreateInput!) {
  issueBatchCreate(input: $input) {
    success
    issues {` + issueFields + `
    }
  }
}`

const updateIssueMutation = `mutation UpdateIssue($id: String!, $input: IssueUpdateInput!) {
  issueUpdate(id: $id, input: $input) {
    success
    issue {` + issueFields + `
    }
  }
}`

const updateIssuesMutation = `mutation UpdateIssues($ids: [UUID!]!, $input: IssueUpdateInput!) {
  issueBatchUpdate(ids: $ids, input: $input) {
    success
    issues {` + issueFields + `
    }
  }
}`

const deleteIssueMutation = `mutation DeleteIssue($id: String!) {
  issueDelete(id: $id) {
    success
  }
}`

// deleteIssuesMutation deletes n issues in one request using aliased
// issueDelete fields d0..d(n-1) bound to variables id0..id(n-1).
func deleteIssuesMutation(n int) string {
	var params, fields strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			params.WriteString(", ")
		}
		fmt.Fprintf(&params, "$id%d: String!", i)
		fmt.Fprintf(&fields, "  d%d: issueDelete(id: $id%d) {\n    success\n  }\n", i, i)
	}
	return fmt.Sprintf("mutation DeleteIssues(%s) {\n%s}", params.String(), fields.String())
}

const searchIssuesQuery = `query SearchIssues($filter: IssueFilter, $first: Int, $after: String, $orderBy: PaginationOrderBy) {
  issues(filter: $filter, first: $first, after: $after, orderBy: $orderBy) {
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {
      id
      identifier
      title
      description
      url
      priority
      state {
        id
        name
        type
        color
      }
      assignee {
        id
        name
        email
      }
      team {
        id
        name
        key
      }
      project {
        id
        name
      }
      labels {
        nodes {
          id
          name
          color
        }
      }
      createdAt
      updatedAt
    }
  }
}`

const getTeamsQuery = `query GetTeams {
  teams {
    nodes {
      id
      name
      key
      description
      states {
        nodes {
          id
          name
          type
          color
        }
      }
      labels {
        nodes {
          id
          name
          color
        }
      }
    }
  }
}`

const getViewerQuery = `query GetUser {
  viewer {
    id
    name
    email
    teams {
      nodes {
        id
        name
        key
      }
    }
  }
}`

const projectFields = `
      id
      name
      description
      url
      teams {
        nodes {
          id
          name
        }
      }`

const createProjectMutation = `mutation CreateProject($input: ProjectCreateInput!) {
  projectCreate(input: $input) {
    success
    project {` + projectFields + `
    }
  }
}`

const getProjectQuery = `query GetProject($id: String!) {
  project(id: $id) {` + projectFields + `
  }
}`

const searchProjectsQuery = `query SearchProjects($filter: ProjectFilter) {
  projects(filter: $filter) {
    nodes {` + projectFields + `
    }
  }
}`

const initiativeFields = `
      id
      name
      description
      content
      url
      slugId
      color
      icon
      sortOrder
      targetDate
      startedAt
      completedAt
      archivedAt
      createdAt
      updatedAt
      trashed
      creator {
        id
        name
      }
      owner {
        id
        name
      }
      organization {
        id
        name
      }
      projects {
        nodes {
          id
          name
        }
      }`

const createInitiativeMutation = `mutation CreateInitiative($input: InitiativeCreateInput!) {
  initiativeCreate(input: $input) {
    success
    initiative {` + initiativeFields + `
    }
  }
}`

const updateInitiativeMutation = `mutation UpdateInitiative($id: String!, $input: InitiativeUpdateInput!) {
  initiativeUpdate(id: $id, input: $input) {
    success
    initiative {` + initiativeFields + `
    }
  }
}`

const deleteInitiativeMutation = `mutation DeleteInitiative($id: String!) {
  initiativeDelete(id: $id) {
    success
  }
}`

const listInitiativesQuery = `query ListInitiatives($first: Int, $after: String, $includeArchived: Boolean, $orderBy: PaginationOrderBy, $filter: InitiativeFilter) {
  initiatives(first: $first, after: $after, includeArchived: $includeArchived, orderBy: $orderBy, filter: $filter) {
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {` + initiativeFields + `
    }
  }
}`

const getInitiativeQuery = `query GetInitiative($id: String!) {
  initiative(id: $id) {` + initiativeFields + `
      updateReminderFrequency
      updateReminderFrequencyInWeeks
      updateRemindersDay
      updateRemindersHour
  }
}`

const updateProjectInitiativeMutation = `mutation UpdateProjectInitiative($id: String!, $input: ProjectUpdateInput!) {
  projectUpdate(id: $id, input: $input) {
    success
    project {
      id
      name
      url
      initiative {
        id
        name
      }
    }
  }
}`
