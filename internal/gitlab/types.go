package gitlab

// Group is the subset of GitLab group metadata the walk needs. FullPath is
// the unique identifier and display name.
type Group struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	FullPath string `json:"full_path"`
}

// Project is the subset of GitLab project metadata the walk needs. Path is
// the bare path segment; it is unique within a group but not across groups.
type Project struct {
	ID                int                `json:"id"`
	Name              string             `json:"name"`
	Path              string             `json:"path"`
	PathWithNamespace string             `json:"path_with_namespace"`
	Archived          bool               `json:"archived"`
	ForkedFromProject *ForkParent        `json:"forked_from_project,omitempty"`
	Statistics        *ProjectStatistics `json:"statistics,omitempty"`
}

// ForkParent identifies the project a fork was created from.
type ForkParent struct {
	PathWithNamespace string `json:"path_with_namespace"`
}

// ProjectStatistics carries repository sizing, present only when the
// project was fetched with statistics=true.
type ProjectStatistics struct {
	RepositorySize int64 `json:"repository_size"`
}

// Issue carries the per-issue fields needed for note aggregation.
type Issue struct {
	IID            int    `json:"iid"`
	Title          string `json:"title"`
	UserNotesCount int    `json:"user_notes_count"`
}

// MergeRequest carries the per-MR fields needed for note aggregation.
type MergeRequest struct {
	IID            int    `json:"iid"`
	Title          string `json:"title"`
	UserNotesCount int    `json:"user_notes_count"`
}

// Commit identifies one repository commit.
type Commit struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Comment is a note attached to a commit. Only its existence is counted.
type Comment struct {
	Note string `json:"note"`
}

// User is the authenticated token owner.
type User struct {
	Username string `json:"username"`
}
