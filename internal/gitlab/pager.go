package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/glinvent/glinvent/internal/crawl"
)

// GitLab reports pagination in response headers rather than the body. The
// next-page token and collection total are read from here and nowhere else.
const (
	headerNextPage = "X-Next-Page"
	headerTotal    = "X-Total"
)

// DefaultPageSize is the platform-enforced per_page ceiling.
const DefaultPageSize = 100

// Pages returns a fetch function over one collection endpoint, suitable
// for the crawl package. Each invocation performs a single authenticated
// GET; the cursor and total are taken from response headers.
func Pages[T any](c *Client, path string, query url.Values, perPage int) crawl.FetchFunc[T] {
	if perPage <= 0 || perPage > DefaultPageSize {
		perPage = DefaultPageSize
	}
	return func(ctx context.Context, cur *crawl.Cursor) (crawl.Page[T], error) {
		q := url.Values{}
		for k, vs := range query {
			q[k] = vs
		}
		q.Set("per_page", strconv.Itoa(perPage))
		if cur != nil {
			q.Set("page", string(*cur))
		}

		status, header, body, err := c.get(ctx, path, q)
		if err != nil {
			return crawl.Page[T]{Status: status, Total: -1}, err
		}

		page := crawl.Page[T]{Status: status, Total: totalFromHeader(header)}
		if status != http.StatusOK {
			return page, &APIError{Status: status, Path: path}
		}

		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return page, &DecodeError{Path: path, Err: err}
		}
		page.Items = items

		if next := header.Get(headerNextPage); next != "" {
			token := crawl.Cursor(next)
			page.Next = &token
		}
		return page, nil
	}
}

func totalFromHeader(h http.Header) int {
	v := h.Get(headerTotal)
	if v == "" {
		return -1
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Tolerant policy: an unparseable total is the same as an
		// unreported one.
		return -1
	}
	return n
}

// Endpoint paths for the collections the walk visits.

// GroupsPath lists the groups visible to the token.
func GroupsPath() string { return "groups" }

// GroupProjectsPath lists the direct projects of one group.
func GroupProjectsPath(group string) string {
	return "groups/" + url.PathEscape(group) + "/projects"
}

// ProjectIssuesPath lists a project's issues.
func ProjectIssuesPath(projectID int) string {
	return fmt.Sprintf("projects/%d/issues", projectID)
}

// ProjectMergeRequestsPath lists a project's merge requests.
func ProjectMergeRequestsPath(projectID int) string {
	return fmt.Sprintf("projects/%d/merge_requests", projectID)
}

// ProjectCommitsPath lists a project's repository commits.
func ProjectCommitsPath(projectID int) string {
	return fmt.Sprintf("projects/%d/repository/commits", projectID)
}

// CommitCommentsPath lists the comments on one commit.
func CommitCommentsPath(projectID int, sha string) string {
	return fmt.Sprintf("projects/%d/repository/commits/%s/comments", projectID, url.PathEscape(sha))
}
