package dingtalk

import (
	"context"
	"encoding/json"

	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
)

type userIDList struct {
	UserIDs []schema.ID `json:"userid_list"`
}

// ListUserIDs returns the IDs of the users directly in deptID.
func (c *Client) ListUserIDs(ctx context.Context, deptID schema.ID) ([]schema.ID, error) {
	res, err := call[userIDList](ctx, c, "/topapi/user/listid", deptParam(deptID))
	if err != nil {
		return nil, err
	}
	return res.UserIDs, nil
}

type userListRequest struct {
	DeptID json.Number `json:"dept_id"`
	Cursor int64       `json:"cursor"`
	Size   int         `json:"size"`
}

type userPage struct {
	HasMore    bool                  `json:"has_more"`
	NextCursor int64                 `json:"next_cursor"`
	List       []schema.ProviderUser `json:"list"`
}

// ListUsers returns one page of users in deptID starting at cursor. A size of
// zero uses the configured page size.
func (c *Client) ListUsers(ctx context.Context, deptID schema.ID, cursor int64, size int) ([]schema.ProviderUser, int64, bool, error) {
	if size <= 0 {
		size = c.pageSize
	}

	page, err := call[userPage](ctx, c, "/topapi/v2/user/list", userListRequest{
		DeptID: json.Number(deptID),
		Cursor: cursor,
		Size:   size,
	})
	if err != nil {
		return nil, 0, false, err
	}

	tools.Log.WithFields(map[string]interface{}{
		"dept":     deptID,
		"cursor":   cursor,
		"users":    len(page.List),
		"has_more": page.HasMore,
	}).Debug("Listed department users")
	return page.List, page.NextCursor, page.HasMore, nil
}
