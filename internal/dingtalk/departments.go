package dingtalk

import (
	"context"
	"encoding/json"

	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
)

// deptRequest sends the department ID as a JSON number, as the API expects.
type deptRequest struct {
	DeptID json.Number `json:"dept_id"`
}

func deptParam(id schema.ID) deptRequest {
	return deptRequest{DeptID: json.Number(id)}
}

// ListSubDepartments returns the direct children of parentID.
func (c *Client) ListSubDepartments(ctx context.Context, parentID schema.ID) ([]schema.ProviderDepartment, error) {
	depts, err := call[[]schema.ProviderDepartment](ctx, c, "/topapi/v2/department/listsub", deptParam(parentID))
	if err != nil {
		return nil, err
	}

	tools.Log.WithFields(map[string]interface{}{
		"parent":   parentID,
		"children": len(depts),
	}).Debug("Listed sub-departments")
	return depts, nil
}

// GetDepartment returns the details of one department.
func (c *Client) GetDepartment(ctx context.Context, id schema.ID) (schema.ProviderDepartment, error) {
	return call[schema.ProviderDepartment](ctx, c, "/topapi/v2/department/get", deptParam(id))
}
