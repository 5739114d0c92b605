package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
)

func (c *Client) approval(ctx context.Context, token string, id models.ID, action string, body interface{}) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		route:  "/approvals/:id/" + action,
		path:   "/approvals/" + url.PathEscape(id.String()) + "/" + action,
		token:  token,
		body:   body,
	})
}

// Approve accepts a pending request with the allowed materials.
func (c *Client) Approve(ctx context.Context, token string, id models.ID, p models.ApprovalPayload) error {
	if p.AllowedMaterials == nil {
		p.AllowedMaterials = []string{}
	}
	return c.approval(ctx, token, id, "approve", p)
}

// Reject declines a pending request.
func (c *Client) Reject(ctx context.Context, token string, id models.ID) error {
	return c.approval(ctx, token, id, "reject", struct{}{})
}

// Reassign moves a request to a new date and window.
func (c *Client) Reassign(ctx context.Context, token string, id models.ID, p models.ReassignPayload) error {
	return c.approval(ctx, token, id, "reassign", p)
}
