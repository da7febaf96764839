package client

import (
	"context"
	"strings"

	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// GroupsClient covers the group-scoped endpoints.
type GroupsClient struct {
	client *Client
}

func groupPath(groupID, suffix string) (string, error) {
	if strings.TrimSpace(groupID) == "" {
		return "", errors.New(errors.ErrCodeGroupIDRequired, "group id is required")
	}
	return "/api/v1/groups/groups/" + escape(groupID) + suffix, nil
}

// Rules returns the rule results of a group.
func (c *GroupsClient) Rules(ctx context.Context, groupID string) (*rtypes.GroupRulesResponse, error) {
	path, err := groupPath(groupID, "/rules")
	if err != nil {
		return nil, err
	}
	var out rtypes.GroupRulesResponse
	if err := c.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Evidence returns the documents and evidence items of a group.
func (c *GroupsClient) Evidence(ctx context.Context, groupID string) (*rtypes.GroupEvidenceResponse, error) {
	path, err := groupPath(groupID, "/evidence")
	if err != nil {
		return nil, err
	}
	var out rtypes.GroupEvidenceResponse
	if err := c.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
