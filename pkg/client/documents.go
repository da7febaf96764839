package client

import (
	"context"
	"strconv"
	"strings"

	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// DocumentsClient covers document pages.
type DocumentsClient struct {
	client *Client
}

// Page returns one page of a document. Pages start at 1.
func (c *DocumentsClient) Page(ctx context.Context, documentID string, page int) (*rtypes.DocumentPage, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, errors.New(errors.ErrCodeDocumentNotFound, "document id is required")
	}
	if page < 1 {
		return nil, errors.New(errors.ErrCodeDocumentPageInvalid, "page must be >= 1")
	}
	var out rtypes.DocumentPage
	path := "/api/v1/documents/" + escape(documentID) + "/pages/" + strconv.Itoa(page)
	if err := c.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	if out.DocumentID == "" {
		out.DocumentID = documentID
	}
	if out.Page == 0 {
		out.Page = page
	}
	return &out, nil
}
