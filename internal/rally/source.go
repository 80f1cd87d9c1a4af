package rally

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/ALT-F4-LLC/rallydump/internal/export"
	"github.com/ALT-F4-LLC/rallydump/internal/model"
)

var _ export.Source = (*Client)(nil)

// AttachmentFetch lists every attachment field the export writes, including
// the fields of the linked artifact, test case result, test case, test set
// and user.
var AttachmentFetch = []string{
	"Artifact",
	"Build",
	"Content",
	"ContentType",
	"CreationDate",
	"Date",
	"Description",
	"DisplayName",
	"EmailAddress",
	"FormattedID",
	"LastUpdateDate",
	"Name",
	"ObjectID",
	"Size",
	"TestCase",
	"TestCaseResult",
	"TestSet",
	"User",
}

// Decode copies a record's fields into out by field name.
func Decode(rec Record, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("rally: creating decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(rec)); err != nil {
		return fmt.Errorf("rally: decoding record %s: %w", rec.Ref(), err)
	}
	return nil
}

// Subscription returns the first subscription visible to the user along with
// all of its workspaces.
func (c *Client) Subscription(ctx context.Context) (*model.Subscription, error) {
	res, err := c.Find(ctx, Query{
		Type:  "subscription",
		Fetch: []string{"Name", "ObjectID", "Workspaces"},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("%w: no subscription visible to this user", ErrNotFound)
	}

	rec := res.Records[0]
	sub := &model.Subscription{}
	if err := Decode(rec, sub); err != nil {
		return nil, err
	}

	wsRef := ""
	if coll, ok := rec["Workspaces"].(map[string]any); ok {
		wsRef, _ = coll["_ref"].(string)
	}
	if wsRef == "" {
		return sub, nil
	}

	wsRes, err := c.Collection(ctx, wsRef, []string{"Name", "State", "ObjectID"})
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	for _, r := range wsRes.Records {
		var ws model.Workspace
		if err := Decode(r, &ws); err != nil {
			return nil, err
		}
		sub.Workspaces = append(sub.Workspaces, ws)
	}
	return sub, nil
}

// OpenProjectCount counts open projects anywhere in the workspace's project
// hierarchy.
func (c *Client) OpenProjectCount(ctx context.Context, ws model.Workspace) (int, error) {
	res, err := c.Find(ctx, Query{
		Type:             "project",
		Workspace:        ws.Ref,
		QueryString:      `(State = "Open")`,
		Fetch:            []string{"Name"},
		ProjectScopeUp:   true,
		ProjectScopeDown: true,
		Limit:            1,
	})
	if err != nil {
		return 0, err
	}
	return res.TotalResultCount, nil
}

// Attachments returns every attachment in the workspace in ObjectID order.
// Test cases that came back as bare references are resolved so their
// FormattedID is available.
func (c *Client) Attachments(ctx context.Context, ws model.Workspace) ([]model.Attachment, error) {
	res, err := c.Find(ctx, Query{
		Type:      "attachment",
		Workspace: ws.Ref,
		Fetch:     AttachmentFetch,
		Order:     "ObjectID",
	})
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]string)
	out := make([]model.Attachment, 0, len(res.Records))
	for _, rec := range res.Records {
		var att model.Attachment
		if err := Decode(rec, &att); err != nil {
			return nil, err
		}
		if err := c.resolveTestCase(ctx, &att, resolved); err != nil {
			return nil, err
		}
		out = append(out, att)
	}
	return out, nil
}

func (c *Client) resolveTestCase(ctx context.Context, att *model.Attachment, cache map[string]string) error {
	r := att.TestCaseResult
	if r == nil || r.TestCase == nil || r.TestCase.FormattedID != "" || r.TestCase.Ref == "" {
		return nil
	}
	if fid, ok := cache[r.TestCase.Ref]; ok {
		r.TestCase.FormattedID = fid
		return nil
	}
	rec, err := c.Read(ctx, r.TestCase.Ref, []string{"FormattedID"})
	if err != nil {
		return fmt.Errorf("reading test case %s: %w", r.TestCase.Ref, err)
	}
	fid, _ := rec["FormattedID"].(string)
	cache[r.TestCase.Ref] = fid
	r.TestCase.FormattedID = fid
	return nil
}

// Content returns the base64 payload of an AttachmentContent object.
func (c *Client) Content(ctx context.Context, ref string) (string, error) {
	rec, err := c.Read(ctx, ref, []string{"Content"})
	if err != nil {
		return "", err
	}
	s, _ := rec["Content"].(string)
	return s, nil
}
