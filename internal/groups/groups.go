package groups

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/cloudidentity/v1"
)

const (
	// DiscussionForumLabel is the only group label the API accepts for
	// Google Groups.
	DiscussionForumLabel = "cloudidentity.googleapis.com/groups.discussion_forum"

	// DefaultPageSize is the number of groups returned by ListGroups when the
	// caller does not choose.
	DefaultPageSize = 10

	initialOwnerConfig = "WITH_INITIAL_OWNER"
	viewBasic          = "BASIC"
)

// ErrNameOrKey is returned by GetGroup when neither identifier is given.
var ErrNameOrKey = errors.New("either --name or --key is required")

// NewGroup describes a group to create.
type NewGroup struct {
	CustomerID  string
	Key         string
	DisplayName string
	Description string
}

// CustomerParent returns the parent resource for a customer ID.
func CustomerParent(customerID string) string {
	return "customers/" + customerID
}

// CreateGroup creates a discussion-forum group with the caller as initial
// owner, then fetches it by the name the create operation returned.
func (s *Service) CreateGroup(ctx context.Context, g NewGroup) (*cloudidentity.Group, error) {
	body := &cloudidentity.Group{
		Parent:      CustomerParent(g.CustomerID),
		GroupKey:    &cloudidentity.EntityKey{Id: g.Key},
		DisplayName: g.DisplayName,
		Description: g.Description,
		Labels:      map[string]string{DiscussionForumLabel: ""},
	}

	s.logger.Debug("creating group", "key", g.Key, "parent", body.Parent)
	op, err := s.api.Groups.Create(body).
		InitialGroupConfig(initialOwnerConfig).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("create group %s: %w", g.Key, err)
	}

	name, err := operationResourceName(op)
	if err != nil {
		return nil, err
	}
	return s.getGroupByName(ctx, name)
}

// GetGroup fetches a group by resource name, or by key when name is empty.
// A key costs one extra lookup call to resolve the name.
func (s *Service) GetGroup(ctx context.Context, name, key string) (*cloudidentity.Group, error) {
	if name == "" && key == "" {
		return nil, ErrNameOrKey
	}
	if name == "" {
		resolved, err := s.LookupGroupName(ctx, key)
		if err != nil {
			return nil, err
		}
		name = resolved
	}
	return s.getGroupByName(ctx, name)
}

// LookupGroupName resolves a group key (email) to its resource name.
func (s *Service) LookupGroupName(ctx context.Context, key string) (string, error) {
	s.logger.Debug("looking up group", "key", key)
	resp, err := s.api.Groups.Lookup().
		GroupKeyId(key).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("lookup group %s: %w", key, err)
	}
	return resp.Name, nil
}

func (s *Service) getGroupByName(ctx context.Context, name string) (*cloudidentity.Group, error) {
	g, err := s.api.Groups.Get(name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", name, err)
	}
	return g, nil
}

// SearchQuery returns the search expression matching every discussion-forum
// group of a customer.
func SearchQuery(customerID string) string {
	return fmt.Sprintf("parent == '%s' && '%s' in labels", CustomerParent(customerID), DiscussionForumLabel)
}

// ListGroups returns one page of the customer's groups in the BASIC view.
func (s *Service) ListGroups(ctx context.Context, customerID string, pageSize int64) ([]*cloudidentity.Group, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	resp, err := s.api.Groups.Search().
		Query(SearchQuery(customerID)).
		PageSize(pageSize).
		View(viewBasic).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search groups: %w", err)
	}
	return resp.Groups, nil
}
