// Package firestore adapts the per-user remote collection to Cloud
// Firestore via the REST API. Documents live under
// users/{uid}/expenses; the user document itself carries profile
// settings such as the theme.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"spendtrack/internal/remote"

	gfirestore "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
)

const (
	expensesCollection = "expenses"
	usersCollection    = "users"

	defaultPollInterval = 5 * time.Second
)

type Client struct {
	svc          *gfirestore.Service
	basePath     string
	pollInterval time.Duration
}

// Ensure interface conformance
var (
	_ remote.Collection   = (*Client)(nil)
	_ remote.ProfileStore = (*Client)(nil)
)

// NewFromEnv creates a Firestore client using environment variables.
// Required: FIRESTORE_PROJECT_ID
// Optional: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS for auth.
// Optional: REMOTE_POLL_INTERVAL (Go duration, default 5s) for Watch.
func NewFromEnv(ctx context.Context) (*Client, error) {
	projectID := strings.TrimSpace(os.Getenv("FIRESTORE_PROJECT_ID"))
	if projectID == "" {
		return nil, errors.New("missing FIRESTORE_PROJECT_ID")
	}

	pollInterval := defaultPollInterval
	if raw := strings.TrimSpace(os.Getenv("REMOTE_POLL_INTERVAL")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parse REMOTE_POLL_INTERVAL: %w", err)
		}
		pollInterval = d
	}

	svc, err := newFirestoreService(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore service: %w", err)
	}

	return &Client{
		svc:          svc,
		basePath:     fmt.Sprintf("projects/%s/databases/(default)/documents", projectID),
		pollInterval: pollInterval,
	}, nil
}

// newFirestoreService initializes a Firestore Service using Service
// Account credentials. Uses GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newFirestoreService(ctx context.Context) (*gfirestore.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gfirestore.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gfirestore.DatastoreScope))
	if err != nil {
		return nil, fmt.Errorf("create firestore service: %w", err)
	}

	return service, nil
}

func (c *Client) userPath(uid string) string {
	return fmt.Sprintf("%s/%s/%s", c.basePath, usersCollection, uid)
}

func (c *Client) documentPath(uid, id string) string {
	return fmt.Sprintf("%s/%s/%s", c.userPath(uid), expensesCollection, id)
}

// List returns uid's documents ordered by server creation time.
func (c *Client) List(ctx context.Context, uid string) ([]remote.Document, error) {
	var docs []remote.Document
	pageToken := ""
	for {
		call := c.svc.Projects.Databases.Documents.
			List(c.userPath(uid), expensesCollection).
			OrderBy("createTime").
			PageSize(300).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		for _, d := range resp.Documents {
			docs = append(docs, fromFirestoreDocument(d))
		}
		if resp.NextPageToken == "" {
			return docs, nil
		}
		pageToken = resp.NextPageToken
	}
}

// Add creates a document and returns its server-assigned ID.
func (c *Client) Add(ctx context.Context, uid string, doc remote.Document) (string, error) {
	created, err := c.svc.Projects.Databases.Documents.
		CreateDocument(c.userPath(uid), expensesCollection, toFirestoreDocument(doc)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	return documentID(created.Name), nil
}

// Delete removes a document by ID. Deleting an unknown ID is not an
// error.
func (c *Client) Delete(ctx context.Context, uid, id string) error {
	_, err := c.svc.Projects.Databases.Documents.
		Delete(c.documentPath(uid, id)).
		Context(ctx).
		Do()
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Watch polls the collection and delivers a full snapshot after every
// observed change until ctx is cancelled. The REST surface has no push
// channel, so change detection compares consecutive snapshots.
func (c *Client) Watch(ctx context.Context, uid string, fn func([]remote.Document)) error {
	interval := c.pollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastSignature := ""
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			docs, err := c.List(ctx, uid)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.WarnContext(ctx, "remote poll failed", "uid", uid, "error", err)
				continue
			}
			sig := snapshotSignature(docs)
			if sig == lastSignature {
				continue
			}
			lastSignature = sig
			fn(docs)
		}
	}
}

// SaveTheme stores the theme on the user document, creating it on
// first write.
func (c *Client) SaveTheme(ctx context.Context, uid, theme string) error {
	doc := &gfirestore.Document{
		Fields: map[string]gfirestore.Value{
			"theme": {StringValue: theme, ForceSendFields: []string{"StringValue"}},
		},
	}
	_, err := c.svc.Projects.Databases.Documents.
		Patch(c.userPath(uid), doc).
		UpdateMaskFieldPaths("theme").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// LoadTheme returns "" when the user document or theme field is
// missing.
func (c *Client) LoadTheme(ctx context.Context, uid string) (string, error) {
	doc, err := c.svc.Projects.Databases.Documents.
		Get(c.userPath(uid)).
		Context(ctx).
		Do()
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("load theme: %w", err)
	}
	if v, ok := doc.Fields["theme"]; ok {
		return v.StringValue, nil
	}
	return "", nil
}

func toFirestoreDocument(doc remote.Document) *gfirestore.Document {
	return &gfirestore.Document{
		Fields: map[string]gfirestore.Value{
			"type":        {StringValue: doc.Type, ForceSendFields: []string{"StringValue"}},
			"category":    {StringValue: doc.Category, ForceSendFields: []string{"StringValue"}},
			"amount":      {DoubleValue: doc.Amount, ForceSendFields: []string{"DoubleValue"}},
			"description": {StringValue: doc.Description, ForceSendFields: []string{"StringValue"}},
			"date":        {StringValue: doc.Date, ForceSendFields: []string{"StringValue"}},
		},
	}
}

func fromFirestoreDocument(d *gfirestore.Document) remote.Document {
	doc := remote.Document{ID: documentID(d.Name)}
	if d.CreateTime != "" {
		if ts, err := time.Parse(time.RFC3339Nano, d.CreateTime); err == nil {
			doc.CreatedAt = ts
		}
	}
	for name, v := range d.Fields {
		switch name {
		case "type":
			doc.Type = v.StringValue
		case "category":
			doc.Category = v.StringValue
		case "amount":
			// Amounts written by other clients may land as integers.
			if v.IntegerValue != 0 {
				doc.Amount = float64(v.IntegerValue)
			} else {
				doc.Amount = v.DoubleValue
			}
		case "description":
			doc.Description = v.StringValue
		case "date":
			doc.Date = v.StringValue
		}
	}
	return doc
}

// documentID extracts the final path segment of a full resource name.
func documentID(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func snapshotSignature(docs []remote.Document) string {
	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "%s|%s|%s|%g|%s|%s\n", d.ID, d.Type, d.Category, d.Amount, d.Description, d.Date)
	}
	return b.String()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 404
}
