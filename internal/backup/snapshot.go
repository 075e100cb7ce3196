// Package backup copies the persisted collections off the machine: JSON
// snapshots to Cloud Storage and transaction rows to BigQuery.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/financas-voz/internal/domain"
	"github.com/dvloznov/financas-voz/internal/state"
)

// ErrNotConfigured is returned for a backup target without settings.
var ErrNotConfigured = errors.New("backup: target not configured")

// Snapshot is the uploaded document.
type Snapshot struct {
	TakenAt       time.Time            `json:"takenAt"`
	Revision      uint64               `json:"revision"`
	Transactions  []domain.Transaction `json:"transactions"`
	Categories    []domain.Category    `json:"categories"`
	Appointments  []domain.Appointment `json:"appointments"`
	SetupComplete bool                 `json:"setupComplete"`
}

// NewSnapshot captures the persisted parts of st.
func NewSnapshot(st state.State, takenAt time.Time) Snapshot {
	return Snapshot{
		TakenAt:       takenAt.UTC(),
		Revision:      st.Revision,
		Transactions:  st.Transactions,
		Categories:    st.Categories,
		Appointments:  st.Appointments,
		SetupComplete: st.SetupComplete,
	}
}

// ObjectName returns snapshots/YYYY/MM/DD/<id>.json for the snapshot time.
func ObjectName(takenAt time.Time, id string) string {
	return path.Join(SnapshotPrefix, takenAt.UTC().Format("2006/01/02"), id+".json")
}

// SnapshotPrefix is the object prefix every snapshot is stored under.
const SnapshotPrefix = "snapshots/"

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Updated time.Time `json:"updated"`
}

// ObjectStore reads and writes whole objects.
type ObjectStore interface {
	WriteObject(ctx context.Context, bucket, object, contentType string, data []byte) error
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}

// GCSStore is an ObjectStore backed by Cloud Storage.
// It assumes Application Default Credentials are configured.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a storage client.
func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStore: create storage client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// WriteObject uploads data under the given object name.
func (g *GCSStore) WriteObject(ctx context.Context, bucket, object, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("WriteObject: writing %s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("WriteObject: finalize upload: %w", err)
	}
	return nil
}

// ReadObject downloads an object.
func (g *GCSStore) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	r, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadObject: reading object %s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ReadObject: reading bytes: %w", err)
	}
	return data, nil
}

// ListObjects lists the objects whose names start with prefix.
func (g *GCSStore) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	it := g.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var out []ObjectInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListObjects: iterating %s/%s: %w", bucket, prefix, err)
		}
		out = append(out, ObjectInfo{Name: attrs.Name, Size: attrs.Size, Updated: attrs.Updated})
	}
	return out, nil
}

// Close releases the storage client.
func (g *GCSStore) Close() error {
	return g.client.Close()
}

// Snapshotter uploads and fetches snapshots in one bucket.
type Snapshotter struct {
	store  ObjectStore
	bucket string

	NewID func() string
}

// NewSnapshotter creates a Snapshotter writing to bucket.
func NewSnapshotter(store ObjectStore, bucket string) *Snapshotter {
	return &Snapshotter{
		store:  store,
		bucket: bucket,
		NewID:  func() string { return uuid.New().String() },
	}
}

// Upload writes snap and returns its gs:// URI.
func (s *Snapshotter) Upload(ctx context.Context, snap Snapshot) (string, error) {
	if s == nil || s.bucket == "" {
		return "", ErrNotConfigured
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("Upload: encoding snapshot: %w", err)
	}

	object := ObjectName(snap.TakenAt, s.NewID())
	if err := s.store.WriteObject(ctx, s.bucket, object, "application/json", data); err != nil {
		return "", fmt.Errorf("Upload: %w", err)
	}
	return "gs://" + s.bucket + "/" + object, nil
}

// Fetch downloads the snapshot at a gs:// URI. Any bucket may be named.
func (s *Snapshotter) Fetch(ctx context.Context, uri string) (Snapshot, error) {
	if s == nil {
		return Snapshot{}, ErrNotConfigured
	}
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return Snapshot{}, fmt.Errorf("Fetch: %w", err)
	}
	data, err := s.store.ReadObject(ctx, bucket, object)
	if err != nil {
		return Snapshot{}, fmt.Errorf("Fetch: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("Fetch: decoding snapshot: %w", err)
	}
	return snap, nil
}

// SnapshotInfo is one stored snapshot.
type SnapshotInfo struct {
	URI     string    `json:"uri"`
	Size    int64     `json:"size"`
	Updated time.Time `json:"updated"`
}

// List returns up to limit snapshots in the bucket, newest first.
// A limit of zero or less returns all of them.
func (s *Snapshotter) List(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	if s == nil || s.bucket == "" {
		return nil, ErrNotConfigured
	}
	objects, err := s.store.ListObjects(ctx, s.bucket, SnapshotPrefix)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].Updated.After(objects[j].Updated)
	})
	if limit > 0 && len(objects) > limit {
		objects = objects[:limit]
	}

	out := make([]SnapshotInfo, 0, len(objects))
	for _, o := range objects {
		out = append(out, SnapshotInfo{URI: "gs://" + s.bucket + "/" + o.Name, Size: o.Size, Updated: o.Updated})
	}
	return out, nil
}

// ParseURI splits gs://bucket/path/to/object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}
