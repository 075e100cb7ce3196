package backup

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/financas-voz/internal/domain"
	"github.com/dvloznov/financas-voz/internal/jobs"
	"github.com/dvloznov/financas-voz/internal/state"
)

// MockObjectStore is a mock implementation of ObjectStore for testing.
type MockObjectStore struct {
	WriteObjectFunc func(ctx context.Context, bucket, object, contentType string, data []byte) error
	ReadObjectFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
	ListObjectsFunc func(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}

func (m *MockObjectStore) WriteObject(ctx context.Context, bucket, object, contentType string, data []byte) error {
	if m.WriteObjectFunc != nil {
		return m.WriteObjectFunc(ctx, bucket, object, contentType, data)
	}
	return nil
}

func (m *MockObjectStore) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadObjectFunc != nil {
		return m.ReadObjectFunc(ctx, bucket, object)
	}
	return nil, errors.New("not found")
}

func (m *MockObjectStore) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	if m.ListObjectsFunc != nil {
		return m.ListObjectsFunc(ctx, bucket, prefix)
	}
	return nil, nil
}

// MockInserter is a mock implementation of RowInserter for testing.
type MockInserter struct {
	PutFunc func(ctx context.Context, src interface{}) error
}

func (m *MockInserter) Put(ctx context.Context, src interface{}) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, src)
	}
	return nil
}

type staticSource struct {
	st  state.State
	err error
}

func (s staticSource) ReadState() (state.State, error) { return s.st, s.err }

func sampleState() state.State {
	return state.State{
		Revision: 7,
		Transactions: []domain.Transaction{
			{ID: "t1", Date: "2024-03-10T12:30:00.000Z", Timestamp: 1710073800000, Description: "Mercado", Category: "Alimentação", Amount: decimal.RequireFromString("50.25"), Type: domain.TransactionExpense},
			{ID: "t2", Date: "nonsense", Description: "bad", Amount: decimal.NewFromInt(1), Type: domain.TransactionExpense},
			{ID: "t3", Date: "2024-03-01", Description: "Salário", Amount: decimal.NewFromInt(3000), Type: domain.TransactionIncome, IsChargeback: true},
		},
		Categories:   domain.DefaultCategories(),
		Appointments: []domain.Appointment{{ID: "a1", Title: "Dentista", Date: "2024-03-12", Time: "14:00", Repeat: domain.RepeatNone}},
	}
}

func TestObjectName(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	if got := ObjectName(at, "abc"); got != "snapshots/2024/03/10/abc.json" {
		t.Errorf("ObjectName() = %q", got)
	}
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://b/snapshots/x.json", "b", "snapshots/x.json", false},
		{"gs://b", "", "", true},
		{"gs:///x.json", "", "", true},
		{"https://b/x.json", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.bucket || object != tt.object {
				t.Errorf("ParseURI() = (%q, %q)", bucket, object)
			}
		})
	}
}

func TestSnapshotter_UploadAndFetch(t *testing.T) {
	objects := map[string][]byte{}
	store := &MockObjectStore{
		WriteObjectFunc: func(ctx context.Context, bucket, object, contentType string, data []byte) error {
			if contentType != "application/json" {
				t.Errorf("contentType = %q", contentType)
			}
			objects[bucket+"/"+object] = data
			return nil
		},
		ReadObjectFunc: func(ctx context.Context, bucket, object string) ([]byte, error) {
			data, ok := objects[bucket+"/"+object]
			if !ok {
				return nil, errors.New("missing")
			}
			return data, nil
		},
	}
	s := NewSnapshotter(store, "backups")
	s.NewID = func() string { return "fixed" }

	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	uri, err := s.Upload(context.Background(), NewSnapshot(sampleState(), at))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if uri != "gs://backups/snapshots/2024/03/10/fixed.json" {
		t.Errorf("uri = %q", uri)
	}

	snap, err := s.Fetch(context.Background(), uri)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if snap.Revision != 7 || len(snap.Transactions) != 3 || len(snap.Appointments) != 1 {
		t.Errorf("fetched snapshot = %+v", snap)
	}
	if !snap.Transactions[0].Amount.Equal(decimal.RequireFromString("50.25")) {
		t.Errorf("amount = %s", snap.Transactions[0].Amount)
	}
}

func TestSnapshotter_NotConfigured(t *testing.T) {
	var s *Snapshotter
	if _, err := s.Upload(context.Background(), Snapshot{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Upload() error = %v, want ErrNotConfigured", err)
	}
}

func TestSnapshotter_List(t *testing.T) {
	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	store := &MockObjectStore{
		ListObjectsFunc: func(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
			if bucket != "bkt" || prefix != SnapshotPrefix {
				t.Errorf("ListObjects(%q, %q)", bucket, prefix)
			}
			return []ObjectInfo{
				{Name: "snapshots/2026/03/13/a.json", Size: 10, Updated: base.Add(-48 * time.Hour)},
				{Name: "snapshots/2026/03/15/c.json", Size: 30, Updated: base},
				{Name: "snapshots/2026/03/14/b.json", Size: 20, Updated: base.Add(-24 * time.Hour)},
			}, nil
		},
	}
	s := NewSnapshotter(store, "bkt")

	got, err := s.List(context.Background(), 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"gs://bkt/snapshots/2026/03/15/c.json", "gs://bkt/snapshots/2026/03/14/b.json"}
	if len(got) != len(want) {
		t.Fatalf("List() returned %d snapshots, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].URI != want[i] {
			t.Errorf("List()[%d].URI = %q, want %q", i, got[i].URI, want[i])
		}
	}

	all, err := s.List(context.Background(), 0)
	if err != nil || len(all) != 3 {
		t.Errorf("List(0) = %d snapshots, %v", len(all), err)
	}

	store.ListObjectsFunc = func(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
		return nil, errors.New("forbidden")
	}
	if _, err := s.List(context.Background(), 0); err == nil {
		t.Error("expected list error")
	}

	var nilSnap *Snapshotter
	if _, err := nilSnap.List(context.Background(), 0); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("List() on nil = %v, want ErrNotConfigured", err)
	}
}

func TestToRow(t *testing.T) {
	now := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	row, err := ToRow(sampleState().Transactions[0], "exp-1", now)
	if err != nil {
		t.Fatalf("ToRow() error = %v", err)
	}
	if row.TransactionDate.String() != "2024-03-10" {
		t.Errorf("TransactionDate = %s", row.TransactionDate)
	}
	if row.Amount.Cmp(big.NewRat(201, 4)) != 0 {
		t.Errorf("Amount = %s, want 201/4", row.Amount.RatString())
	}
	if !row.CategoryName.Valid || row.CategoryName.StringVal != "Alimentação" {
		t.Errorf("CategoryName = %+v", row.CategoryName)
	}
	if row.Direction != "expense" || row.ExportID != "exp-1" {
		t.Errorf("row = %+v", row)
	}
	if row.RecordedAt.UnixMilli() != 1710073800000 {
		t.Errorf("RecordedAt = %s", row.RecordedAt)
	}
}

func TestExporter_Export(t *testing.T) {
	var inserted []*TransactionRow
	e := NewExporterWithInserter(&MockInserter{
		PutFunc: func(ctx context.Context, src interface{}) error {
			inserted = src.([]*TransactionRow)
			return nil
		},
	})

	n, err := e.Export(context.Background(), sampleState().Transactions, "exp-1", time.Now())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != 2 || len(inserted) != 2 {
		t.Fatalf("exported %d rows (%d inserted), want 2", n, len(inserted))
	}
	if inserted[1].TransactionID != "t3" || !inserted[1].IsChargeback {
		t.Errorf("second row = %+v", inserted[1])
	}
}

func TestExporter_InsertError(t *testing.T) {
	e := NewExporterWithInserter(&MockInserter{
		PutFunc: func(ctx context.Context, src interface{}) error { return errors.New("quota") },
	})
	if _, err := e.Export(context.Background(), sampleState().Transactions, "x", time.Now()); err == nil {
		t.Error("Export() error = nil, want insert error")
	}
}

func TestRunner_Handle(t *testing.T) {
	var uploaded []byte
	snapshotter := NewSnapshotter(&MockObjectStore{
		WriteObjectFunc: func(ctx context.Context, bucket, object, contentType string, data []byte) error {
			uploaded = data
			return nil
		},
	}, "bkt")
	snapshotter.NewID = func() string { return "id" }
	exporter := NewExporterWithInserter(&MockInserter{})

	r := NewRunner(staticSource{st: sampleState()}, snapshotter, exporter, zerolog.Nop())
	r.Now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	snapJob := &jobs.Job{JobID: "j1", Type: jobs.JobTypeSnapshot}
	if err := r.Handle(context.Background(), snapJob); err != nil {
		t.Fatalf("Handle(snapshot) error = %v", err)
	}
	if snapJob.Result != "gs://bkt/snapshots/2024/05/01/id.json" {
		t.Errorf("Result = %q", snapJob.Result)
	}
	var snap Snapshot
	if err := json.Unmarshal(uploaded, &snap); err != nil || snap.Revision != 7 {
		t.Errorf("uploaded snapshot = %s (err %v)", uploaded, err)
	}

	exportJob := &jobs.Job{JobID: "j2", Type: jobs.JobTypeExport}
	if err := r.Handle(context.Background(), exportJob); err != nil {
		t.Fatalf("Handle(export) error = %v", err)
	}
	if exportJob.Result != "2 rows" {
		t.Errorf("Result = %q", exportJob.Result)
	}
}

func TestRunner_UnreadableStateFailsJob(t *testing.T) {
	uploads := 0
	snapshotter := NewSnapshotter(&MockObjectStore{
		WriteObjectFunc: func(ctx context.Context, bucket, object, contentType string, data []byte) error {
			uploads++
			return nil
		},
	}, "bkt")
	readErr := errors.New("unexpected end of JSON input")
	r := NewRunner(staticSource{err: readErr}, snapshotter, nil, zerolog.Nop())

	err := r.Handle(context.Background(), &jobs.Job{JobID: "j1", Type: jobs.JobTypeSnapshot})
	if !errors.Is(err, readErr) {
		t.Errorf("Handle() error = %v, want the read error", err)
	}
	if uploads != 0 {
		t.Errorf("uploaded %d snapshots of unreadable state", uploads)
	}
}

func TestRunner_NotConfigured(t *testing.T) {
	r := NewRunner(staticSource{}, nil, nil, zerolog.Nop())
	if r.Enabled(jobs.JobTypeSnapshot) || r.Enabled(jobs.JobTypeExport) {
		t.Error("targets reported enabled without configuration")
	}
	err := r.Handle(context.Background(), &jobs.Job{Type: jobs.JobTypeExport})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Handle() error = %v, want ErrNotConfigured", err)
	}
}

type recordingReplacer struct {
	txs []domain.Transaction
}

func (r *recordingReplacer) Replace(txs []domain.Transaction, cats []domain.Category, appts []domain.Appointment) (state.State, error) {
	r.txs = txs
	return state.State{Transactions: txs, Categories: cats, Appointments: appts}, nil
}

func TestRestore(t *testing.T) {
	data, _ := json.Marshal(NewSnapshot(sampleState(), time.Now()))
	s := NewSnapshotter(&MockObjectStore{
		ReadObjectFunc: func(ctx context.Context, bucket, object string) ([]byte, error) {
			if bucket != "other" || !strings.HasSuffix(object, ".json") {
				t.Errorf("read %s/%s", bucket, object)
			}
			return data, nil
		},
	}, "bkt")

	target := &recordingReplacer{}
	st, err := Restore(context.Background(), s, target, "gs://other/snapshots/2024/01/01/x.json")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if len(target.txs) != 3 || len(st.Appointments) != 1 {
		t.Errorf("restored state = %+v", st)
	}

	if _, err := Restore(context.Background(), s, target, "not-a-uri"); err == nil {
		t.Error("Restore() accepted a bad URI")
	}
}
