package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "salesdash/internal/sheets"
)

// fakeSheets serves the subset of the Sheets values API the client uses.
type fakeSheets struct {
	mu       sync.Mutex
	header   [][]any
	appended [][]any
	options  []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(gsheet.ValueRange{Values: f.header})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.header = vr.Values
		f.options = append(f.options, r.URL.Query().Get("valueInputOption"))
		_ = json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{UpdatedRange: "Loads!A1:I1"})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.appended = append(f.appended, vr.Values...)
		f.options = append(f.options, r.URL.Query().Get("valueInputOption"))
		_ = json.NewEncoder(w).Encode(gsheet.AppendValuesResponse{
			Updates: &gsheet.UpdateValuesResponse{UpdatedRange: "Loads!A2:I2"},
		})
	default:
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}
}

func newFakeClient(t *testing.T, fake http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-id", "", nil)
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "id"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")
}

func TestNewMissingCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "id", ServiceAccountFile: "/does/not/exist.json"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestEnsureHeaderWritesOnce(t *testing.T) {
	fake := &fakeSheets{}
	c := newFakeClient(t, fake)

	require.NoError(t, c.EnsureHeader(context.Background()))
	require.NoError(t, c.EnsureHeader(context.Background()))

	require.Len(t, fake.header, 1)
	assert.Equal(t, "Merged At", fake.header[0][0])
	assert.Equal(t, []string{"RAW"}, fake.options, "second call finds the header")
}

func TestAppendLoad(t *testing.T) {
	fake := &fakeSheets{}
	c := newFakeClient(t, fake)

	ref, err := c.AppendLoad(context.Background(), ports.LoadRow{
		EventID:   "e1",
		SessionID: "s1",
		Files:     []string{"a.csv", "b.csv"},
		Rows:      2,
		MergedAt:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "Loads!A2:I2", ref)
	require.Len(t, fake.appended, 1)
	assert.Equal(t, "e1", fake.appended[0][1])
	assert.Equal(t, []string{"USER_ENTERED"}, fake.options)
}

func TestAppendLoadValidation(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	_, err := c.AppendLoad(context.Background(), ports.LoadRow{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	_, err = c.AppendLoad(context.Background(), ports.LoadRow{EventID: "e1", MergedAt: time.Now()})
	assert.EqualError(t, err, "sheets service not initialized")
}

func TestAppendLoadAPIError(t *testing.T) {
	c := newFakeClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"forbidden"}}`))
	}))

	_, err := c.AppendLoad(context.Background(), ports.LoadRow{EventID: "e1", MergedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append to sheet Loads")
}
