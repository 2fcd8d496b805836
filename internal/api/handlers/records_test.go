package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nexcrm/nexus/internal/api/middleware"
	"github.com/nexcrm/nexus/internal/domain"
	"github.com/nexcrm/nexus/internal/service"
	"github.com/nexcrm/nexus/internal/store"
	"go.uber.org/zap"
)

type mockCustomStore struct {
	tables  map[uuid.UUID]*domain.CustomTable
	fields  map[uuid.UUID][]domain.CustomField
	records map[uuid.UUID][]domain.CustomRecord
}

func newMockCustomStore() *mockCustomStore {
	return &mockCustomStore{
		tables:  make(map[uuid.UUID]*domain.CustomTable),
		fields:  make(map[uuid.UUID][]domain.CustomField),
		records: make(map[uuid.UUID][]domain.CustomRecord),
	}
}

func (m *mockCustomStore) CreateTable(ctx context.Context, t *domain.CustomTable) error {
	t.ID = uuid.New()
	m.tables[t.ID] = t
	return nil
}

func (m *mockCustomStore) GetTableByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.CustomTable, error) {
	t, ok := m.tables[id]
	if !ok || t.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (m *mockCustomStore) GetTableByName(ctx context.Context, tenantID, name string) (*domain.CustomTable, error) {
	for _, t := range m.tables {
		if t.TenantID == tenantID && t.Name == name {
			return t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockCustomStore) ListTables(ctx context.Context, tenantID string) ([]domain.CustomTable, error) {
	var out []domain.CustomTable
	for _, t := range m.tables {
		if t.TenantID == tenantID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *mockCustomStore) CreateField(ctx context.Context, f *domain.CustomField) error {
	f.ID = uuid.New()
	m.fields[f.TableID] = append(m.fields[f.TableID], *f)
	return nil
}

func (m *mockCustomStore) ListFields(ctx context.Context, tableID uuid.UUID) ([]domain.CustomField, error) {
	return m.fields[tableID], nil
}

func (m *mockCustomStore) CreateRecord(ctx context.Context, r *domain.CustomRecord) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.records[r.TableID] = append([]domain.CustomRecord{*r}, m.records[r.TableID]...)
	return nil
}

func (m *mockCustomStore) GetRecord(ctx context.Context, tableID, recordID uuid.UUID) (*domain.CustomRecord, error) {
	for _, r := range m.records[tableID] {
		if r.ID == recordID {
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockCustomStore) ListRecords(ctx context.Context, tableID uuid.UUID, limit int) ([]domain.CustomRecord, error) {
	recs := m.records[tableID]
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// setupRecordRouter wires the handler behind the identity middleware the
// way the real router does, seeded with one table and a required field.
func setupRecordRouter(t *testing.T) (http.Handler, string) {
	t.Helper()

	mock := newMockCustomStore()
	svc := service.NewRecordService(mock, zap.NewNop())
	h := NewRecordHandler(svc, zap.NewNop())

	tenantID := "tenant-1"
	table := &domain.CustomTable{TenantID: tenantID, Name: "pedidos_especiais"}
	if err := mock.CreateTable(context.Background(), table); err != nil {
		t.Fatalf("failed to seed table: %v", err)
	}
	field := &domain.CustomField{TableID: table.ID, Name: "cliente", Type: domain.FieldText, Required: true}
	if err := mock.CreateField(context.Background(), field); err != nil {
		t.Fatalf("failed to seed field: %v", err)
	}

	r := chi.NewRouter()
	r.Route("/v1/data/{table}/records", func(r chi.Router) {
		r.Use(middleware.Identity(middleware.IdentityConfig{}))
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.GetByID)
	})
	return r, tenantID
}

func doRecordRequest(t *testing.T, handler http.Handler, method, path, tenantID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(middleware.HeaderTenantID, tenantID)
	req.Header.Set(middleware.HeaderUserID, "user-1")
	req.Header.Set(middleware.HeaderUserRoles, "vendedor")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRecordHandler_Create(t *testing.T) {
	handler, tenantID := setupRecordRouter(t)

	rec := doRecordRequest(t, handler, http.MethodPost, "/v1/data/pedidos_especiais/records/", tenantID,
		map[string]any{"cliente": "ACME", "valor": 12.5})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created domain.CustomRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected record id in response")
	}
	if created.Data["cliente"] != "ACME" {
		t.Fatalf("unexpected data: %v", created.Data)
	}
	if created.CreatedBy != "user-1" {
		t.Fatalf("expected created_by user-1, got %q", created.CreatedBy)
	}
}

func TestRecordHandler_Create_MissingRequiredField(t *testing.T) {
	handler, tenantID := setupRecordRouter(t)

	rec := doRecordRequest(t, handler, http.MethodPost, "/v1/data/pedidos_especiais/records/", tenantID,
		map[string]any{"valor": 12.5})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] == "" || !bytes.Contains(rec.Body.Bytes(), []byte("cliente")) {
		t.Fatalf("expected error naming the missing field, got %q", resp["error"])
	}
}

func TestRecordHandler_Create_UnknownTable(t *testing.T) {
	handler, tenantID := setupRecordRouter(t)

	rec := doRecordRequest(t, handler, http.MethodPost, "/v1/data/no_such_table/records/", tenantID,
		map[string]any{"cliente": "ACME"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRecordHandler_Create_InvalidBody(t *testing.T) {
	handler, tenantID := setupRecordRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/data/pedidos_especiais/records/", bytes.NewBufferString("{not json"))
	req.Header.Set(middleware.HeaderTenantID, tenantID)
	req.Header.Set(middleware.HeaderUserID, "user-1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRecordHandler_Create_NoIdentity(t *testing.T) {
	handler, _ := setupRecordRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/data/pedidos_especiais/records/", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRecordHandler_ListAndGet(t *testing.T) {
	handler, tenantID := setupRecordRouter(t)

	first := doRecordRequest(t, handler, http.MethodPost, "/v1/data/pedidos_especiais/records/", tenantID,
		map[string]any{"cliente": "first"})
	second := doRecordRequest(t, handler, http.MethodPost, "/v1/data/pedidos_especiais/records/", tenantID,
		map[string]any{"cliente": "second"})
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("seed creates failed: %d %d", first.Code, second.Code)
	}

	list := doRecordRequest(t, handler, http.MethodGet, "/v1/data/pedidos_especiais/records/", tenantID, nil)
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}

	var listResp struct {
		Records []domain.CustomRecord `json:"records"`
		Count   int                   `json:"count"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if listResp.Count != 2 {
		t.Fatalf("expected 2 records, got %d", listResp.Count)
	}
	if listResp.Records[0].Data["cliente"] != "second" {
		t.Fatal("expected newest record first")
	}

	get := doRecordRequest(t, handler, http.MethodGet,
		"/v1/data/pedidos_especiais/records/"+listResp.Records[0].ID.String(), tenantID, nil)
	if get.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", get.Code)
	}

	missing := doRecordRequest(t, handler, http.MethodGet,
		"/v1/data/pedidos_especiais/records/"+uuid.NewString(), tenantID, nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
}
