package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/bondarys/entitycore"
	"github.com/bondarys/entitycore/internal/domain"
	"github.com/bondarys/entitycore/internal/usecase"
)

// fakeStore is an in-memory stand-in for the gorm repositories. Attribute
// values pass through the codec on write so responses carry the same
// shapes the real store produces.
type fakeStore struct {
	types    map[string]entitycore.EntityType
	entities map[string]*entitycore.Entity
	owners   map[string]bool
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		types:    map[string]entitycore.EntityType{},
		entities: map[string]*entitycore.Entity{},
		owners:   map[string]bool{},
	}
}

func (s *fakeStore) Create(ctx context.Context, input entitycore.CreateTypeInput) (entitycore.EntityType, error) {
	s.seq++
	typ := entitycore.EntityType{
		ID:          fmt.Sprintf("type-%d", s.seq),
		Name:        input.Name,
		DisplayName: input.DisplayName,
		Icon:        input.Icon,
		Schema:      entitycore.TypeSchema{Fields: []entitycore.FieldDefinition{}},
	}
	if input.Schema != nil {
		typ.Schema = *input.Schema
	}
	s.types[input.Name] = typ
	return typ, nil
}

func (s *fakeStore) GetByName(ctx context.Context, name string) (*entitycore.EntityType, error) {
	if typ, ok := s.types[name]; ok {
		return &typ, nil
	}
	return nil, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*entitycore.EntityType, error) {
	for _, typ := range s.types {
		if typ.ID == id {
			return &typ, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) List(ctx context.Context, applicationID *string) ([]entitycore.EntityType, error) {
	out := make([]entitycore.EntityType, 0, len(s.types))
	for _, typ := range s.types {
		out = append(out, typ)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeStore) Update(ctx context.Context, id string, input entitycore.UpdateTypeInput) (*entitycore.EntityType, error) {
	for name, typ := range s.types {
		if typ.ID == id {
			if input.DisplayName != nil {
				typ.DisplayName = *input.DisplayName
			}
			if input.Schema != nil {
				typ.Schema = *input.Schema
			}
			s.types[name] = typ
			return &typ, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) (bool, error) {
	for name, typ := range s.types {
		if typ.ID == id {
			delete(s.types, name)
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateEntity(ctx context.Context, typ entitycore.EntityType, input entitycore.CreateEntityInput) (*entitycore.Entity, error) {
	s.seq++
	attributes := map[string]any{}
	for name, value := range input.Attributes {
		ev, err := entitycore.Encode(value)
		if err != nil {
			return nil, err
		}
		attributes[name] = entitycore.Decode(ev)
	}
	metadata := input.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	entity := &entitycore.Entity{
		ID:         fmt.Sprintf("entity-%d", s.seq),
		Type:       typ.Name,
		TypeID:     typ.ID,
		OwnerID:    input.OwnerID,
		Status:     entitycore.StatusActive,
		Metadata:   metadata,
		Attributes: attributes,
	}
	s.entities[entity.ID] = entity
	return entity, nil
}

func (s *fakeStore) GetEntity(ctx context.Context, id string) (*entitycore.Entity, error) {
	if entity, ok := s.entities[id]; ok {
		copied := *entity
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) UpdateEntity(ctx context.Context, id string, input entitycore.UpdateEntityInput) (*entitycore.Entity, error) {
	entity, ok := s.entities[id]
	if !ok {
		return nil, nil
	}
	for name, value := range input.Attributes {
		if value == nil {
			delete(entity.Attributes, name)
			continue
		}
		ev, err := entitycore.Encode(value)
		if err != nil {
			return nil, err
		}
		entity.Attributes[name] = entitycore.Decode(ev)
	}
	for name, value := range input.Metadata {
		entity.Metadata[name] = value
	}
	if input.Status != nil {
		entity.Status = *input.Status
	}
	copied := *entity
	return &copied, nil
}

func (s *fakeStore) DeleteEntity(ctx context.Context, id string, hard bool) (bool, error) {
	entity, ok := s.entities[id]
	if !ok {
		return false, nil
	}
	if hard {
		delete(s.entities, id)
	} else {
		entity.Status = entitycore.StatusDeleted
	}
	return true, nil
}

func (s *fakeStore) Page(ctx context.Context, typeID string, f domain.PageFilter) ([]string, int64, error) {
	var ids []string
	for id, entity := range s.entities {
		if entity.TypeID != typeID {
			continue
		}
		if f.Status != nil {
			if entity.Status != *f.Status {
				continue
			}
		} else if entity.Status == entitycore.StatusDeleted {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, int64(len(ids)), nil
}

func (s *fakeStore) Search(ctx context.Context, typeID string, term string, applicationID *string, limit int) ([]string, error) {
	return nil, nil
}

func (s *fakeStore) Exists(ctx context.Context, id string) (bool, error) {
	return s.owners[id], nil
}

// entityPorts adapts fakeStore's entity methods to the repository port
// without colliding with the registry method names.
type entityPorts struct{ *fakeStore }

func (p entityPorts) Create(ctx context.Context, typ entitycore.EntityType, input entitycore.CreateEntityInput) (*entitycore.Entity, error) {
	return p.CreateEntity(ctx, typ, input)
}
func (p entityPorts) Get(ctx context.Context, id string) (*entitycore.Entity, error) {
	return p.GetEntity(ctx, id)
}
func (p entityPorts) Update(ctx context.Context, id string, input entitycore.UpdateEntityInput) (*entitycore.Entity, error) {
	return p.UpdateEntity(ctx, id, input)
}
func (p entityPorts) Delete(ctx context.Context, id string, hard bool) (bool, error) {
	return p.DeleteEntity(ctx, id, hard)
}

func newTestServer(store *fakeStore) *echo.Echo {
	typeUC := usecase.NewTypeUsecase(store)
	entityUC := usecase.NewEntityUsecase(store, entityPorts{store}, store, nil)
	queryUC := usecase.NewQueryUsecase(store, entityPorts{store}, store)

	h := NewHandler(typeUC, entityUC, queryUC, nil)
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	res := httptest.NewRecorder()
	e.ServeHTTP(res, req)
	return res
}

func decodeEntity(t *testing.T, res *httptest.ResponseRecorder) entitycore.Entity {
	t.Helper()
	var entity entitycore.Entity
	if err := json.Unmarshal(res.Body.Bytes(), &entity); err != nil {
		t.Fatalf("decode entity: %v", err)
	}
	return entity
}

func TestCreateTypeValidation(t *testing.T) {
	e := newTestServer(newFakeStore())

	res := doJSON(t, e, http.MethodPost, "/api/v1/types", entitycore.CreateTypeInput{Name: "Bad Name", DisplayName: "X"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestCreateEntityUnknownType(t *testing.T) {
	e := newTestServer(newFakeStore())

	res := doJSON(t, e, http.MethodPost, "/api/v1/collections/missing/entities", entitycore.CreateEntityInput{
		Attributes: map[string]any{"title": "x"},
	})
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestCreateEntityInvalidOwner(t *testing.T) {
	store := newFakeStore()
	e := newTestServer(store)

	if res := doJSON(t, e, http.MethodPost, "/api/v1/types", entitycore.CreateTypeInput{Name: "note", DisplayName: "Notes"}); res.Code != http.StatusCreated {
		t.Fatalf("type create failed: %d", res.Code)
	}

	owner := "550e8400-e29b-41d4-a716-446655440000"
	res := doJSON(t, e, http.MethodPost, "/api/v1/collections/note/entities", entitycore.CreateEntityInput{
		OwnerID:    &owner,
		Attributes: map[string]any{"title": "x"},
	})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
	if len(store.entities) != 0 {
		t.Fatalf("expected no entity rows after failed owner check")
	}
}

func TestUpdateSystemTypeSchemaForbidden(t *testing.T) {
	store := newFakeStore()
	store.types["user"] = entitycore.EntityType{ID: "type-user", Name: "user", IsSystem: true}
	e := newTestServer(store)

	res := doJSON(t, e, http.MethodPut, "/api/v1/types/type-user", entitycore.UpdateTypeInput{
		Schema: &entitycore.TypeSchema{Fields: []entitycore.FieldDefinition{{Name: "email", Type: "text"}}},
	})
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}

func TestGetMissingEntity(t *testing.T) {
	e := newTestServer(newFakeStore())

	res := doJSON(t, e, http.MethodGet, "/api/v1/entities/nope", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestTaskScenario(t *testing.T) {
	e := newTestServer(newFakeStore())

	if res := doJSON(t, e, http.MethodPost, "/api/v1/types", entitycore.CreateTypeInput{Name: "task", DisplayName: "Tasks"}); res.Code != http.StatusCreated {
		t.Fatalf("type create failed: %d", res.Code)
	}

	res := doJSON(t, e, http.MethodPost, "/api/v1/collections/task/entities", entitycore.CreateEntityInput{
		Attributes: map[string]any{
			"title": "Buy milk",
			"done":  false,
			"due":   "2025-01-01",
		},
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("entity create failed: %d %s", res.Code, res.Body.String())
	}
	created := decodeEntity(t, res)

	res = doJSON(t, e, http.MethodGet, "/api/v1/entities/"+created.ID, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("get failed: %d", res.Code)
	}
	fetched := decodeEntity(t, res)
	if fetched.Attributes["title"] != "Buy milk" {
		t.Fatalf("expected title attribute, got %v", fetched.Attributes["title"])
	}
	if fetched.Attributes["done"] != false {
		t.Fatalf("expected done false, got %v", fetched.Attributes["done"])
	}
	if fetched.Attributes["due"] != "2025-01-01" {
		t.Fatalf("expected due date, got %v", fetched.Attributes["due"])
	}

	res = doJSON(t, e, http.MethodPatch, "/api/v1/entities/"+created.ID, entitycore.UpdateEntityInput{
		Attributes: map[string]any{"done": true},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("update failed: %d", res.Code)
	}
	updated := decodeEntity(t, res)
	if updated.Attributes["done"] != true {
		t.Fatalf("expected done true, got %v", updated.Attributes["done"])
	}
	if updated.Attributes["title"] != "Buy milk" {
		t.Fatalf("expected title unchanged, got %v", updated.Attributes["title"])
	}

	if res := doJSON(t, e, http.MethodDelete, "/api/v1/entities/"+created.ID, nil); res.Code != http.StatusOK {
		t.Fatalf("delete failed: %d", res.Code)
	}

	res = doJSON(t, e, http.MethodGet, "/api/v1/entities/"+created.ID, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("get after soft delete failed: %d", res.Code)
	}
	if decodeEntity(t, res).Status != entitycore.StatusDeleted {
		t.Fatalf("expected deleted status")
	}

	res = doJSON(t, e, http.MethodGet, "/api/v1/collections/task", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("query failed: %d", res.Code)
	}
	var result entitycore.QueryResult
	if err := json.Unmarshal(res.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Entities) != 0 || result.Total != 0 {
		t.Fatalf("expected soft-deleted entity excluded, got %+v", result)
	}
}

func TestUpdateRemovesNullAttributeAndMergesMetadata(t *testing.T) {
	e := newTestServer(newFakeStore())

	if res := doJSON(t, e, http.MethodPost, "/api/v1/types", entitycore.CreateTypeInput{Name: "task", DisplayName: "Tasks"}); res.Code != http.StatusCreated {
		t.Fatalf("type create failed: %d", res.Code)
	}
	res := doJSON(t, e, http.MethodPost, "/api/v1/collections/task/entities", entitycore.CreateEntityInput{
		Attributes: map[string]any{"title": "Buy milk", "done": false},
		Metadata:   map[string]any{"source": "import"},
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("entity create failed: %d", res.Code)
	}
	created := decodeEntity(t, res)

	res = doJSON(t, e, http.MethodPatch, "/api/v1/entities/"+created.ID, entitycore.UpdateEntityInput{
		Attributes: map[string]any{"title": nil},
		Metadata:   map[string]any{"priority": "high"},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("update failed: %d", res.Code)
	}
	updated := decodeEntity(t, res)

	if _, ok := updated.Attributes["title"]; ok {
		t.Fatalf("expected null value to remove the attribute, got %v", updated.Attributes["title"])
	}
	if updated.Attributes["done"] != false {
		t.Fatalf("expected untouched attribute kept, got %v", updated.Attributes["done"])
	}
	if updated.Metadata["source"] != "import" {
		t.Fatalf("expected prior metadata key to survive, got %v", updated.Metadata)
	}
	if updated.Metadata["priority"] != "high" {
		t.Fatalf("expected merged metadata key, got %v", updated.Metadata)
	}
}

func TestRealtimeUnavailableWithoutEvents(t *testing.T) {
	e := newTestServer(newFakeStore())

	res := doJSON(t, e, http.MethodGet, "/realtime", nil)
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

// fakeStream emits one created event per listened type name.
type fakeStream struct{}

func (fakeStream) Realtime(ctx context.Context, input <-chan []string, output chan<- entitycore.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case names, ok := <-input:
			if !ok {
				return
			}
			for _, name := range names {
				ev := entitycore.Event{
					Action:   entitycore.EventCreated,
					Type:     name,
					EntityID: "entity-1",
					Time:     time.Now(),
				}
				select {
				case output <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func TestRealtimeListenAndTeardown(t *testing.T) {
	store := newFakeStore()
	typeUC := usecase.NewTypeUsecase(store)
	entityUC := usecase.NewEntityUsecase(store, entityPorts{store}, store, nil)
	queryUC := usecase.NewQueryUsecase(store, entityPorts{store}, store)

	h := NewHandler(typeUC, entityUC, queryUC, fakeStream{})
	e := echo.New()
	h.RegisterRoutes(e)

	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/realtime"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "listen", "types": []string{"task"}}); err != nil {
		t.Fatalf("write listen: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev entitycore.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != "task" || ev.Action != entitycore.EventCreated {
		t.Fatalf("unexpected event %+v", ev)
	}

	// Queue another listen and close right away; the handler has to shut
	// down cleanly while the reader may still be forwarding.
	_ = conn.WriteJSON(map[string]any{"type": "listen", "types": []string{"note"}})
	conn.Close()
}

func TestQueryIncludesDeletedWhenRequested(t *testing.T) {
	store := newFakeStore()
	e := newTestServer(store)

	if res := doJSON(t, e, http.MethodPost, "/api/v1/types", entitycore.CreateTypeInput{Name: "note", DisplayName: "Notes"}); res.Code != http.StatusCreated {
		t.Fatalf("type create failed: %d", res.Code)
	}
	res := doJSON(t, e, http.MethodPost, "/api/v1/collections/note/entities", entitycore.CreateEntityInput{
		Attributes: map[string]any{"title": "x"},
	})
	created := decodeEntity(t, res)

	if res := doJSON(t, e, http.MethodDelete, "/api/v1/entities/"+created.ID, nil); res.Code != http.StatusOK {
		t.Fatalf("delete failed: %d", res.Code)
	}

	res = doJSON(t, e, http.MethodGet, "/api/v1/collections/note?status=deleted", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("query failed: %d", res.Code)
	}
	var result entitycore.QueryResult
	if err := json.Unmarshal(res.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Entities) != 1 {
		t.Fatalf("expected deleted entity included, got %+v", result)
	}
}
