package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpattn/orgstage/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(Config{BaseURL: server.URL, Token: "svc-token"})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client, server
}

func TestSetManagerSendsPayloadAndToken(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	manager := "U100"
	if err := client.SetManager(context.Background(), "U001", &manager); err != nil {
		t.Fatalf("SetManager failed: %v", err)
	}

	if gotPath != "/v1/members.manager.set" {
		t.Errorf("path = %s", gotPath)
	}
	if gotAuth != "Bearer svc-token" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody["member_id"] != "U001" || gotBody["manager_id"] != "U100" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestSetManagerNullManager(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	if err := client.SetManager(context.Background(), "U001", nil); err != nil {
		t.Fatalf("SetManager failed: %v", err)
	}
	if value, present := gotBody["manager_id"]; !present || value != nil {
		t.Errorf("manager_id = %v, want explicit null", value)
	}
}

func TestNotOKResponseSurfacesMessageVerbatim(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "missing_scope"})
	})

	err := client.SetProfileFields(context.Background(), "U001", map[string]domain.FieldValue{
		"Xf01": {Value: "x"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsExternal(err) {
		t.Errorf("expected external error, got %T", err)
	}
	if err.Error() != "missing_scope" {
		t.Errorf("message = %q, want verbatim missing_scope", err.Error())
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	err := client.SetManager(context.Background(), "U001", nil)
	if err == nil {
		t.Fatal("expected error for unreadable body")
	}
	if !domain.IsExternal(err) {
		t.Errorf("expected external error, got %T", err)
	}
}

func TestListMembersDecodesRecords(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/members.list" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"members": []map[string]any{
				{"id": "U001", "name": "Alice", "manager_id": nil},
				{"id": "U002", "name": "Bob", "manager_id": "U001", "active": false},
			},
		})
	})

	members, err := client.ListMembers(context.Background())
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if !members[0].Active {
		t.Error("missing active flag must default to true")
	}
	if members[1].Active {
		t.Error("explicit active=false must be preserved")
	}
	if members[1].ManagerID == nil || *members[1].ManagerID != "U001" {
		t.Errorf("manager = %v", members[1].ManagerID)
	}
}

func TestWithTokenOverridesServiceToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "members": []any{}})
	})

	if _, err := client.WithToken("caller-token").ListMembers(context.Background()); err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if gotAuth != "Bearer caller-token" {
		t.Errorf("auth header = %q, want caller token", gotAuth)
	}
}

func TestNewHTTPClientRejectsBadBaseURL(t *testing.T) {
	if _, err := NewHTTPClient(Config{BaseURL: "not a url"}); err == nil {
		t.Error("expected error for invalid base URL")
	}
}
