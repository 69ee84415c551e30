package viewer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/studio-scheduler/platform/go/auth"
)

func TestFromCredentials(t *testing.T) {
	tenantID := uuid.New()
	clientID := uuid.New()

	v, err := FromCredentials(&platformauth.UserCredentials{
		Id:           "user-1",
		TenantID:     ptr(tenantID.String()),
		Role:         "client",
		ClientID:     ptr(clientID.String()),
		Capabilities: []string{" bookings:view-all ", ""},
	})
	require.NoError(t, err)
	require.Equal(t, RoleClient, v.Role)
	require.Equal(t, tenantID, v.TenantID)
	require.NotNil(t, v.ClientID)
	require.Equal(t, clientID, *v.ClientID)
	require.True(t, v.Has(CapabilityViewAll))
	require.True(t, v.Elevated())
	require.Equal(t, []string{"bookings:view-all"}, v.CapabilityList())
}

func TestFromCredentialsRejectsMalformedIDs(t *testing.T) {
	_, err := FromCredentials(&platformauth.UserCredentials{Id: "u", AgentID: ptr("not-a-uuid")})
	require.ErrorIs(t, err, ErrInvalidViewer)

	_, err = FromCredentials(&platformauth.UserCredentials{Id: "u", TenantID: ptr("acme")})
	require.ErrorIs(t, err, ErrInvalidViewer)

	_, err = FromCredentials(nil)
	require.ErrorIs(t, err, ErrInvalidViewer)
}

func TestFromCredentialsInfersRole(t *testing.T) {
	crewID := uuid.New()

	admin, err := FromCredentials(&platformauth.UserCredentials{Id: "a", IsAdmin: true})
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, admin.Role)

	crew, err := FromCredentials(&platformauth.UserCredentials{Id: "c", CrewMemberID: ptr(crewID.String())})
	require.NoError(t, err)
	require.Equal(t, RoleCrew, crew.Role)

	staff, err := FromCredentials(&platformauth.UserCredentials{Id: "s"})
	require.NoError(t, err)
	require.Equal(t, RoleStaff, staff.Role)
}

func TestScopeKeyCoversRedactionDimensions(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	keys := map[string]struct{}{}
	for _, v := range []Viewer{
		{Role: RoleClient, ClientID: &a},
		{Role: RoleClient, ClientID: &b},
		{Role: RoleAgent, AgentID: &a},
		{Role: RoleCrew, CrewMemberID: &a},
		{Role: RoleStaff},
		{Role: RoleStaff, Capabilities: map[Capability]struct{}{CapabilityViewAll: {}}},
	} {
		keys[v.ScopeKey()] = struct{}{}
	}
	require.Len(t, keys, 6)

	same1 := Viewer{UserID: "one", Role: RoleClient, ClientID: &a}
	same2 := Viewer{UserID: "two", Role: RoleClient, ClientID: &a}
	require.Equal(t, same1.ScopeKey(), same2.ScopeKey())
}

func TestMiddleware(t *testing.T) {
	var got Viewer
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = FromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(platformauth.WithUser(context.Background(), &platformauth.UserCredentials{Id: "u", Role: "agent"}))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, RoleAgent, got.Role)
}

func ptr[T any](v T) *T { return &v }
