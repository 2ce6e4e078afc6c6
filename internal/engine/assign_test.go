package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grn-bogo/ziasync/internal/zia"
)

// fakeDirectory is an in-memory stand-in for the admin API: it serves the
// reference lists, pages the user store, and applies PUT updates so that a
// second run observes the first run's mutations.
type fakeDirectory struct {
	users []zia.UserRecord

	puts          []int
	failPutIDs    map[int]bool
	usersRequests int
}

func newFakeDirectory(userCount int) *fakeDirectory {
	d := &fakeDirectory{failPutIDs: map[int]bool{}}
	for i := 1; i <= userCount; i++ {
		d.users = append(d.users, zia.UserRecord{
			ID:         i,
			Name:       fmt.Sprintf("user-%d", i),
			LoginName:  fmt.Sprintf("user-%d@example.com", i),
			Department: &zia.Department{ID: 7, Name: "Engineering"},
		})
	}
	return d
}

func (d *fakeDirectory) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/departments":
			fmt.Fprint(w, `[{"id": 7, "name": "Engineering"}]`)

		case r.URL.Path == "/groups":
			fmt.Fprint(w, `[{"id": 1, "name": "g1"}, {"id": 2, "name": "g2"}, {"id": 3, "name": "g3"}]`)

		case r.URL.Path == "/users" && r.Method == http.MethodGet:
			d.usersRequests++
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
			d.serveUsersPage(w, page, pageSize)

		case strings.HasPrefix(r.URL.Path, "/users/") && r.Method == http.MethodPut:
			id, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/users/"))
			if d.failPutIDs[id] {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			var updated zia.UserRecord
			require.NoError(t, json.NewDecoder(r.Body).Decode(&updated))
			for i := range d.users {
				if d.users[i].ID == id {
					d.users[i].Groups = updated.Groups
				}
			}
			d.puts = append(d.puts, id)
			fmt.Fprint(w, `{}`)

		default:
			http.NotFound(w, r)
		}
	})
}

func (d *fakeDirectory) serveUsersPage(w http.ResponseWriter, page, pageSize int) {
	totalPages := (len(d.users) + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(d.users) {
		start = len(d.users)
	}
	if end > len(d.users) {
		end = len(d.users)
	}
	json.NewEncoder(w).Encode(map[string]any{
		"list":       d.users[start:end],
		"totalPages": totalPages,
	})
}

func (d *fakeDirectory) userGroups(id int) []string {
	for _, u := range d.users {
		if u.ID == id {
			names := make([]string, len(u.Groups))
			for i, g := range u.Groups {
				names[i] = g.Name
			}
			return names
		}
	}
	return nil
}

func newTestEngine(srvURL string, pagesPerGroup int) *Engine {
	budget := zia.Budget{Calls: 1000, Window: time.Second}
	client := zia.NewClient(zia.ClientConfig{
		BaseURL:  srvURL,
		Username: "admin@example.com",
		Password: "pw",
		APIKey:   "ABCDEFGHIJKL",
		Budgets: map[zia.Op]zia.Budget{
			zia.OpListDepartments: budget,
			zia.OpListGroups:      budget,
			zia.OpListUsers:       budget,
			zia.OpUpdateUser:      budget,
		},
	})
	return NewEngine(client, zia.NewReference(client), pagesPerGroup, nil)
}

func TestEngine_Run_AssignsRotatingGroups(t *testing.T) {
	dir := newFakeDirectory(6)
	srv := httptest.NewServer(dir.handler(t))
	defer srv.Close()

	eng := newTestEngine(srv.URL, 1)
	summary, err := eng.Run(context.Background(), Job{
		Department: "Engineering",
		Groups:     []string{"g1", "g2"},
		PageSize:   2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Pages)
	assert.Equal(t, 6, summary.Updated)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Failed)

	// Page 1 -> g1, page 2 -> g2, page 3 saturates at g2.
	assert.Equal(t, []string{"g1"}, dir.userGroups(1))
	assert.Equal(t, []string{"g1"}, dir.userGroups(2))
	assert.Equal(t, []string{"g2"}, dir.userGroups(3))
	assert.Equal(t, []string{"g2"}, dir.userGroups(5))
	assert.Equal(t, []string{"g2"}, dir.userGroups(6))
}

func TestEngine_Run_IsIdempotent(t *testing.T) {
	dir := newFakeDirectory(5)
	srv := httptest.NewServer(dir.handler(t))
	defer srv.Close()

	job := Job{Department: "Engineering", Groups: []string{"g1"}, PageSize: 2}
	ctx := context.Background()

	first, err := newTestEngine(srv.URL, 5).Run(ctx, job)
	require.NoError(t, err)
	require.Equal(t, 5, first.Updated)
	putsAfterFirst := len(dir.puts)

	second, err := newTestEngine(srv.URL, 5).Run(ctx, job)
	require.NoError(t, err)

	assert.Zero(t, second.Updated)
	assert.Equal(t, 5, second.Skipped)
	assert.Equal(t, putsAfterFirst, len(dir.puts), "second run must perform zero writes")
}

func TestEngine_Run_IsolatesUserFailures(t *testing.T) {
	dir := newFakeDirectory(10)
	dir.failPutIDs[4] = true
	srv := httptest.NewServer(dir.handler(t))
	defer srv.Close()

	eng := newTestEngine(srv.URL, 5)
	summary, err := eng.Run(context.Background(), Job{
		Department: "Engineering",
		Groups:     []string{"g1"},
		PageSize:   10,
	})
	require.NoError(t, err, "a single bad record must not abort the job")

	assert.Equal(t, 9, summary.Updated)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []int{1, 2, 3, 5, 6, 7, 8, 9, 10}, dir.puts)
}

func TestEngine_Run_ValidatesBeforeAnyMutation(t *testing.T) {
	dir := newFakeDirectory(3)
	srv := httptest.NewServer(dir.handler(t))
	defer srv.Close()

	eng := newTestEngine(srv.URL, 5)
	_, err := eng.Run(context.Background(), Job{
		Department: "Engineering",
		Groups:     []string{"g1", "ghost"},
		PageSize:   2,
	})

	var verr *zia.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, dir.usersRequests, "no fetch before validation passes")
	assert.Empty(t, dir.puts)
}

func TestEngine_Run_UnknownDepartment(t *testing.T) {
	dir := newFakeDirectory(3)
	srv := httptest.NewServer(dir.handler(t))
	defer srv.Close()

	eng := newTestEngine(srv.URL, 5)
	_, err := eng.Run(context.Background(), Job{
		Department: "Shipping",
		Groups:     []string{"g1"},
	})

	var verr *zia.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "department", verr.Kind)
}

func TestEngine_Run_NoGroups(t *testing.T) {
	dir := newFakeDirectory(1)
	srv := httptest.NewServer(dir.handler(t))
	defer srv.Close()

	_, err := newTestEngine(srv.URL, 5).Run(context.Background(), Job{Department: "Engineering"})

	assert.Error(t, err)
}

func TestEngine_Run_RespectsPageBounds(t *testing.T) {
	dir := newFakeDirectory(6)
	srv := httptest.NewServer(dir.handler(t))
	defer srv.Close()

	eng := newTestEngine(srv.URL, 5)
	summary, err := eng.Run(context.Background(), Job{
		Department: "Engineering",
		Groups:     []string{"g1"},
		StartPage:  2,
		EndPage:    2,
		PageSize:   2,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 2, summary.Updated)
	assert.Empty(t, dir.userGroups(1), "page 1 untouched")
	assert.Equal(t, []string{"g1"}, dir.userGroups(3))
	assert.Empty(t, dir.userGroups(5), "page 3 untouched")
}

func TestTargetGroup_RotationSaturates(t *testing.T) {
	groups := []zia.Group{{ID: 1, Name: "g1"}, {ID: 2, Name: "g2"}, {ID: 3, Name: "g3"}}

	cases := []struct {
		page int
		want string
	}{
		{1, "g1"}, {5, "g1"},
		{6, "g2"}, {10, "g2"},
		{11, "g3"}, {15, "g3"},
		{16, "g3"}, {100, "g3"}, // saturates, never wraps
	}
	for _, tc := range cases {
		got := targetGroup(groups, tc.page, 5)
		assert.Equal(t, tc.want, got.Name, "page %d", tc.page)
	}
}
