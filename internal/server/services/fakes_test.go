package services

import (
	"bytes"
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/dbx"
	"github.com/dmitrijs2005/finsync/internal/models"
	servermodels "github.com/dmitrijs2005/finsync/internal/server/models"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/documents"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsers struct {
	byName    map[string]*servermodels.User
	createErr error
	getErr    error
}

func (f *fakeUsers) Create(_ context.Context, u *servermodels.User) (*servermodels.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byName[u.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u.ID = "user-" + u.UserName
	f.byName[u.UserName] = u
	return u, nil
}

func (f *fakeUsers) GetUserByLogin(_ context.Context, name string) (*servermodels.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type fakeTokens struct {
	tokens    map[string]*servermodels.RefreshToken
	createErr error
	pruned    []string
}

func (f *fakeTokens) Create(_ context.Context, userID, token string, expires time.Time) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &servermodels.RefreshToken{Token: token, UserID: userID, Expires: expires}
	return nil
}

func (f *fakeTokens) Find(_ context.Context, token string) (*servermodels.RefreshToken, error) {
	rt, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rt
	return &cp, nil
}

func (f *fakeTokens) Delete(_ context.Context, token string) (bool, error) {
	_, ok := f.tokens[token]
	delete(f.tokens, token)
	return ok, nil
}

func (f *fakeTokens) DeleteExpired(_ context.Context, userID string, _ time.Time) (int64, error) {
	f.pruned = append(f.pruned, userID)
	return 0, nil
}

// fakeDocs keeps documents in memory keyed by user, collection and id.
type fakeDocs struct {
	mu   sync.Mutex
	docs map[string][]byte
	fail error
}

func docKey(user string, c models.Collection, id string) string {
	return user + "/" + string(c) + "/" + id
}

func (f *fakeDocs) List(_ context.Context, user string, c models.Collection) ([]servermodels.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := user + "/" + string(c) + "/"
	var out []servermodels.Document
	for k, v := range f.docs {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, servermodels.Document{UserID: user, Collection: c, ID: k[len(prefix):], Data: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDocs) Upsert(_ context.Context, user string, c models.Collection, id string, data []byte) (documents.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return documents.Unchanged, f.fail
	}
	k := docKey(user, c, id)
	prev, ok := f.docs[k]
	f.docs[k] = data
	switch {
	case !ok:
		return documents.Inserted, nil
	case bytes.Equal(prev, data):
		return documents.Unchanged, nil
	default:
		return documents.Updated, nil
	}
}

func (f *fakeDocs) Delete(_ context.Context, user string, c models.Collection, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := docKey(user, c, id)
	prev, ok := f.docs[k]
	if !ok {
		return nil, nil
	}
	delete(f.docs, k)
	return prev, nil
}

func (f *fakeDocs) DeleteAll(ctx context.Context, user string, c models.Collection) ([]servermodels.Document, error) {
	docs, _ := f.List(ctx, user, c)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range docs {
		delete(f.docs, docKey(user, c, d.ID))
	}
	return docs, nil
}

type fakeRepoManager struct {
	users  *fakeUsers
	tokens *fakeTokens
	docs   *fakeDocs
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:  &fakeUsers{byName: map[string]*servermodels.User{}},
		tokens: &fakeTokens{tokens: map[string]*servermodels.RefreshToken{}},
		docs:   &fakeDocs{docs: map[string][]byte{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.tokens }
func (m *fakeRepoManager) Documents(dbx.DBTX) documents.Repository         { return m.docs }
