package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
)

// Memory is a map-backed Repository. It is the default for tests and local
// development; nothing survives a restart.
type Memory struct {
	mu          sync.RWMutex
	users       map[string]*models.User       // by username
	submissions map[string]*models.Submission // by formID+"/"+localID
}

func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]*models.User),
		submissions: make(map[string]*models.Submission),
	}
}

func subKey(formID, localID string) string {
	return formID + "/" + localID
}

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Username]; exists {
		return fmt.Errorf("user %s already exists", user.Username)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	m.users[user.Username] = &cp
	return nil
}

func (m *Memory) GetUserByName(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *Memory) CreateSubmission(_ context.Context, sub *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	cp := *sub
	m.submissions[subKey(sub.FormID, sub.LocalID)] = &cp
	return nil
}

func (m *Memory) GetSubmission(_ context.Context, formID, localID string) (*models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.submissions[subKey(formID, localID)]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *Memory) Close() error { return nil }
