//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-channel-admin/internal/domain/model"
	"telegram-channel-admin/internal/domain/ports/adapter"
	"telegram-channel-admin/internal/domain/ports/repository"
	derror "telegram-channel-admin/internal/error"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// -----------------------------
// Mock SetupRepository
// -----------------------------

// MockSetupRepo keeps setups in insertion order so the FindActive
// fallback to "first stored" is deterministic in tests.
type MockSetupRepo struct {
	mu     sync.Mutex
	setups []*model.Setup

	UpsertFunc   func(ctx context.Context, s *model.Setup) error
	ActivateFunc func(ctx context.Context, ownerID int64, channelID string) error
}

var _ repository.SetupRepository = (*MockSetupRepo)(nil)

func NewMockSetupRepo() *MockSetupRepo { return &MockSetupRepo{} }

func (m *MockSetupRepo) Upsert(ctx context.Context, s *model.Setup) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	found := false
	for i, ex := range m.setups {
		if ex.OwnerID == s.OwnerID && ex.ChannelID == s.ChannelID {
			m.setups[i] = &cp
			found = true
			break
		}
	}
	if !found {
		m.setups = append(m.setups, &cp)
	}
	if cp.IsActive {
		for _, ex := range m.setups {
			if ex.OwnerID == s.OwnerID && ex.ChannelID != s.ChannelID {
				ex.IsActive = false
			}
		}
	}
	return nil
}

func (m *MockSetupRepo) Activate(ctx context.Context, ownerID int64, channelID string) error {
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, ownerID, channelID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	for _, ex := range m.setups {
		if ex.OwnerID == ownerID && ex.ChannelID == channelID {
			ex.IsActive = true
			found = true
		}
	}
	if !found {
		return derror.ErrNotFound
	}
	for _, ex := range m.setups {
		if ex.OwnerID == ownerID && ex.ChannelID != channelID {
			ex.IsActive = false
		}
	}
	return nil
}

func (m *MockSetupRepo) FindActive(ctx context.Context, ownerID int64) (*model.Setup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first *model.Setup
	for _, ex := range m.setups {
		if ex.OwnerID != ownerID {
			continue
		}
		if first == nil {
			first = ex
		}
		if ex.IsActive {
			cp := *ex
			return &cp, nil
		}
	}
	if first == nil {
		return nil, derror.ErrNotFound
	}
	cp := *first
	return &cp, nil
}

func (m *MockSetupRepo) Find(ctx context.Context, ownerID int64, channelID string) (*model.Setup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.setups {
		if ex.OwnerID == ownerID && ex.ChannelID == channelID {
			cp := *ex
			return &cp, nil
		}
	}
	return nil, derror.ErrNotFound
}

func (m *MockSetupRepo) ListAll(ctx context.Context, ownerID int64) ([]*model.Setup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Setup
	for _, ex := range m.setups {
		if ex.OwnerID == ownerID {
			cp := *ex
			out = append(out, &cp)
		}
	}
	return out, nil
}

// -----------------------------
// Mock MembershipRepository
// -----------------------------

type MockMembershipRepo struct {
	mu      sync.Mutex
	byChan  map[string]*model.Membership
	AddFunc func(ctx context.Context, channelID string, botID int64, username string) error
}

var _ repository.MembershipRepository = (*MockMembershipRepo)(nil)

func NewMockMembershipRepo() *MockMembershipRepo {
	return &MockMembershipRepo{byChan: map[string]*model.Membership{}}
}

func (m *MockMembershipRepo) Count(ctx context.Context, channelID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms, ok := m.byChan[channelID]; ok {
		return len(ms.Bots), nil
	}
	return 0, nil
}

func (m *MockMembershipRepo) Find(ctx context.Context, channelID string) (*model.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.byChan[channelID]
	if !ok {
		return nil, derror.ErrNotFound
	}
	cp := *ms
	cp.Bots = append([]int64(nil), ms.Bots...)
	return &cp, nil
}

func (m *MockMembershipRepo) Add(ctx context.Context, channelID string, botID int64, username string) error {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, channelID, botID, username)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.byChan[channelID]
	if !ok {
		ms = &model.Membership{ChannelID: channelID}
		m.byChan[channelID] = ms
	}
	if !ms.Has(botID) {
		ms.Bots = append(ms.Bots, botID)
	}
	ms.LastBotUsername = username
	ms.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockMembershipRepo) Remove(ctx context.Context, channelID string, botID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.byChan[channelID]
	if !ok {
		return false, nil
	}
	for i, id := range ms.Bots {
		if id == botID {
			ms.Bots = append(ms.Bots[:i], ms.Bots[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// -----------------------------
// Mock AuditRepository
// -----------------------------

type MockAuditRepo struct {
	mu      sync.Mutex
	Entries []*model.AuditEntry
}

var _ repository.AuditRepository = (*MockAuditRepo)(nil)

func NewMockAuditRepo() *MockAuditRepo { return &MockAuditRepo{} }

func (m *MockAuditRepo) Append(ctx context.Context, e *model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.Entries = append(m.Entries, &cp)
	return nil
}

func (m *MockAuditRepo) Count(ctx context.Context, ownerID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.Entries {
		if e.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *MockAuditRepo) DeleteOlderThan(ctx context.Context, ownerID int64, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*model.AuditEntry
	var deleted int64
	for _, e := range m.Entries {
		if e.OwnerID == ownerID && e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.Entries = kept
	return deleted, nil
}

// ActionsFor lists the recorded action tags for an owner, in order.
func (m *MockAuditRepo) ActionsFor(ownerID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.Entries {
		if e.OwnerID == ownerID {
			out = append(out, e.Action)
		}
	}
	return out
}

// -----------------------------
// Mock TelegramAPI
// -----------------------------

type promoteCall struct {
	ChannelID string
	AccountID int64
}

type MockTelegramAPI struct {
	mu sync.Mutex

	ResolveAccountFunc func(ctx context.Context, username string) (*model.Account, error)
	AccountByIDFunc    func(ctx context.Context, id int64) (*model.Account, error)
	ResolveChannelFunc func(ctx context.Context, ref string) (*adapter.ChatInfo, error)
	GetChatMemberFunc  func(ctx context.Context, channelID string, accountID int64) (*adapter.MemberInfo, error)
	PromoteFunc        func(ctx context.Context, channelID string, accountID int64) error
	DemoteFunc         func(ctx context.Context, channelID string, accountID int64) error

	PromoteCalls []promoteCall
	DemoteCalls  []promoteCall
	Sent         []string
}

var _ adapter.TelegramAPI = (*MockTelegramAPI)(nil)

func NewMockTelegramAPI() *MockTelegramAPI { return &MockTelegramAPI{} }

func (m *MockTelegramAPI) ResolveAccount(ctx context.Context, username string) (*model.Account, error) {
	if m.ResolveAccountFunc != nil {
		return m.ResolveAccountFunc(ctx, username)
	}
	return nil, fmt.Errorf("no ResolveAccountFunc configured for %s", username)
}

func (m *MockTelegramAPI) AccountByID(ctx context.Context, id int64) (*model.Account, error) {
	if m.AccountByIDFunc != nil {
		return m.AccountByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("no AccountByIDFunc configured for %d", id)
}

func (m *MockTelegramAPI) ResolveChannel(ctx context.Context, ref string) (*adapter.ChatInfo, error) {
	if m.ResolveChannelFunc != nil {
		return m.ResolveChannelFunc(ctx, ref)
	}
	return nil, fmt.Errorf("no ResolveChannelFunc configured for %s", ref)
}

func (m *MockTelegramAPI) GetChatMember(ctx context.Context, channelID string, accountID int64) (*adapter.MemberInfo, error) {
	if m.GetChatMemberFunc != nil {
		return m.GetChatMemberFunc(ctx, channelID, accountID)
	}
	return &adapter.MemberInfo{
		Status:            "administrator",
		CanManageChat:     true,
		CanDeleteMessages: true,
		CanPromoteMembers: true,
	}, nil
}

func (m *MockTelegramAPI) Promote(ctx context.Context, channelID string, accountID int64) error {
	m.mu.Lock()
	m.PromoteCalls = append(m.PromoteCalls, promoteCall{channelID, accountID})
	m.mu.Unlock()
	if m.PromoteFunc != nil {
		return m.PromoteFunc(ctx, channelID, accountID)
	}
	return nil
}

func (m *MockTelegramAPI) Demote(ctx context.Context, channelID string, accountID int64) error {
	m.mu.Lock()
	m.DemoteCalls = append(m.DemoteCalls, promoteCall{channelID, accountID})
	m.mu.Unlock()
	if m.DemoteFunc != nil {
		return m.DemoteFunc(ctx, channelID, accountID)
	}
	return nil
}

func (m *MockTelegramAPI) SendMessage(ctx context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, text)
	return nil
}

func (m *MockTelegramAPI) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, text)
	return nil
}

func (m *MockTelegramAPI) SendDocument(ctx context.Context, chatID int64, doc adapter.Document) error {
	return nil
}

func (m *MockTelegramAPI) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	return nil
}

// botAccount builds a bot account fixture with a conventional username.
func botAccount(id int64, username string) *model.Account {
	return &model.Account{ID: id, Username: username, FirstName: "Bot", IsBot: true}
}
