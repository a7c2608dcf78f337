//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"telegram-channel-admin/internal/domain/model"
	"telegram-channel-admin/internal/domain/ports/adapter"
	derror "telegram-channel-admin/internal/error"
	"telegram-channel-admin/internal/usecase"
)

// fixture wires a promotion usecase around fresh mocks with one
// registered, active channel.
type fixture struct {
	setups  *MockSetupRepo
	members *MockMembershipRepo
	audit   *MockAuditRepo
	api     *MockTelegramAPI
	uc      *usecase.PromotionUseCase
}

func newFixture(t *testing.T, maxBots int) *fixture {
	t.Helper()
	testLogger := newTestLogger()

	f := &fixture{
		setups:  NewMockSetupRepo(),
		members: NewMockMembershipRepo(),
		audit:   NewMockAuditRepo(),
		api:     NewMockTelegramAPI(),
	}
	auditUC := usecase.NewAuditUseCase(f.audit, testLogger)
	verifier := usecase.NewVerifier(f.api, testLogger)
	f.uc = usecase.NewPromotionUseCase(f.setups, f.members, auditUC, f.api, verifier, testLogger)

	s := model.NewSetup(1, "-100X", "@x", "https://t.me/x/1", maxBots)
	s.IsActive = true
	if err := f.setups.Upsert(context.Background(), s); err != nil {
		t.Fatalf("seed setup: %v", err)
	}
	return f
}

func TestPromotionUseCase_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("should promote, verify and track a valid bot", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, 5)
		f.api.ResolveAccountFunc = func(ctx context.Context, username string) (*model.Account, error) {
			return botAccount(42, "alpha_bot"), nil
		}

		// --- Act ---
		report, err := f.uc.Add(ctx, 1, "@alpha_bot", "")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Account.ID != 42 {
			t.Errorf("wrong account: %d", report.Account.ID)
		}
		if n, _ := f.members.Count(ctx, "-100X"); n != 1 {
			t.Errorf("expected 1 tracked bot, got %d", n)
		}
		actions := f.audit.ActionsFor(1)
		if len(actions) == 0 || actions[len(actions)-1] != model.ActionBotAdded {
			t.Errorf("expected bot_added audit entry, got %v", actions)
		}
	})

	t.Run("should reject before any platform call when at capacity", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, 5)
		for i := int64(1); i <= 5; i++ {
			if err := f.members.Add(ctx, "-100X", i, "@seed_bot"); err != nil {
				t.Fatalf("seed member: %v", err)
			}
		}

		// --- Act ---
		_, err := f.uc.Add(ctx, 1, "@late_bot", "")

		// --- Assert ---
		var capErr *derror.CapacityError
		if !errors.As(err, &capErr) {
			t.Fatalf("expected CapacityError, got %v", err)
		}
		if capErr.Free != 0 || capErr.Max != 5 {
			t.Errorf("unexpected capacity report: free=%d max=%d", capErr.Free, capErr.Max)
		}
		if len(f.api.PromoteCalls) != 0 {
			t.Errorf("platform was called despite capacity rejection: %v", f.api.PromoteCalls)
		}
	})

	t.Run("should refuse a non-bot account", func(t *testing.T) {
		f := newFixture(t, 5)
		f.api.ResolveAccountFunc = func(ctx context.Context, username string) (*model.Account, error) {
			return &model.Account{ID: 7, Username: "human", IsBot: false}, nil
		}

		_, err := f.uc.Add(ctx, 1, "@human", "")
		if !errors.Is(err, derror.ErrNotABot) {
			t.Errorf("expected ErrNotABot, got %v", err)
		}
	})

	t.Run("should refuse a duplicate without calling the platform", func(t *testing.T) {
		f := newFixture(t, 5)
		f.api.ResolveAccountFunc = func(ctx context.Context, username string) (*model.Account, error) {
			return botAccount(42, "alpha_bot"), nil
		}
		if err := f.members.Add(ctx, "-100X", 42, "@alpha_bot"); err != nil {
			t.Fatalf("seed member: %v", err)
		}

		_, err := f.uc.Add(ctx, 1, "@alpha_bot", "")
		if !errors.Is(err, derror.ErrAlreadyTracked) {
			t.Errorf("expected ErrAlreadyTracked, got %v", err)
		}
		if len(f.api.PromoteCalls) != 0 {
			t.Errorf("platform promote called for a duplicate")
		}
		if n, _ := f.members.Count(ctx, "-100X"); n != 1 {
			t.Errorf("tracked set size changed: %d", n)
		}
	})

	t.Run("should not persist membership when verification fails", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, 5)
		f.api.ResolveAccountFunc = func(ctx context.Context, username string) (*model.Account, error) {
			return botAccount(42, "alpha_bot"), nil
		}
		f.api.GetChatMemberFunc = func(ctx context.Context, channelID string, accountID int64) (*adapter.MemberInfo, error) {
			return &adapter.MemberInfo{Status: "member"}, nil
		}

		// --- Act ---
		_, err := f.uc.Add(ctx, 1, "@alpha_bot", "")

		// --- Assert ---
		if !errors.Is(err, derror.ErrVerifyFailed) {
			t.Fatalf("expected ErrVerifyFailed, got %v", err)
		}
		if len(f.api.PromoteCalls) != 1 {
			t.Errorf("expected one promote attempt, got %d", len(f.api.PromoteCalls))
		}
		if n, _ := f.members.Count(ctx, "-100X"); n != 0 {
			t.Errorf("membership persisted despite failed verification: %d", n)
		}
	})

	t.Run("should require an active channel", func(t *testing.T) {
		testLogger := newTestLogger()
		setups := NewMockSetupRepo()
		members := NewMockMembershipRepo()
		auditUC := usecase.NewAuditUseCase(NewMockAuditRepo(), testLogger)
		api := NewMockTelegramAPI()
		uc := usecase.NewPromotionUseCase(setups, members, auditUC, api, usecase.NewVerifier(api, testLogger), testLogger)

		_, err := uc.Add(context.Background(), 1, "@alpha_bot", "")
		if !errors.Is(err, derror.ErrNoActiveChannel) {
			t.Errorf("expected ErrNoActiveChannel, got %v", err)
		}
	})
}

func TestPromotionUseCase_BulkAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("should process every candidate and collect failures", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, 10)
		accounts := map[string]*model.Account{
			"@good_bot":  botAccount(1, "good_bot"),
			"@other_bot": botAccount(2, "other_bot"),
			"@human":     {ID: 3, Username: "human", IsBot: false},
		}
		f.api.ResolveAccountFunc = func(ctx context.Context, username string) (*model.Account, error) {
			if a, ok := accounts[username]; ok {
				return a, nil
			}
			return nil, errors.New("USERNAME_NOT_OCCUPIED: this username does not exist on telegram")
		}

		// --- Act ---
		report, err := f.uc.BulkAdd(ctx, 1, []string{"@good_bot", "@human", "@ghost", "@other_bot"}, "")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Added != 2 {
			t.Errorf("expected 2 added, got %d", report.Added)
		}
		if len(report.Failures) != 2 {
			t.Fatalf("expected 2 failures, got %v", report.Failures)
		}
		if report.Failures[0] != "@human: Not a bot" {
			t.Errorf("unexpected failure reason: %q", report.Failures[0])
		}
		if !strings.HasPrefix(report.Failures[1], "@ghost: ") {
			t.Errorf("unexpected failure entry: %q", report.Failures[1])
		}
		// Reasons are capped at 50 characters of the underlying error.
		reason := strings.TrimPrefix(report.Failures[1], "@ghost: ")
		if len(reason) > 50 {
			t.Errorf("failure reason not truncated: %d chars", len(reason))
		}
		if n, _ := f.members.Count(ctx, "-100X"); n != 2 {
			t.Errorf("expected 2 tracked bots, got %d", n)
		}
	})

	t.Run("should cut long failure reasons on rune boundaries", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, 10)
		f.api.ResolveAccountFunc = func(ctx context.Context, username string) (*model.Account, error) {
			return nil, errors.New(strings.Repeat("п", 60))
		}

		// --- Act ---
		report, err := f.uc.BulkAdd(ctx, 1, []string{"@ghost_bot"}, "")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(report.Failures) != 1 {
			t.Fatalf("expected 1 failure, got %v", report.Failures)
		}
		reason := strings.TrimPrefix(report.Failures[0], "@ghost_bot: ")
		if !utf8.ValidString(reason) {
			t.Errorf("failure reason is not valid UTF-8: %q", reason)
		}
		if got := utf8.RuneCountInString(reason); got != 50 {
			t.Errorf("expected a 50-rune reason, got %d runes", got)
		}
	})

	t.Run("should reject the whole batch when it exceeds free slots", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, 3)
		for i := int64(1); i <= 2; i++ {
			if err := f.members.Add(ctx, "-100X", i, "@seed_bot"); err != nil {
				t.Fatalf("seed member: %v", err)
			}
		}

		// --- Act ---
		_, err := f.uc.BulkAdd(ctx, 1, []string{"@a_bot", "@b_bot"}, "")

		// --- Assert ---
		var capErr *derror.CapacityError
		if !errors.As(err, &capErr) {
			t.Fatalf("expected CapacityError, got %v", err)
		}
		if capErr.Free != 1 || capErr.Max != 3 {
			t.Errorf("unexpected capacity report: free=%d max=%d", capErr.Free, capErr.Max)
		}
		if len(f.api.PromoteCalls) != 0 {
			t.Errorf("platform called despite batch rejection")
		}
	})

	t.Run("should keep going when a promotion fails mid-batch", func(t *testing.T) {
		f := newFixture(t, 10)
		f.api.ResolveAccountFunc = func(ctx context.Context, username string) (*model.Account, error) {
			switch username {
			case "@first_bot":
				return botAccount(1, "first_bot"), nil
			case "@second_bot":
				return botAccount(2, "second_bot"), nil
			}
			return nil, errors.New("unknown")
		}
		f.api.PromoteFunc = func(ctx context.Context, channelID string, accountID int64) error {
			if accountID == 1 {
				return errors.New("CHAT_ADMIN_REQUIRED")
			}
			return nil
		}

		report, err := f.uc.BulkAdd(ctx, 1, []string{"@first_bot", "@second_bot"}, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Added != 1 {
			t.Errorf("expected 1 added, got %d", report.Added)
		}
		if len(report.Failures) != 1 || !strings.HasPrefix(report.Failures[0], "@first_bot: ") {
			t.Errorf("unexpected failures: %v", report.Failures)
		}
	})
}

func TestPromotionUseCase_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("should remove tracking and demote", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, 5)
		f.api.ResolveAccountFunc = func(ctx context.Context, username string) (*model.Account, error) {
			return botAccount(42, "alpha_bot"), nil
		}
		if err := f.members.Add(ctx, "-100X", 42, "@alpha_bot"); err != nil {
			t.Fatalf("seed member: %v", err)
		}

		// --- Act ---
		report, err := f.uc.Remove(ctx, 1, "@alpha_bot", "")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !report.Demoted {
			t.Error("expected demotion to be reported as succeeded")
		}
		if n, _ := f.members.Count(ctx, "-100X"); n != 0 {
			t.Errorf("bot still tracked: %d", n)
		}
		if len(f.api.DemoteCalls) != 1 {
			t.Errorf("expected one demote call, got %d", len(f.api.DemoteCalls))
		}
	})

	t.Run("should report not-found for a never-added bot and append no audit entry", func(t *testing.T) {
		f := newFixture(t, 5)
		f.api.ResolveAccountFunc = func(ctx context.Context, username string) (*model.Account, error) {
			return botAccount(42, "alpha_bot"), nil
		}

		_, err := f.uc.Remove(ctx, 1, "@alpha_bot", "")
		if !errors.Is(err, derror.ErrNotTracked) {
			t.Fatalf("expected ErrNotTracked, got %v", err)
		}
		for _, a := range f.audit.ActionsFor(1) {
			if a == model.ActionBotRemoved {
				t.Error("bot_removed audit entry appended for a failed removal")
			}
		}
	})

	t.Run("should report not-found when other bots are tracked but the target is not", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, 5)
		f.api.ResolveAccountFunc = func(ctx context.Context, username string) (*model.Account, error) {
			return botAccount(42, "alpha_bot"), nil
		}
		if err := f.members.Add(ctx, "-100X", 7, "@other_bot"); err != nil {
			t.Fatalf("seed member: %v", err)
		}

		// --- Act ---
		_, err := f.uc.Remove(ctx, 1, "@alpha_bot", "")

		// --- Assert ---
		if !errors.Is(err, derror.ErrNotTracked) {
			t.Fatalf("expected ErrNotTracked, got %v", err)
		}
		if len(f.api.DemoteCalls) != 0 {
			t.Errorf("demote called for an untracked bot: %v", f.api.DemoteCalls)
		}
		if n, _ := f.members.Count(ctx, "-100X"); n != 1 {
			t.Errorf("tracked set changed: %d", n)
		}
	})

	t.Run("should keep the tracking removal when demotion fails", func(t *testing.T) {
		f := newFixture(t, 5)
		f.api.ResolveAccountFunc = func(ctx context.Context, username string) (*model.Account, error) {
			return botAccount(42, "alpha_bot"), nil
		}
		f.api.DemoteFunc = func(ctx context.Context, channelID string, accountID int64) error {
			return errors.New("CHAT_ADMIN_REQUIRED")
		}
		if err := f.members.Add(ctx, "-100X", 42, "@alpha_bot"); err != nil {
			t.Fatalf("seed member: %v", err)
		}

		report, err := f.uc.Remove(ctx, 1, "@alpha_bot", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Demoted {
			t.Error("expected demotion failure to be reported")
		}
		if n, _ := f.members.Count(ctx, "-100X"); n != 0 {
			t.Errorf("tracking removal rolled back: %d", n)
		}
		actions := f.audit.ActionsFor(1)
		if len(actions) == 0 || actions[len(actions)-1] != model.ActionBotRemoved {
			t.Errorf("expected bot_removed audit entry, got %v", actions)
		}
	})
}

func TestPromotionUseCase_Override(t *testing.T) {
	ctx := context.Background()

	t.Run("should target an explicitly registered channel", func(t *testing.T) {
		f := newFixture(t, 5)
		other := model.NewSetup(1, "-100Y", "@y", "https://t.me/y/1", 5)
		if err := f.setups.Upsert(ctx, other); err != nil {
			t.Fatalf("seed setup: %v", err)
		}
		f.api.ResolveAccountFunc = func(ctx context.Context, username string) (*model.Account, error) {
			return botAccount(42, "alpha_bot"), nil
		}

		report, err := f.uc.Add(ctx, 1, "@alpha_bot", "-100Y")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Setup.ChannelID != "-100Y" {
			t.Errorf("wrong target channel: %s", report.Setup.ChannelID)
		}
		if n, _ := f.members.Count(ctx, "-100Y"); n != 1 {
			t.Errorf("membership not recorded on override channel")
		}
	})

	t.Run("should borrow the active budget for an unregistered override", func(t *testing.T) {
		f := newFixture(t, 5)
		f.api.ResolveAccountFunc = func(ctx context.Context, username string) (*model.Account, error) {
			return botAccount(42, "alpha_bot"), nil
		}

		report, err := f.uc.Add(ctx, 1, "@alpha_bot", "-100unreg")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Setup.ChannelID != "-100unreg" {
			t.Errorf("override channel id not applied: %s", report.Setup.ChannelID)
		}
		if report.Setup.MaxBots != 5 {
			t.Errorf("active budget not borrowed: %d", report.Setup.MaxBots)
		}
	})
}
