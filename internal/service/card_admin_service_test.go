package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type cardAdminTestDeps struct {
	svc      *CardAdminServiceImpl
	cardRepo *mocks.MockCardRepository
	userRepo *mocks.MockUserRepository
	numSvc   *mocks.MockCardNumberService
}

func setupCardAdminService(t *testing.T) *cardAdminTestDeps {
	ctrl := gomock.NewController(t)
	d := &cardAdminTestDeps{
		cardRepo: mocks.NewMockCardRepository(ctrl),
		userRepo: mocks.NewMockUserRepository(ctrl),
		numSvc:   mocks.NewMockCardNumberService(ctrl),
	}
	d.svc = NewCardAdminService(d.cardRepo, d.userRepo, d.numSvc, zerolog.Nop())
	d.svc.now = func() time.Time { return time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC) }
	return d
}

func ownedCard(c domain.Card) *domain.CardWithOwner {
	return &domain.CardWithOwner{Card: c, Owner: domain.CardOwner{ID: uuid.New(), Username: "alice"}}
}

func TestCardAdminService_Create_Success(t *testing.T) {
	d := setupCardAdminService(t)
	ctx := context.Background()
	owner := &domain.User{ID: uuid.New(), Username: "alice", Role: domain.RoleUser}

	var created *domain.Card
	d.userRepo.EXPECT().GetByID(ctx, owner.ID).Return(owner, nil)
	d.numSvc.EXPECT().Generate().Return("4000123412341234", nil)
	d.numSvc.EXPECT().Encrypt("4000123412341234").Return("enc_1", nil)
	d.cardRepo.EXPECT().ExistsByNumber(ctx, "enc_1").Return(false, nil)
	d.cardRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, c *domain.Card) error {
		created = c
		return nil
	})
	d.numSvc.EXPECT().Mask("enc_1").Return("**** **** **** 1234", nil)

	view, err := d.svc.Create(ctx, owner.ID)
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, owner.ID, created.OwnerID)
	assert.Equal(t, domain.CardStatusActive, created.Status)
	assert.True(t, created.Balance.IsZero())
	assert.False(t, created.BlockRequested)
	assert.Equal(t, time.Date(2027, 3, 10, 0, 0, 0, 0, time.UTC), created.ExpirationDate)

	assert.Equal(t, created.ID, view.ID)
	assert.Equal(t, "**** **** **** 1234", view.MaskedNumber)
	require.NotNil(t, view.Owner)
	assert.Equal(t, "alice", view.Owner.Username)
}

func TestCardAdminService_Create_RetriesOnCollision(t *testing.T) {
	d := setupCardAdminService(t)
	ctx := context.Background()
	owner := &domain.User{ID: uuid.New(), Username: "alice", Role: domain.RoleUser}

	d.userRepo.EXPECT().GetByID(ctx, owner.ID).Return(owner, nil)
	gomock.InOrder(
		d.numSvc.EXPECT().Generate().Return("1111222233334444", nil),
		d.numSvc.EXPECT().Encrypt("1111222233334444").Return("enc_taken", nil),
		d.cardRepo.EXPECT().ExistsByNumber(ctx, "enc_taken").Return(true, nil),
		d.numSvc.EXPECT().Generate().Return("5555666677778888", nil),
		d.numSvc.EXPECT().Encrypt("5555666677778888").Return("enc_free", nil),
		d.cardRepo.EXPECT().ExistsByNumber(ctx, "enc_free").Return(false, nil),
	)
	d.cardRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.numSvc.EXPECT().Mask("enc_free").Return("**** **** **** 8888", nil)

	view, err := d.svc.Create(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "**** **** **** 8888", view.MaskedNumber)
}

func TestCardAdminService_Create_ConcurrentDuplicateRetries(t *testing.T) {
	d := setupCardAdminService(t)
	ctx := context.Background()
	owner := &domain.User{ID: uuid.New(), Username: "alice", Role: domain.RoleUser}

	d.userRepo.EXPECT().GetByID(ctx, owner.ID).Return(owner, nil)
	d.numSvc.EXPECT().Generate().Return("1111222233334444", nil).Times(2)
	d.numSvc.EXPECT().Encrypt("1111222233334444").Return("enc", nil).Times(2)
	d.cardRepo.EXPECT().ExistsByNumber(ctx, "enc").Return(false, nil).Times(2)
	gomock.InOrder(
		d.cardRepo.EXPECT().Create(ctx, gomock.Any()).Return(domain.ErrDuplicate),
		d.cardRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil),
	)
	d.numSvc.EXPECT().Mask("enc").Return("**** **** **** 4444", nil)

	_, err := d.svc.Create(ctx, owner.ID)
	require.NoError(t, err)
}

func TestCardAdminService_Create_GivesUp(t *testing.T) {
	d := setupCardAdminService(t)
	ctx := context.Background()
	owner := &domain.User{ID: uuid.New(), Username: "alice", Role: domain.RoleUser}

	d.userRepo.EXPECT().GetByID(ctx, owner.ID).Return(owner, nil)
	d.numSvc.EXPECT().Generate().Return("1111222233334444", nil).Times(maxNumberAttempts)
	d.numSvc.EXPECT().Encrypt(gomock.Any()).Return("enc", nil).Times(maxNumberAttempts)
	d.cardRepo.EXPECT().ExistsByNumber(ctx, "enc").Return(true, nil).Times(maxNumberAttempts)

	_, err := d.svc.Create(ctx, owner.ID)
	assertAppError(t, err, "SYS_001")
}

func TestCardAdminService_Create_OwnerChecks(t *testing.T) {
	tests := []struct {
		name  string
		owner *domain.User
		code  string
	}{
		{"missing owner", nil, "USER_001"},
		{"admin owner", &domain.User{Username: "root", Role: domain.RoleAdmin}, "CARD_006"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupCardAdminService(t)
			ownerID := uuid.New()
			d.userRepo.EXPECT().GetByID(gomock.Any(), ownerID).Return(tt.owner, nil)

			_, err := d.svc.Create(context.Background(), ownerID)
			assertAppError(t, err, tt.code)
		})
	}
}

func TestCardAdminService_Activate(t *testing.T) {
	d := setupCardAdminService(t)
	ctx := context.Background()
	card := ownedCard(domain.Card{ID: uuid.New(), NumberEncrypted: "enc", Status: domain.CardStatusBlocked, BlockRequested: true})

	d.cardRepo.EXPECT().GetByID(ctx, card.ID).Return(card, nil)
	d.cardRepo.EXPECT().UpdateState(ctx, card.ID, domain.CardStatusActive, false).Return(nil)
	d.numSvc.EXPECT().Mask("enc").Return("**** **** **** 0000", nil)

	view, err := d.svc.Activate(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusActive, view.Status)
	assert.False(t, view.BlockRequested)
	require.NotNil(t, view.Owner)
	assert.Equal(t, card.Owner, *view.Owner)
}

func TestCardAdminService_Activate_Expired(t *testing.T) {
	d := setupCardAdminService(t)
	ctx := context.Background()
	card := ownedCard(domain.Card{ID: uuid.New(), Status: domain.CardStatusExpired})

	d.cardRepo.EXPECT().GetByID(ctx, card.ID).Return(card, nil)

	_, err := d.svc.Activate(ctx, card.ID)
	assertAppError(t, err, "CARD_002")
}

func TestCardAdminService_Block(t *testing.T) {
	d := setupCardAdminService(t)
	ctx := context.Background()
	card := ownedCard(domain.Card{ID: uuid.New(), NumberEncrypted: "enc", Status: domain.CardStatusActive, BlockRequested: true})

	d.cardRepo.EXPECT().GetByID(ctx, card.ID).Return(card, nil)
	d.cardRepo.EXPECT().UpdateState(ctx, card.ID, domain.CardStatusBlocked, true).Return(nil)
	d.numSvc.EXPECT().Mask("enc").Return("**** **** **** 0000", nil)

	view, err := d.svc.Block(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusBlocked, view.Status)
	require.NotNil(t, view.Owner)
	assert.Equal(t, "alice", view.Owner.Username)
}

func TestCardAdminService_Block_AlreadyBlockedIsNoop(t *testing.T) {
	d := setupCardAdminService(t)
	ctx := context.Background()
	card := ownedCard(domain.Card{ID: uuid.New(), NumberEncrypted: "enc", Status: domain.CardStatusBlocked})

	d.cardRepo.EXPECT().GetByID(ctx, card.ID).Return(card, nil)
	d.numSvc.EXPECT().Mask("enc").Return("**** **** **** 0000", nil)

	view, err := d.svc.Block(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.Owner.ID, view.Owner.ID)
}

func TestCardAdminService_Block_NotFound(t *testing.T) {
	d := setupCardAdminService(t)
	id := uuid.New()
	d.cardRepo.EXPECT().GetByID(gomock.Any(), id).Return(nil, nil)

	_, err := d.svc.Block(context.Background(), id)
	assertAppError(t, err, "CARD_001")
}

func TestCardAdminService_Delete(t *testing.T) {
	d := setupCardAdminService(t)
	ctx := context.Background()
	card := ownedCard(domain.Card{ID: uuid.New()})

	d.cardRepo.EXPECT().GetByID(ctx, card.ID).Return(card, nil)
	d.cardRepo.EXPECT().SoftDelete(ctx, card.ID).Return(nil)

	require.NoError(t, d.svc.Delete(ctx, card.ID))
}

func TestCardAdminService_Delete_StoreError(t *testing.T) {
	d := setupCardAdminService(t)
	ctx := context.Background()
	card := ownedCard(domain.Card{ID: uuid.New()})

	d.cardRepo.EXPECT().GetByID(ctx, card.ID).Return(card, nil)
	d.cardRepo.EXPECT().SoftDelete(ctx, card.ID).Return(errors.New("boom"))

	assertAppError(t, d.svc.Delete(ctx, card.ID), "SYS_001")
}

func TestCardAdminService_ListAll(t *testing.T) {
	d := setupCardAdminService(t)
	ctx := context.Background()
	requested := true
	owner := domain.CardOwner{ID: uuid.New(), Username: "alice"}
	row := domain.CardWithOwner{
		Card:  domain.Card{ID: uuid.New(), NumberEncrypted: "enc", Status: domain.CardStatusActive, BlockRequested: true},
		Owner: owner,
	}

	d.cardRepo.EXPECT().List(ctx, ports.CardListParams{
		BlockRequested: &requested,
		Page:           domain.PageRequest{Page: 1, Size: domain.MaxPageSize},
	}).Return([]domain.CardWithOwner{row}, int64(1), nil)
	d.numSvc.EXPECT().Mask("enc").Return("**** **** **** 0000", nil)

	page, err := d.svc.ListAll(ctx, ports.CardListParams{
		BlockRequested: &requested,
		Page:           domain.PageRequest{Page: 0, Size: 500},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].Owner)
	assert.Equal(t, owner, *page.Items[0].Owner)
}
